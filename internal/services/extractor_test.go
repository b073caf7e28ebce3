package services

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/nfse-api/internal/logger"
	"github.com/nexconsult/nfse-api/internal/models"
)

func TestListingExtractor_Extract(t *testing.T) {
	extractor := NewListingExtractor(logger.NewDiscard())

	items, err := extractor.Extract(strings.NewReader(sampleListingHTML), "text/html; charset=utf-8")
	require.NoError(t, err)
	require.Len(t, items, 2, "rows without a document link are skipped")

	assert.Equal(t, models.ListItem{
		DataEmissao: "15/01/2024",
		Tomador: models.Tomador{
			CNPJ: "11.222.333/0001-81",
			Nome: "TOMADORA EXEMPLO SA",
		},
		Competencia:      "01/2024",
		MunicipioEmissor: "São Paulo/SP",
		Valor:            15000.00,
		Situacao:         "100",
		Chave:            "35503082212345678000190000000000001024011234567890",
	}, items[0])

	assert.Equal(t, "42", items[1].Chave)
	assert.Equal(t, "OUTRA EMPRESA", items[1].Tomador.Nome)
	assert.Equal(t, 0.0, items[1].Valor, "unparseable amounts fall back to zero")
	assert.Equal(t, "101", items[1].Situacao)
}

func TestListingExtractor_Latin1Page(t *testing.T) {
	page := "<html><head><meta charset=\"iso-8859-1\"></head><body><table class=\"table\"><tbody>" +
		"<tr><td class=\"td-municipio\">S\xe3o Paulo/SP</td><td><a href=\"/Notas/Download/NFSe/7\">x</a></td></tr>" +
		"</tbody></table></body></html>"

	items, err := NewListingExtractor(logger.NewDiscard()).Extract(strings.NewReader(page), "text/html")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "São Paulo/SP", items[0].MunicipioEmissor)
}

func TestListingExtractor_EmptyTable(t *testing.T) {
	items, err := NewListingExtractor(logger.NewDiscard()).Extract(strings.NewReader("<html><body></body></html>"), "")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestExtractDocumentKey(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		key   string
		found bool
	}{
		{"relative link", `<a href="/EmissorNacional/Notas/Download/NFSe/123456">x</a>`, "123456", true},
		{"absolute link", `<a href="https://portal/Notas/Download/NFSe/987">x</a>`, "987", true},
		{"trailing slash", `<a href="/Notas/Download/NFSe/55/">x</a>`, "55", true},
		{"first matching anchor wins", `<a href="/NFSe/1">a</a><a href="/NFSe/2">b</a>`, "1", true},
		{"pdf link only", `<a href="/Notas/Download/DANFSe/123">x</a>`, "", false},
		{"non numeric", `<a href="/Notas/Download/NFSe/abc">x</a>`, "", false},
		{"suffix after key", `<a href="/Notas/Download/NFSe/123?x=1">x</a>`, "", false},
		{"no anchors", `<span>nada</span>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tr><td>" + tt.html + "</td></tr></table>"))
			require.NoError(t, err)

			key, found := extractDocumentKey(doc.Find("tr").First())
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestExtractRecipient(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td class="r">  <b class="cnpj">123.456.789-00</b>
		 -  JOSÉ   DA SILVA </td><td class="n">SEM DOCUMENTO</td></tr></table>`))
	require.NoError(t, err)

	taxID, name := extractRecipient(doc.Find("td.r"))
	assert.Equal(t, "123.456.789-00", taxID)
	assert.Equal(t, "JOSÉ DA SILVA", name)

	taxID, name = extractRecipient(doc.Find("td.n"))
	assert.Empty(t, taxID)
	assert.Equal(t, "SEM DOCUMENTO", name)

	taxID, name = extractRecipient(doc.Find("td.missing"))
	assert.Empty(t, taxID)
	assert.Empty(t, name)
}
