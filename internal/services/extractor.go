package services

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/nexconsult/nfse-api/internal/models"
	"github.com/nexconsult/nfse-api/internal/utils"
)

// Selectors of the issued documents listing
const (
	listingRowSelector    = "table.table tbody tr"
	issueDateSelector     = "td.td-data"
	competenceSelector    = "td.td-competencia"
	municipalitySelector  = "td.td-municipio"
	amountSelector        = "td.td-valor"
	recipientSelector     = "td.td-texto-grande"
	recipientTaxIDElement = ".cnpj"
	statusAttribute       = "data-situacao"
)

var documentKeyRegex = regexp.MustCompile(`/NFSe/(\d+)/?$`)

// ListingExtractor turns a listing page into summary records
type ListingExtractor struct {
	logger *logrus.Logger
}

// NewListingExtractor creates a new listing extractor
func NewListingExtractor(logger *logrus.Logger) *ListingExtractor {
	return &ListingExtractor{logger: logger}
}

// Extract reads every listing row that links to a document. Rows without a
// document link are skipped.
func (e *ListingExtractor) Extract(body io.Reader, contentType string) ([]models.ListItem, error) {
	doc, err := parseHTML(body, contentType)
	if err != nil {
		return nil, err
	}

	items := make([]models.ListItem, 0)
	skipped := 0
	doc.Find(listingRowSelector).Each(func(i int, row *goquery.Selection) {
		key, ok := extractDocumentKey(row)
		if !ok {
			skipped++
			return
		}
		items = append(items, e.extractRow(row, key))
	})

	e.logger.WithFields(logrus.Fields{
		"rows":    len(items),
		"skipped": skipped,
	}).Debug("Listing page extracted")

	return items, nil
}

func (e *ListingExtractor) extractRow(row *goquery.Selection, key string) models.ListItem {
	taxID, name := extractRecipient(row.Find(recipientSelector).First())

	rawAmount := cellText(row, amountSelector)
	amount, err := utils.ParseBRLAmount(rawAmount)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"chave": key,
			"valor": rawAmount,
		}).Debug("Unparseable amount, using zero")
		amount = 0
	}

	status, _ := row.Attr(statusAttribute)

	return models.ListItem{
		DataEmissao: cellText(row, issueDateSelector),
		Tomador: models.Tomador{
			CNPJ: taxID,
			Nome: name,
		},
		Competencia:      cellText(row, competenceSelector),
		MunicipioEmissor: cellText(row, municipalitySelector),
		Valor:            amount,
		Situacao:         strings.TrimSpace(status),
		Chave:            key,
	}
}

// extractDocumentKey returns the numeric tail of the first anchor pointing
// to a document page
func extractDocumentKey(row *goquery.Selection) (string, bool) {
	var key string
	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if match := documentKeyRegex.FindStringSubmatch(strings.TrimSpace(href)); len(match) == 2 {
			key = match[1]
			return false
		}
		return true
	})
	return key, key != ""
}

// extractRecipient splits the recipient cell into tax id and name. The name
// is the cell text without the tax id and its leading separator.
func extractRecipient(cell *goquery.Selection) (string, string) {
	full := utils.CleanText(cell.Text())
	taxID := utils.CleanText(cell.Find(recipientTaxIDElement).First().Text())

	name := full
	if taxID != "" {
		name = strings.Replace(full, taxID, "", 1)
	}
	name = strings.TrimLeft(name, " -–—")
	return taxID, strings.TrimSpace(name)
}

func cellText(row *goquery.Selection, selector string) string {
	return utils.CleanText(row.Find(selector).First().Text())
}

// parseHTML decodes the page using the declared or sniffed charset before
// handing it to goquery
func parseHTML(body io.Reader, contentType string) (*goquery.Document, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML: %w", err)
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		reader = bytes.NewReader(raw)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
