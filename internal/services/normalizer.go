package services

import (
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/models"
	"github.com/nexconsult/nfse-api/internal/xmltree"
)

const (
	documentRootPath = "NFSe"
	documentInfoPath = "NFSe.infNFSe"
	declarationPath  = "DPS.infDPS"
)

// Normalizer maps a parsed NFSe tree onto DetailRecord
type Normalizer struct {
	logger *logrus.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(logger *logrus.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize builds the detail record for tree. Trees without the NFSe and
// infNFSe elements come back unchanged inside a RawDetailRecord. It never fails.
func (n *Normalizer) Normalize(tree map[string]any, storedPath string) models.Detail {
	if !xmltree.Has(tree, documentRootPath) || !xmltree.Has(tree, documentInfoPath) {
		n.logger.WithField("arquivo_xml", storedPath).Warn("Unexpected NFSe layout, returning raw tree")
		return &models.RawDetailRecord{Raw: tree, ArquivoXML: storedPath}
	}

	info := xmltree.Get(tree, documentInfoPath)
	s := func(path string) *string { return xmltree.String(info, path) }

	record := &models.DetailRecord{
		Cabecalho: models.Cabecalho{
			ID:                    s("$.Id"),
			LocalEmissao:          s("xLocEmi"),
			LocalPrestacao:        s("xLocPrestacao"),
			Numero:                s("nNFSe"),
			CodigoLocalIncidencia: s("cLocIncid"),
			LocalIncidencia:       s("xLocIncid"),
			TributacaoNacional:    s("xTribNac"),
			DescricaoNBS:          s("xNBS"),
			VersaoAplicativo:      s("verAplic"),
			AmbienteGerador:       s("ambGer"),
			TipoEmissao:           s("tpEmis"),
			ProcessoEmissao:       s("procEmi"),
			Status:                s("cStat"),
			DataProcessamento:     s("dhProc"),
			NumeroDFSe:            s("nDFSe"),
		},
		Emitente: models.Emitente{
			CNPJ:               s("emit.CNPJ"),
			InscricaoMunicipal: s("emit.IM"),
			RazaoSocial:        s("emit.xNome"),
			Endereco: models.Endereco{
				Logradouro:      s("emit.enderNac.xLgr"),
				Numero:          s("emit.enderNac.nro"),
				Complemento:     s("emit.enderNac.xCpl"),
				Bairro:          s("emit.enderNac.xBairro"),
				CodigoMunicipio: s("emit.enderNac.cMun"),
				UF:              s("emit.enderNac.UF"),
				CEP:             s("emit.enderNac.CEP"),
			},
			Telefone: s("emit.fone"),
			Email:    s("emit.email"),
		},
		Valores: models.Valores{
			BaseCalculo:  s("valores.vBC"),
			Aliquota:     s("valores.pAliqAplic"),
			ISSQN:        s("valores.vISSQN"),
			TotalRetido:  s("valores.vTotalRet"),
			ValorLiquido: s("valores.vLiq"),
			Deducao:      s("valores.vCalcDR"),
		},
		ArquivoXML: storedPath,
	}

	if declaration := xmltree.Get(info, declarationPath); declaration != nil {
		record.DPS = normalizeDeclaration(declaration)
	}

	return record
}

func normalizeDeclaration(declaration any) *models.DPS {
	s := func(path string) *string { return xmltree.String(declaration, path) }

	dps := &models.DPS{
		ID:          s("$.Id"),
		Ambiente:    s("tpAmb"),
		DataEmissao: s("dhEmi"),
		Serie:       s("serie"),
		Numero:      s("nDPS"),
		Competencia: s("dCompet"),
		Prestador: models.Prestador{
			CNPJ:     s("prest.CNPJ"),
			Telefone: s("prest.fone"),
			Email:    s("prest.email"),
		},
		Tomador: models.TomadorDPS{
			CNPJ:        s("toma.CNPJ"),
			RazaoSocial: s("toma.xNome"),
			Endereco: models.Endereco{
				Logradouro:      s("toma.end.xLgr"),
				Numero:          s("toma.end.nro"),
				Bairro:          s("toma.end.xBairro"),
				CodigoMunicipio: s("toma.end.endNac.cMun"),
				CEP:             s("toma.end.endNac.CEP"),
			},
		},
		Servico: models.ServicoDPS{
			CodigoTributacaoNacional: s("serv.cServ.cTribNac"),
			Descricao:                s("serv.cServ.xDescServ"),
			CodigoNBS:                s("serv.cServ.cNBS"),
			LocalPrestacao:           s("serv.locPrest.cLocPrestacao"),
		},
		ValorDeclarado: s("valores.vServPrest.vServ"),
	}

	if xmltree.Has(declaration, "toma.CPF") {
		dps.Tomador.CPF = s("toma.CPF")
	}
	return dps
}
