package models

// ListItem represents one row of the portal's NFSe listing
type ListItem struct {
	DataEmissao      string  `json:"data_emissao" example:"15/01/2024"`
	Tomador          Tomador `json:"tomador"`
	Competencia      string  `json:"competencia" example:"01/2024"`
	MunicipioEmissor string  `json:"municipio_emissor" example:"São Paulo/SP"`
	Valor            float64 `json:"valor" example:"15000.00"`
	Situacao         string  `json:"situacao" example:"100"`
	Chave            string  `json:"chave" example:"35503082212345678000190000000000001024011234567890"`
}

// Tomador represents the recipient columns of a listing row
type Tomador struct {
	CNPJ string `json:"cnpj" example:"11.222.333/0001-81"`
	Nome string `json:"nome" example:"EMPRESA EXEMPLO LTDA"`
}

// Detail is implemented by the two shapes a downloaded NFSe XML can normalize to
type Detail interface {
	StoredXMLPath() string
}

// DetailRecord represents a normalized NFSe document. Every leaf is nil when
// the source XML does not carry it.
type DetailRecord struct {
	Cabecalho  Cabecalho `json:"cabecalho"`
	Emitente   Emitente  `json:"emitente"`
	Valores    Valores   `json:"valores"`
	DPS        *DPS      `json:"dps,omitempty"`
	ArquivoXML string    `json:"arquivo_xml"`
}

// StoredXMLPath returns where the raw XML was persisted
func (d *DetailRecord) StoredXMLPath() string { return d.ArquivoXML }

// Cabecalho holds document and processing metadata
type Cabecalho struct {
	ID                    *string `json:"id"`
	LocalEmissao          *string `json:"local_emissao"`
	LocalPrestacao        *string `json:"local_prestacao"`
	Numero                *string `json:"numero"`
	CodigoLocalIncidencia *string `json:"codigo_local_incidencia"`
	LocalIncidencia       *string `json:"local_incidencia"`
	TributacaoNacional    *string `json:"tributacao_nacional"`
	DescricaoNBS          *string `json:"descricao_nbs"`
	VersaoAplicativo      *string `json:"versao_aplicativo"`
	AmbienteGerador       *string `json:"ambiente_gerador"`
	TipoEmissao           *string `json:"tipo_emissao"`
	ProcessoEmissao       *string `json:"processo_emissao"`
	Status                *string `json:"status"`
	DataProcessamento     *string `json:"data_processamento"`
	NumeroDFSe            *string `json:"numero_dfse"`
}

// Emitente holds the issuer block
type Emitente struct {
	CNPJ               *string  `json:"cnpj"`
	InscricaoMunicipal *string  `json:"inscricao_municipal"`
	RazaoSocial        *string  `json:"razao_social"`
	Endereco           Endereco `json:"endereco"`
	Telefone           *string  `json:"telefone"`
	Email              *string  `json:"email"`
}

// Endereco represents a national address block
type Endereco struct {
	Logradouro      *string `json:"logradouro"`
	Numero          *string `json:"numero"`
	Complemento     *string `json:"complemento,omitempty"`
	Bairro          *string `json:"bairro"`
	CodigoMunicipio *string `json:"codigo_municipio"`
	UF              *string `json:"uf,omitempty"`
	CEP             *string `json:"cep"`
}

// Valores holds the computed amounts of the document
type Valores struct {
	BaseCalculo  *string `json:"base_calculo"`
	Aliquota     *string `json:"aliquota"`
	ISSQN        *string `json:"issqn"`
	TotalRetido  *string `json:"total_retido"`
	ValorLiquido *string `json:"valor_liquido"`
	Deducao      *string `json:"deducao"`
}

// DPS represents the service declaration embedded in the document
type DPS struct {
	ID             *string    `json:"id"`
	Ambiente       *string    `json:"ambiente"`
	DataEmissao    *string    `json:"data_emissao"`
	Serie          *string    `json:"serie"`
	Numero         *string    `json:"numero"`
	Competencia    *string    `json:"competencia"`
	Prestador      Prestador  `json:"prestador"`
	Tomador        TomadorDPS `json:"tomador"`
	Servico        ServicoDPS `json:"servico"`
	ValorDeclarado *string    `json:"valor_declarado"`
}

// Prestador is the reduced issuer block repeated inside the declaration
type Prestador struct {
	CNPJ     *string `json:"cnpj"`
	Telefone *string `json:"telefone"`
	Email    *string `json:"email"`
}

// TomadorDPS is the recipient as declared. CPF is only set for individuals.
type TomadorDPS struct {
	CNPJ        *string  `json:"cnpj"`
	CPF         *string  `json:"cpf,omitempty"`
	RazaoSocial *string  `json:"razao_social"`
	Endereco    Endereco `json:"endereco"`
}

// ServicoDPS describes the declared service
type ServicoDPS struct {
	CodigoTributacaoNacional *string `json:"codigo_tributacao_nacional"`
	Descricao                *string `json:"descricao"`
	CodigoNBS                *string `json:"codigo_nbs"`
	LocalPrestacao           *string `json:"local_prestacao"`
}

// RawDetailRecord is returned when the XML does not follow the expected layout
type RawDetailRecord struct {
	Raw        any    `json:"raw"`
	ArquivoXML string `json:"arquivo_xml"`
}

// StoredXMLPath returns where the raw XML was persisted
func (r *RawDetailRecord) StoredXMLPath() string { return r.ArquivoXML }
