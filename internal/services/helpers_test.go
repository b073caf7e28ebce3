package services

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/nexconsult/nfse-api/internal/config"
)

const testPassphrase = "segredo"

// newTestBundle creates a self-signed client certificate packed as PKCS#12
func newTestBundle(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "EMPRESA TESTE LTDA:12345678000190"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	bundle, err := pkcs12.Modern.Encode(key, cert, nil, testPassphrase)
	require.NoError(t, err)
	return bundle
}

type staticCredentials struct {
	creds *config.Credentials
	err   error
}

func (s staticCredentials) Credentials() (*config.Credentials, error) {
	return s.creds, s.err
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<NFSe xmlns="http://www.sped.fazenda.gov.br/nfse" versao="1.00">
  <infNFSe Id="NFS35503082212345678000190000000000001024011234567890">
    <xLocEmi>São Paulo</xLocEmi>
    <xLocPrestacao>São Paulo</xLocPrestacao>
    <nNFSe>1024</nNFSe>
    <cLocIncid>3550308</cLocIncid>
    <xLocIncid>São Paulo</xLocIncid>
    <xTribNac>Desenvolvimento de programas de computador</xTribNac>
    <verAplic>SefinNac_1.0</verAplic>
    <ambGer>2</ambGer>
    <tpEmis>1</tpEmis>
    <procEmi>1</procEmi>
    <cStat>100</cStat>
    <dhProc>2024-01-15T10:30:00-03:00</dhProc>
    <nDFSe>98765</nDFSe>
    <emit>
      <CNPJ>12345678000190</CNPJ>
      <IM>1234567</IM>
      <xNome>PRESTADORA EXEMPLO LTDA</xNome>
      <enderNac>
        <xLgr>Avenida Paulista</xLgr>
        <nro>1000</nro>
        <xBairro>Bela Vista</xBairro>
        <cMun>3550308</cMun>
        <UF>SP</UF>
        <CEP>01310100</CEP>
      </enderNac>
      <fone>11999990000</fone>
      <email>fiscal@prestadora.com.br</email>
    </emit>
    <valores>
      <vBC>15000.00</vBC>
      <pAliqAplic>2.00</pAliqAplic>
      <vISSQN>300.00</vISSQN>
      <vTotalRet>0.00</vTotalRet>
      <vLiq>15000.00</vLiq>
    </valores>
    <DPS versao="1.00">
      <infDPS Id="DPS355030821234567800019000001000000000000001">
        <tpAmb>2</tpAmb>
        <dhEmi>2024-01-15T10:00:00-03:00</dhEmi>
        <serie>1</serie>
        <nDPS>1</nDPS>
        <dCompet>2024-01-15</dCompet>
        <prest>
          <CNPJ>12345678000190</CNPJ>
          <fone>11999990000</fone>
        </prest>
        <toma>
          <CNPJ>11222333000181</CNPJ>
          <xNome>TOMADORA EXEMPLO SA</xNome>
          <end>
            <endNac>
              <cMun>3304557</cMun>
              <CEP>20040002</CEP>
            </endNac>
            <xLgr>Rua da Assembleia</xLgr>
            <nro>10</nro>
            <xBairro>Centro</xBairro>
          </end>
        </toma>
        <serv>
          <locPrest>
            <cLocPrestacao>3550308</cLocPrestacao>
          </locPrest>
          <cServ>
            <cTribNac>010101</cTribNac>
            <xDescServ>Desenvolvimento de sistema sob encomenda</xDescServ>
            <cNBS>115022000</cNBS>
          </cServ>
        </serv>
        <valores>
          <vServPrest>
            <vServ>15000.00</vServ>
          </vServPrest>
        </valores>
      </infDPS>
    </DPS>
  </infNFSe>
</NFSe>`

const sampleListingHTML = `<!DOCTYPE html>
<html>
<body>
<table class="table">
  <thead>
    <tr><th>Emissão</th><th>Tomador</th><th>Competência</th><th>Município</th><th>Valor</th><th></th></tr>
  </thead>
  <tbody>
    <tr data-situacao="100">
      <td class="td-data">15/01/2024</td>
      <td class="td-texto-grande">
        <span class="cnpj">11.222.333/0001-81</span> - TOMADORA
        EXEMPLO   SA
      </td>
      <td class="td-competencia">01/2024</td>
      <td class="td-municipio">São Paulo/SP</td>
      <td class="td-valor">R$ 15.000,00</td>
      <td><a href="/EmissorNacional/Notas/Visualizar/Index/1">ver</a>
          <a href="/EmissorNacional/Notas/Download/NFSe/35503082212345678000190000000000001024011234567890">xml</a></td>
    </tr>
    <tr data-situacao="101">
      <td class="td-data">20/01/2024</td>
      <td class="td-texto-grande"><span class="cnpj">44.555.666/0001-77</span> – OUTRA EMPRESA</td>
      <td class="td-competencia">01/2024</td>
      <td class="td-municipio">Campinas/SP</td>
      <td class="td-valor">--</td>
      <td><a href="https://www.nfse.gov.br/EmissorNacional/Notas/Download/NFSe/42">xml</a></td>
    </tr>
    <tr>
      <td colspan="6">Nenhum registro adicional</td>
    </tr>
  </tbody>
</table>
</body>
</html>`
