// Package docs holds the swagger document served under /swagger, registered with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/nfse": {
            "get": {
                "description": "List the documents issued between two dates (YYYY-MM-DD, inclusive)",
                "produces": ["application/json"],
                "tags": ["NFSe"],
                "summary": "Search issued NFSe",
                "parameters": [
                    {"type": "string", "example": "2024-01-01", "description": "Start date", "name": "data_inicio", "in": "query", "required": true},
                    {"type": "string", "example": "2024-01-31", "description": "End date", "name": "data_fim", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/nfse/{chave}": {
            "get": {
                "description": "Download the document XML, store it and return the normalized record",
                "produces": ["application/json"],
                "tags": ["NFSe"],
                "summary": "Get NFSe detail",
                "parameters": [
                    {"type": "string", "description": "Document key", "name": "chave", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DetailRecord"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/nfse/{chave}/pdf": {
            "get": {
                "description": "Download the rendered document and return where it was stored",
                "produces": ["application/json"],
                "tags": ["NFSe"],
                "summary": "Download NFSe PDF",
                "parameters": [
                    {"type": "string", "description": "Document key", "name": "chave", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PDFResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "SESSION_EXPIRED"},
                "error": {"type": "string", "example": "Session expired"},
                "message": {"type": "string", "example": "The portal session expired and could not be renewed"},
                "path": {"type": "string", "example": "/api/v1/nfse/123456"},
                "timestamp": {"type": "string", "example": "2024-01-15T10:30:00Z"}
            }
        },
        "models.ListItem": {
            "type": "object",
            "properties": {
                "chave": {"type": "string", "example": "35503082212345678000190000000000001024011234567890"},
                "competencia": {"type": "string", "example": "01/2024"},
                "data_emissao": {"type": "string", "example": "15/01/2024"},
                "municipio_emissor": {"type": "string", "example": "São Paulo/SP"},
                "situacao": {"type": "string", "example": "100"},
                "tomador": {"$ref": "#/definitions/models.Tomador"},
                "valor": {"type": "number", "example": 15000}
            }
        },
        "models.Tomador": {
            "type": "object",
            "properties": {
                "cnpj": {"type": "string", "example": "11.222.333/0001-81"},
                "nome": {"type": "string", "example": "EMPRESA EXEMPLO LTDA"}
            }
        },
        "models.SearchResponse": {
            "type": "object",
            "properties": {
                "notas": {"type": "array", "items": {"$ref": "#/definitions/models.ListItem"}},
                "total": {"type": "integer", "example": 2}
            }
        },
        "models.PDFResponse": {
            "type": "object",
            "properties": {
                "arquivo": {"type": "string", "example": "/var/lib/nfse/downloads/0b8e8f2c.pdf"},
                "chave": {"type": "string", "example": "123456"}
            }
        },
        "models.DetailRecord": {
            "type": "object",
            "properties": {
                "arquivo_xml": {"type": "string"},
                "cabecalho": {"type": "object"},
                "dps": {"type": "object"},
                "emitente": {"type": "object"},
                "valores": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "NFSe API",
	Description:      "Consulta e download de NFSe emitidas no Emissor Nacional, autenticado por certificado digital.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
