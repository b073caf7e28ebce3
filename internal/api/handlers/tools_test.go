package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/nfse-api/internal/logger"
	"github.com/nexconsult/nfse-api/internal/models"
	"github.com/nexconsult/nfse-api/internal/services"
)

type rpcReply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func callRPC(t *testing.T, service services.NFSeServiceInterface, body string) (int, rpcReply) {
	t.Helper()

	router := gin.New()
	router.POST("/mcp", NewToolsHandler(service, "1.0.0", logger.NewDiscard()).Handle)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var reply rpcReply
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	}
	return w.Code, reply
}

func decodeToolResult(t *testing.T, reply rpcReply) toolResult {
	t.Helper()
	require.Nil(t, reply.Error)
	var result toolResult
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	require.NotEmpty(t, result.Content)
	return result
}

func TestToolsHandler_Initialize(t *testing.T) {
	_, reply := callRPC(t, &fakeNFSeService{}, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	require.Nil(t, reply.Error)
	assert.JSONEq(t, "1", string(reply.ID))

	var result map[string]any
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	assert.Equal(t, toolProtocolVersion, result["protocolVersion"])
	assert.Equal(t, "nfse-api", result["serverInfo"].(map[string]any)["name"])
}

func TestToolsHandler_List(t *testing.T) {
	_, reply := callRPC(t, &fakeNFSeService{}, `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)

	var result struct {
		Tools []toolDefinition `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &result))

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{ToolSearch, ToolDetail, ToolPDF}, names)
}

func TestToolsHandler_Notification(t *testing.T) {
	code, _ := callRPC(t, &fakeNFSeService{}, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, code)
}

func TestToolsHandler_Search(t *testing.T) {
	service := &fakeNFSeService{items: []models.ListItem{{Chave: "9", Valor: 1}}}
	_, reply := callRPC(t, service, `{"jsonrpc":"2.0","id":2,"method":"tools/call",
		"params":{"name":"buscar_nfse","arguments":{"data_inicio":"2024-01-01","data_fim":"2024-01-31"}}}`)

	result := decodeToolResult(t, reply)
	assert.False(t, result.IsError)

	var payload models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload))
	assert.Equal(t, 1, payload.Total)
	assert.Equal(t, "9", payload.Notas[0].Chave)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), service.lastEnd)
}

func TestToolsHandler_DetailAndPDF(t *testing.T) {
	service := &fakeNFSeService{
		detail: &models.RawDetailRecord{Raw: map[string]any{"x": "1"}, ArquivoXML: "/d/a.xml"},
		pdf:    "/d/a.pdf",
	}

	_, reply := callRPC(t, service, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"detalhar_nfse","arguments":{"chave":"123"}}}`)
	result := decodeToolResult(t, reply)
	assert.JSONEq(t, `{"raw":{"x":"1"},"arquivo_xml":"/d/a.xml"}`, result.Content[0].Text)

	_, reply = callRPC(t, service, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"baixar_pdf_nfse","arguments":{"chave":"123"}}}`)
	result = decodeToolResult(t, reply)
	assert.JSONEq(t, `{"chave":"123","arquivo":"/d/a.pdf"}`, result.Content[0].Text)
}

func TestToolsHandler_CoreErrorIsToolResult(t *testing.T) {
	service := &fakeNFSeService{err: &services.ApplicationError{Op: "pdf", Message: "login page", Err: services.ErrUnauthenticatedSession}}

	code, reply := callRPC(t, service, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"baixar_pdf_nfse","arguments":{"chave":"123"}}}`)
	assert.Equal(t, http.StatusOK, code)

	result := decodeToolResult(t, reply)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, models.ErrorCodeSessionExpired)
}

func TestToolsHandler_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"jsonrpc":`, rpcParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, rpcInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, rpcMethodNotFound},
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"apagar","arguments":{}}}`, rpcInvalidParams},
		{"missing arguments", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"detalhar_nfse"}}`, rpcInvalidParams},
		{"bad date", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"buscar_nfse","arguments":{"data_inicio":"ontem","data_fim":"2024-01-01"}}}`, rpcInvalidParams},
		{"bad key", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"detalhar_nfse","arguments":{"chave":"../x"}}}`, rpcInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reply := callRPC(t, &fakeNFSeService{}, tt.body)
			require.NotNil(t, reply.Error)
			assert.Equal(t, tt.code, reply.Error.Code)
		})
	}
}
