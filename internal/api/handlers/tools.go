package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/models"
	"github.com/nexconsult/nfse-api/internal/services"
)

// JSON-RPC 2.0 error codes
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
)

const toolProtocolVersion = "2024-11-05"

// Tool names
const (
	ToolSearch = "buscar_nfse"
	ToolDetail = "detalhar_nfse"
	ToolPDF    = "baixar_pdf_nfse"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content           []toolContent `json:"content"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError,omitempty"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type searchArguments struct {
	DataInicio string `json:"data_inicio"`
	DataFim    string `json:"data_fim"`
}

type keyArguments struct {
	Chave string `json:"chave"`
}

var toolDefinitions = []toolDefinition{
	{
		Name:        ToolSearch,
		Description: "Lista as NFSe emitidas entre duas datas (YYYY-MM-DD, inclusivas)",
		InputSchema: objectSchema(map[string]any{
			"data_inicio": map[string]any{"type": "string", "format": "date", "description": "Data inicial (YYYY-MM-DD)"},
			"data_fim":    map[string]any{"type": "string", "format": "date", "description": "Data final (YYYY-MM-DD)"},
		}, "data_inicio", "data_fim"),
	},
	{
		Name:        ToolDetail,
		Description: "Baixa o XML de uma NFSe, armazena o arquivo e retorna os dados estruturados",
		InputSchema: objectSchema(map[string]any{
			"chave": map[string]any{"type": "string", "pattern": `^\d+$`, "description": "Chave de acesso da NFSe"},
		}, "chave"),
	},
	{
		Name:        ToolPDF,
		Description: "Baixa o DANFSe (PDF) de uma NFSe e retorna o caminho do arquivo armazenado",
		InputSchema: objectSchema(map[string]any{
			"chave": map[string]any{"type": "string", "pattern": `^\d+$`, "description": "Chave de acesso da NFSe"},
		}, "chave"),
	},
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// ToolsHandler serves the tool surface as JSON-RPC 2.0 over HTTP
type ToolsHandler struct {
	nfseService services.NFSeServiceInterface
	version     string
	logger      *logrus.Logger
}

// NewToolsHandler creates a new tools handler
func NewToolsHandler(nfseService services.NFSeServiceInterface, version string, logger *logrus.Logger) *ToolsHandler {
	return &ToolsHandler{
		nfseService: nfseService,
		version:     version,
		logger:      logger,
	}
}

// Handle processes one JSON-RPC message
// @Summary Tool calls (JSON-RPC 2.0)
// @Description initialize, tools/list and tools/call for buscar_nfse, detalhar_nfse and baixar_pdf_nfse
// @Tags Tools
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /mcp [post]
func (h *ToolsHandler) Handle(c *gin.Context) {
	var req rpcRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusOK, rpcFailure(nil, rpcParseError, "parse error: "+err.Error()))
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		c.JSON(http.StatusOK, rpcFailure(req.ID, rpcInvalidRequest, "invalid JSON-RPC 2.0 request"))
		return
	}

	// Notifications get no response
	if len(req.ID) == 0 {
		c.Status(http.StatusAccepted)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"method":     req.Method,
	}).Debug("Tool request received")

	switch req.Method {
	case "initialize":
		c.JSON(http.StatusOK, rpcSuccess(req.ID, map[string]any{
			"protocolVersion": toolProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "nfse-api", "version": h.version},
		}))
	case "ping":
		c.JSON(http.StatusOK, rpcSuccess(req.ID, map[string]any{}))
	case "tools/list":
		c.JSON(http.StatusOK, rpcSuccess(req.ID, map[string]any{"tools": toolDefinitions}))
	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			c.JSON(http.StatusOK, rpcFailure(req.ID, rpcInvalidParams, "tools/call requires a tool name"))
			return
		}
		result, rpcErr := h.callTool(c.Request.Context(), c.GetString("request_id"), params)
		if rpcErr != nil {
			c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
			return
		}
		c.JSON(http.StatusOK, rpcSuccess(req.ID, result))
	default:
		c.JSON(http.StatusOK, rpcFailure(req.ID, rpcMethodNotFound, fmt.Sprintf("method %q not found", req.Method)))
	}
}

// callTool runs a tool. Invalid arguments are protocol errors; failures of
// the operation itself come back as an error result.
func (h *ToolsHandler) callTool(ctx context.Context, requestID string, params toolCallParams) (*toolResult, *rpcError) {
	log := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"tool":       params.Name,
	})

	var (
		value any
		err   error
	)

	switch params.Name {
	case ToolSearch:
		var args searchArguments
		if decodeErr := decodeArguments(params.Arguments, &args); decodeErr != nil {
			return nil, decodeErr
		}
		start, end, rangeErr := parseDateRange(args.DataInicio, args.DataFim)
		if rangeErr != nil {
			return nil, &rpcError{Code: rpcInvalidParams, Message: rangeErr.Error()}
		}
		var items []models.ListItem
		if items, err = h.nfseService.Search(ctx, start, end); err == nil {
			value = models.SearchResponse{Total: len(items), Notas: items}
		}

	case ToolDetail, ToolPDF:
		var args keyArguments
		if decodeErr := decodeArguments(params.Arguments, &args); decodeErr != nil {
			return nil, decodeErr
		}
		if !documentKeyRegex.MatchString(args.Chave) {
			return nil, &rpcError{Code: rpcInvalidParams, Message: "chave must contain only digits"}
		}
		if params.Name == ToolDetail {
			value, err = h.nfseService.Detail(ctx, args.Chave)
		} else {
			var path string
			if path, err = h.nfseService.PDF(ctx, args.Chave); err == nil {
				value = models.PDFResponse{Chave: args.Chave, Arquivo: path}
			}
		}

	default:
		return nil, &rpcError{Code: rpcInvalidParams, Message: fmt.Sprintf("unknown tool %q", params.Name)}
	}

	if err != nil {
		log.WithError(err).Warn("Tool call failed")
		_, response := errorResponse(err)
		return &toolResult{
			Content: []toolContent{{Type: "text", Text: fmt.Sprintf("%s: %s", response.Code, response.Message)}},
			IsError: true,
		}, nil
	}

	payload, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		log.WithError(marshalErr).Error("Failed to encode tool result")
		return &toolResult{
			Content: []toolContent{{Type: "text", Text: models.ErrorCodeInternalError + ": failed to encode result"}},
			IsError: true,
		}, nil
	}

	log.Info("Tool call completed")
	return &toolResult{
		Content:           []toolContent{{Type: "text", Text: string(payload)}},
		StructuredContent: value,
	}, nil
}

func decodeArguments(raw json.RawMessage, target any) *rpcError {
	if len(raw) == 0 {
		return &rpcError{Code: rpcInvalidParams, Message: "missing tool arguments"}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &rpcError{Code: rpcInvalidParams, Message: "invalid tool arguments: " + err.Error()}
	}
	return nil
}

func rpcSuccess(id json.RawMessage, result any) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func rpcFailure(id json.RawMessage, code int, message string) rpcResponse {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}
