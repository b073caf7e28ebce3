package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/models"
	"github.com/nexconsult/nfse-api/internal/services"
	"github.com/nexconsult/nfse-api/internal/utils"
)

var documentKeyRegex = regexp.MustCompile(`^\d+$`)

// NFSeHandler exposes the portal operations over REST
type NFSeHandler struct {
	nfseService services.NFSeServiceInterface
	logger      *logrus.Logger
}

// NewNFSeHandler creates a new NFSe handler
func NewNFSeHandler(nfseService services.NFSeServiceInterface, logger *logrus.Logger) *NFSeHandler {
	return &NFSeHandler{
		nfseService: nfseService,
		logger:      logger,
	}
}

// Search handles document listing by issue date range
// @Summary Search issued NFSe
// @Description List the documents issued between two dates (YYYY-MM-DD, inclusive)
// @Tags NFSe
// @Produce json
// @Param data_inicio query string true "Start date" example(2024-01-01)
// @Param data_fim query string true "End date" example(2024-01-31)
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /nfse [get]
func (h *NFSeHandler) Search(c *gin.Context) {
	start := time.Now()
	requestID := c.GetString("request_id")

	from, to, err := parseDateRange(c.Query("data_inicio"), c.Query("data_fim"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid date range",
			Message:   err.Error(),
			Code:      models.ErrorCodeInvalidRequest,
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	items, err := h.nfseService.Search(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err, logrus.Fields{"data_inicio": c.Query("data_inicio"), "data_fim": c.Query("data_fim")})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"total":      len(items),
		"duration":   time.Since(start),
	}).Info("NFSe search completed")

	c.JSON(http.StatusOK, models.SearchResponse{Total: len(items), Notas: items})
}

// Detail handles a single document lookup
// @Summary Get NFSe detail
// @Description Download the document XML, store it and return the normalized record
// @Tags NFSe
// @Produce json
// @Param chave path string true "Document key"
// @Success 200 {object} models.DetailRecord
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /nfse/{chave} [get]
func (h *NFSeHandler) Detail(c *gin.Context) {
	key := c.Param("chave")
	if !h.validKey(c, key) {
		return
	}

	detail, err := h.nfseService.Detail(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, err, logrus.Fields{"chave": key})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// PDF handles the rendered document download
// @Summary Download NFSe PDF
// @Description Download the rendered document and return where it was stored
// @Tags NFSe
// @Produce json
// @Param chave path string true "Document key"
// @Success 200 {object} models.PDFResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /nfse/{chave}/pdf [get]
func (h *NFSeHandler) PDF(c *gin.Context) {
	key := c.Param("chave")
	if !h.validKey(c, key) {
		return
	}

	path, err := h.nfseService.PDF(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, err, logrus.Fields{"chave": key})
		return
	}

	c.JSON(http.StatusOK, models.PDFResponse{Chave: key, Arquivo: path})
}

func (h *NFSeHandler) validKey(c *gin.Context, key string) bool {
	if documentKeyRegex.MatchString(key) {
		return true
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:     "Invalid document key",
		Message:   "chave must contain only digits",
		Code:      models.ErrorCodeInvalidRequest,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
	return false
}

func (h *NFSeHandler) respondError(c *gin.Context, err error, fields logrus.Fields) {
	fields["request_id"] = c.GetString("request_id")
	h.logger.WithFields(fields).WithError(err).Error("NFSe operation failed")

	status, response := errorResponse(err)
	response.Timestamp = time.Now()
	response.Path = c.Request.URL.Path
	c.JSON(status, response)
}

// errorResponse maps a service error to an HTTP status and payload
func errorResponse(err error) (int, models.ErrorResponse) {
	var appErr *services.ApplicationError

	switch {
	case services.IsUnauthenticated(err):
		return http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Session expired",
			Message: "The portal session expired and could not be renewed",
			Code:    models.ErrorCodeSessionExpired,
		}
	case errors.As(err, &appErr):
		return http.StatusBadGateway, models.ErrorResponse{
			Error:   "Portal error",
			Message: appErr.Error(),
			Code:    models.ErrorCodePortalError,
		}
	default:
		return http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Internal server error",
			Message: "An unexpected error occurred while processing your request",
			Code:    models.ErrorCodeInternalError,
		}
	}
}

// parseDateRange parses two YYYY-MM-DD dates
func parseDateRange(from, to string) (time.Time, time.Time, error) {
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, errors.New("data_inicio and data_fim are required (YYYY-MM-DD)")
	}
	start, err := utils.ParseISODate(from)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("data_inicio must be a YYYY-MM-DD date")
	}
	end, err := utils.ParseISODate(to)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("data_fim must be a YYYY-MM-DD date")
	}
	return start, end, nil
}
