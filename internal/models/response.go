package models

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error" example:"Session expired"`
	Message   string    `json:"message" example:"The portal session expired and could not be renewed"`
	Code      string    `json:"code,omitempty" example:"SESSION_EXPIRED"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Path      string    `json:"path" example:"/api/v1/nfse/123456"`
}

// Error codes returned by the API
const (
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
	ErrorCodeSessionExpired = "SESSION_EXPIRED"
	ErrorCodePortalError    = "PORTAL_ERROR"
	ErrorCodeInternalError  = "INTERNAL_ERROR"
)

// SearchResponse represents the result of a date range search
type SearchResponse struct {
	Total int        `json:"total" example:"2"`
	Notas []ListItem `json:"notas"`
}

// PDFResponse represents the result of a PDF download
type PDFResponse struct {
	Chave   string `json:"chave" example:"123456"`
	Arquivo string `json:"arquivo" example:"/var/lib/nfse/downloads/0b8e8f2c.pdf"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Version   string                 `json:"version" example:"1.0.0"`
	Services  map[string]ServiceInfo `json:"services"`
	Uptime    string                 `json:"uptime" example:"2h30m45s"`
}

// ServiceInfo represents individual service health
type ServiceInfo struct {
	Status    string    `json:"status" example:"healthy"`
	LastCheck time.Time `json:"last_check" example:"2024-01-15T10:30:00Z"`
	Error     string    `json:"error,omitempty"`
}
