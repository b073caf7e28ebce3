package services

import (
	"context"
	"time"

	"github.com/nexconsult/nfse-api/internal/models"
)

// NFSeServiceInterface defines the interface for the NFSe service
type NFSeServiceInterface interface {
	// Search lists documents issued in a date range
	Search(ctx context.Context, start, end time.Time) ([]models.ListItem, error)

	// Detail fetches one document by key
	Detail(ctx context.Context, key string) (models.Detail, error)

	// PDF downloads the rendered document by key
	PDF(ctx context.Context, key string) (string, error)

	// Health returns service health status
	Health() map[string]interface{}
}

// DownloadLedgerInterface defines the interface for the download ledger
type DownloadLedgerInterface interface {
	// Seen reports whether a key was already downloaded
	Seen(ctx context.Context, key string) bool

	// Record stores a completed download
	Record(ctx context.Context, entry DownloadEntry) error

	// Health returns ledger health status
	Health() map[string]interface{}
}

var (
	_ NFSeServiceInterface    = (*NFSeService)(nil)
	_ DownloadLedgerInterface = (*DownloadLedger)(nil)
	_ SessionProvider         = (*Authenticator)(nil)
	_ Storage                 = (*LocalStorage)(nil)
	_ Storage                 = (*S3Storage)(nil)
)
