package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/models"
)

// NFSeService runs the portal operations under the session manager, so every
// call logs in on demand and survives one session expiry
type NFSeService struct {
	sessions *SessionManager
	crawler  *ListingCrawler
	fetcher  *DetailFetcher
	logger   *logrus.Logger
}

// NewNFSeService creates a new NFSe service
func NewNFSeService(sessions *SessionManager, crawler *ListingCrawler, fetcher *DetailFetcher, logger *logrus.Logger) *NFSeService {
	return &NFSeService{
		sessions: sessions,
		crawler:  crawler,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Search lists the documents issued between start and end, inclusive
func (s *NFSeService) Search(ctx context.Context, start, end time.Time) ([]models.ListItem, error) {
	return Call(ctx, s.sessions, func(ctx context.Context, session Session) ([]models.ListItem, error) {
		return s.crawler.Search(ctx, session, start, end)
	})
}

// Detail fetches and normalizes one document
func (s *NFSeService) Detail(ctx context.Context, key string) (models.Detail, error) {
	return Call(ctx, s.sessions, func(ctx context.Context, session Session) (models.Detail, error) {
		return s.fetcher.FetchDetail(ctx, session, key)
	})
}

// PDF downloads the rendered document and returns its stored location
func (s *NFSeService) PDF(ctx context.Context, key string) (string, error) {
	return Call(ctx, s.sessions, func(ctx context.Context, session Session) (string, error) {
		return s.fetcher.FetchPDF(ctx, session, key)
	})
}

// Health returns service health status
func (s *NFSeService) Health() map[string]interface{} {
	session := "none"
	if s.sessions.Cached() {
		session = "cached"
	}
	return map[string]interface{}{
		"status":  "healthy",
		"portal":  s.crawler.baseURL,
		"session": session,
	}
}
