package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/config"
	"github.com/nexconsult/nfse-api/internal/models"
	"github.com/nexconsult/nfse-api/internal/xmltree"
)

var documentKeyFormat = regexp.MustCompile(`^\d+$`)

// Download kinds, used for storage extensions and metrics labels
const (
	kindXML = "xml"
	kindPDF = "pdf"
)

// DetailFetcher downloads document artifacts for a known key
type DetailFetcher struct {
	baseURL    string
	userAgent  string
	client     HTTPClient
	detector   SessionExpiryDetector
	storage    Storage
	normalizer *Normalizer
	metrics    *PortalMetrics
	logger     *logrus.Logger
}

// NewDetailFetcher creates a new detail fetcher. The client must not follow
// redirects so a login redirect is visible in the Location header.
func NewDetailFetcher(cfg config.PortalConfig, client HTTPClient, storage Storage, metrics *PortalMetrics, logger *logrus.Logger) *DetailFetcher {
	return &DetailFetcher{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		client:     client,
		detector:   LoginRedirectDetector{LoginPath: loginPath},
		storage:    storage,
		normalizer: NewNormalizer(logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchDetail downloads the document XML, stores it and returns the
// normalized record
func (f *DetailFetcher) FetchDetail(ctx context.Context, session Session, key string) (models.Detail, error) {
	const op = "detail"

	body, err := f.download(ctx, op, session, xmlDownloadPath, kindXML, key)
	if err != nil {
		return nil, err
	}

	tree, err := xmltree.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, newKeyError(op, key, "failed to parse document XML", err)
	}

	stored, err := f.storage.Store(ctx, body, kindXML)
	if err != nil {
		return nil, newKeyError(op, key, "failed to store document XML", err)
	}

	f.logger.WithFields(logrus.Fields{
		"chave":       key,
		"arquivo_xml": stored,
	}).Info("Document detail fetched")

	return f.normalizer.Normalize(tree, stored), nil
}

// FetchPDF downloads the rendered document and returns where it was stored
func (f *DetailFetcher) FetchPDF(ctx context.Context, session Session, key string) (string, error) {
	const op = "pdf"

	body, err := f.download(ctx, op, session, pdfDownloadPath, kindPDF, key)
	if err != nil {
		return "", err
	}

	stored, err := f.storage.Store(ctx, body, kindPDF)
	if err != nil {
		return "", newKeyError(op, key, "failed to store document PDF", err)
	}

	f.logger.WithFields(logrus.Fields{
		"chave":   key,
		"arquivo": stored,
	}).Info("Document PDF fetched")

	return stored, nil
}

func (f *DetailFetcher) download(ctx context.Context, op string, session Session, path, kind, key string) (body []byte, err error) {
	started := time.Now()
	defer func() {
		f.metrics.RecordDownload(kind, err == nil, time.Since(started))
	}()

	if !documentKeyFormat.MatchString(key) {
		return nil, newKeyError(op, key, "document key must be numeric", nil)
	}

	req, err := newPortalRequest(ctx, f.baseURL+path+key, session, f.userAgent)
	if err != nil {
		return nil, newKeyError(op, key, "failed to build download request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newKeyError(op, key, "download request failed", err)
	}
	defer resp.Body.Close()

	if f.detector.Expired(resp) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, newUnauthenticatedError(op, expiryTarget(loginPath, resp))
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, newKeyError(op, key, fmt.Sprintf("portal answered download with status %d", resp.StatusCode), nil)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, newKeyError(op, key, "failed to read download", err)
	}
	return body, nil
}
