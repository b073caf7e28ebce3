package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/config"
	"github.com/nexconsult/nfse-api/internal/models"
	"github.com/nexconsult/nfse-api/internal/utils"
)

// windowDays is the widest date range the portal listing accepts
const windowDays = 30

// DateWindow is a closed range of calendar days
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Windows splits [start, end] into consecutive windows of at most 30 days.
// Times are truncated to the day; start after end yields no windows.
func Windows(start, end time.Time) []DateWindow {
	start, end = utils.TruncateDay(start), utils.TruncateDay(end)

	windows := make([]DateWindow, 0)
	for current := start; !current.After(end); {
		windowEnd := current.AddDate(0, 0, windowDays-1)
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, DateWindow{Start: current, End: windowEnd})
		current = windowEnd.AddDate(0, 0, 1)
	}
	return windows
}

// ListingCrawler walks the issued documents listing window by window
type ListingCrawler struct {
	baseURL   string
	userAgent string
	client    HTTPClient
	detector  SessionExpiryDetector
	extractor *ListingExtractor
	metrics   *PortalMetrics
	logger    *logrus.Logger
}

// NewListingCrawler creates a new listing crawler. The client is expected to
// follow redirects so a login redirect shows up in the final URL.
func NewListingCrawler(cfg config.PortalConfig, client HTTPClient, metrics *PortalMetrics, logger *logrus.Logger) *ListingCrawler {
	return &ListingCrawler{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    client,
		detector:  LoginRedirectDetector{LoginPath: loginPath},
		extractor: NewListingExtractor(logger),
		metrics:   metrics,
		logger:    logger,
	}
}

// Search returns every listed document issued in [start, end]. A failing
// window is logged and skipped; an expired session aborts the crawl.
func (c *ListingCrawler) Search(ctx context.Context, session Session, start, end time.Time) ([]models.ListItem, error) {
	windows := Windows(start, end)
	items := make([]models.ListItem, 0)

	for i, window := range windows {
		log := c.logger.WithFields(logrus.Fields{
			"window":      fmt.Sprintf("%d/%d", i+1, len(windows)),
			"data_inicio": utils.FormatPortalDate(window.Start),
			"data_fim":    utils.FormatPortalDate(window.End),
		})

		windowItems, err := c.fetchWindow(ctx, session, window)
		if err != nil {
			c.metrics.RecordWindow(false, 0)
			if IsUnauthenticated(err) {
				log.Warn("Portal session expired during listing")
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, newAppError("search", "listing interrupted", ctxErr)
			}
			log.WithError(err).Warn("Failed to fetch listing window, continuing")
			continue
		}

		c.metrics.RecordWindow(true, len(windowItems))
		log.WithField("rows", len(windowItems)).Debug("Listing window fetched")
		items = append(items, windowItems...)
	}

	c.logger.WithFields(logrus.Fields{
		"windows": len(windows),
		"total":   len(items),
	}).Info("Listing search completed")

	return items, nil
}

func (c *ListingCrawler) fetchWindow(ctx context.Context, session Session, window DateWindow) ([]models.ListItem, error) {
	const op = "search"

	query := url.Values{}
	query.Set("busca", "")
	query.Set("datainicio", utils.FormatPortalDate(window.Start))
	query.Set("datafim", utils.FormatPortalDate(window.End))
	target := c.baseURL + listingPath + "?" + query.Encode()

	req, err := newPortalRequest(ctx, target, session, c.userAgent)
	if err != nil {
		return nil, newAppError(op, "failed to build listing request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newAppError(op, "listing request failed", err)
	}
	defer resp.Body.Close()

	if c.detector.Expired(resp) {
		return nil, newUnauthenticatedError(op, expiryTarget(loginPath, resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAppError(op, fmt.Sprintf("portal answered listing with status %d", resp.StatusCode), nil)
	}

	items, err := c.extractor.Extract(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, newAppError(op, "failed to extract listing", err)
	}
	return items, nil
}
