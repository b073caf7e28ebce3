package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/config"
)

// Container holds all service dependencies
type Container struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	metrics     *PortalMetrics
	crawler     *ListingCrawler
	fetcher     *DetailFetcher

	Sessions    *SessionManager
	NFSeService NFSeServiceInterface
	Ledger      DownloadLedgerInterface
}

// NewContainer creates a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config:  cfg,
		logger:  logger,
		metrics: GlobalMetrics(),
	}

	// Initialize Redis client
	if err := container.initRedis(); err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Initialize services
	if err := container.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return container, nil
}

// initRedis initializes Redis client
func (c *Container) initRedis() error {
	if c.config.Redis.Host == "" {
		c.logger.Info("Redis not configured, using in-memory download ledger")
		return nil
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis connection failed, running with in-memory download ledger")
		_ = c.redisClient.Close()
		c.redisClient = nil
	} else {
		c.logger.Info("Redis connection established")
	}

	return nil
}

// initServices wires the portal clients, storage and session manager
func (c *Container) initServices() error {
	portal := c.config.Portal

	rootCAs, err := LoadRootCAs(portal.CACertPath)
	if err != nil {
		return fmt.Errorf("failed to load portal CA certificates: %w", err)
	}

	storage, err := NewStorage(context.Background(), c.config.Storage, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Listing follows redirects so an expired session ends on the login page,
	// downloads must not so the redirect itself is visible. Both trust the
	// same roots as the login.
	listingClient := NewPortalClient(ClientOptions{
		Timeout:         portal.HTTPTimeout,
		FollowRedirects: true,
		TLSConfig:       portalTLSConfig(rootCAs),
	})
	downloadClient := NewPortalClient(ClientOptions{
		Timeout:         portal.HTTPTimeout,
		FollowRedirects: false,
		TLSConfig:       portalTLSConfig(rootCAs),
	})

	authenticator := NewAuthenticator(portal, rootCAs, c.metrics, c.logger)
	c.Sessions = NewSessionManager(authenticator, config.NewFileCredentials(portal), c.metrics, c.logger)

	c.crawler = NewListingCrawler(portal, listingClient, c.metrics, c.logger)
	c.fetcher = NewDetailFetcher(portal, downloadClient, storage, c.metrics, c.logger)
	c.NFSeService = NewNFSeService(c.Sessions, c.crawler, c.fetcher, c.logger)

	c.Ledger = NewDownloadLedger(c.redisClient, c.config.Redis.LedgerTTL, c.logger)

	return nil
}

// portalTLSConfig is the client TLS setup for cookie-authenticated portal
// requests. A nil pool uses the system roots.
func portalTLSConfig(rootCAs *x509.CertPool) *tls.Config {
	return &tls.Config{
		RootCAs:    rootCAs,
		MinVersion: tls.VersionTLS12,
	}
}

// Close closes all service connections
func (c *Container) Close() error {
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

// Health checks the health of all services
func (c *Container) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if c.Ledger != nil {
		for name, status := range c.Ledger.Health() {
			health[name] = status
		}
	}
	if c.NFSeService != nil {
		health["nfse"] = c.NFSeService.Health()
	}

	return health
}

// GetMetrics returns the metrics recorder
func (c *Container) GetMetrics() *PortalMetrics {
	return c.metrics
}
