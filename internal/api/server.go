package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/nexconsult/nfse-api/internal/api/handlers"
	"github.com/nexconsult/nfse-api/internal/api/middleware"
	"github.com/nexconsult/nfse-api/internal/config"
	"github.com/nexconsult/nfse-api/internal/services"

	_ "github.com/nexconsult/nfse-api/docs"
)

// Version is reported by the health endpoints and the tool handshake
const Version = "1.0.0"

// Dependencies are the collaborators the HTTP surface needs
type Dependencies struct {
	NFSeService services.NFSeServiceInterface
	Health      handlers.HealthChecker
	Metrics     middleware.RequestRecorder
	Gatherer    prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	Router      *gin.Engine
	config      *config.Config
	logger      *logrus.Logger
	deps        Dependencies
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, deps Dependencies) *Server {
	server := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	server.setupRouter()
	return server
}

// NewContainerDependencies adapts a service container to Dependencies
func NewContainerDependencies(container *services.Container) Dependencies {
	return Dependencies{
		NFSeService: container.NFSeService,
		Health:      container,
		Metrics:     container.GetMetrics(),
		Gatherer:    prometheus.DefaultGatherer,
	}
}

// setupRouter configures the router with all routes and middleware
func (s *Server) setupRouter() {
	s.Router = gin.New()

	// Global middleware
	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())
	if s.deps.Metrics != nil {
		s.Router.Use(middleware.Metrics(s.deps.Metrics))
	}

	// Health and metrics endpoints (no rate limiting)
	healthHandler := handlers.NewHealthHandler(s.deps.Health, Version, s.logger)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/health/ready", healthHandler.GetReadiness)
	s.Router.GET("/health/live", healthHandler.GetLiveness)
	s.Router.GET("/metrics", handlers.NewMetricsHandler(s.deps.Gatherer))

	// Swagger documentation
	if s.config.Server.Environment != "production" {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	s.rateLimiter = middleware.NewRateLimiter(s.config.Security.RateLimit)
	limited := s.Router.Group("/", s.rateLimiter.Middleware())

	// Tool surface
	limited.POST("/mcp", handlers.NewToolsHandler(s.deps.NFSeService, Version, s.logger).Handle)

	// API v1 routes
	v1 := limited.Group("/api/v1")
	{
		nfseHandler := handlers.NewNFSeHandler(s.deps.NFSeService, s.logger)
		nfse := v1.Group("/nfse")
		{
			nfse.GET("", nfseHandler.Search)
			nfse.GET("/:chave", nfseHandler.Detail)
			nfse.GET("/:chave/pdf", nfseHandler.PDF)
		}
	}

	// 404 handler
	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not Found",
			"message":   "The requested resource was not found",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
		})
	})

	// 405 handler
	s.Router.HandleMethodNotAllowed = true
	s.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":     "Method Not Allowed",
			"message":   "The requested method is not allowed for this resource",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		})
	})
}

// Close releases background resources held by the server
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
