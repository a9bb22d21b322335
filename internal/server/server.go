package server

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"leasedesk/internal/config"
	"leasedesk/internal/database"
	"leasedesk/internal/handlers"
	"leasedesk/internal/metrics"
)

// Server represents the application server
type Server struct {
	echo      *echo.Echo
	db        *sqlx.DB
	store     *database.Store
	config    *config.Config
	logger    zerolog.Logger
	processor handlers.Processor
	sender    handlers.Dispatcher
	metrics   *metrics.Metrics
}

// New creates a new server instance
func New(cfg *config.Config, db *sqlx.DB, store *database.Store, processor handlers.Processor, sender handlers.Dispatcher, m *metrics.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		config:    cfg,
		db:        db,
		store:     store,
		processor: processor,
		sender:    sender,
		metrics:   m,
		logger:    logger,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.HideBanner = true

	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// Health and metrics endpoints at root level for monitoring
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.db))
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Inbound provider webhook
	s.echo.POST("/webhooks/postmark", handlers.PostmarkWebhookHandler(s.config.WebhookSecret, s.processor, s.metrics))

	// API endpoints under /api prefix
	api := s.echo.Group("/api")
	api.GET("/", handlers.RootHandler(s.config.Version))
	api.POST("/emails/send", handlers.SendEmailHandler(s.sender))
	api.GET("/threads", handlers.ListThreadsHandler(s.store))
	api.GET("/threads/:id/messages", handlers.ThreadMessagesHandler(s.store))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}
