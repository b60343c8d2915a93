// Package server exposes scans, jobs and stored results over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hakim/reconaug/internal/config"
	"github.com/hakim/reconaug/internal/jobs"
	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/pipeline"
	"github.com/hakim/reconaug/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Orchestrator starts jobs on behalf of HTTP clients
type Orchestrator interface {
	StartScan(req pipeline.ScanRequest) (string, error)
	StartPortScan(host string) (string, error)
	StartHistoricalURLs(domain string) (string, error)
	Registry() *jobs.Registry
	ToolProbe() pipeline.Availability
}

// Store is the read side of the result store
type Store interface {
	ListAllScans() ([]*models.ScanMeta, error)
	GetScan(id string) (*models.Scan, error)
	GetHistoricalURLs(scanID string) ([]string, error)
	GetHost(hostID string) (*models.LiveHost, string, error)
	Stats() (*storage.Stats, error)
	Clear() error
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.ServerConfig
	orch       Orchestrator
	store      Store
	log        logrus.FieldLogger
}

// New creates a new server instance
func New(cfg config.ServerConfig, orch Orchestrator, store Store, logger logrus.FieldLogger) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Server{
		router: gin.New(),
		config: cfg,
		orch:   orch,
		store:  store,
		log:    logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures security and logging middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.router.Use(s.securityHeaders())

	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:  s.config.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
}

// securityHeaders adds security headers to all responses
func (s *Server) securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// requestLogger logs API requests as structured entries
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if path == "/health" || !strings.HasPrefix(path, "/api/") {
			return
		}

		entry := s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"client":  c.ClientIP(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
		} else {
			entry.Debug("Request")
		}
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/tools", s.handleTools)

		api.POST("/scan", s.handleStartScan)
		api.POST("/scan-ports", s.handleStartPortScan)
		api.POST("/historical-urls", s.handleStartHistoricalURLs)

		api.GET("/task/:id", s.handleTask)
		api.GET("/task/:id/events", s.handleTaskEvents)

		api.GET("/scans", s.handleListScans)
		api.GET("/scans/:id", s.handleGetScan)
		api.GET("/scans/:id/historical-urls", s.handleScanHistoricalURLs)
		api.GET("/hosts/:id/ports", s.handleHostPorts)

		api.GET("/debug/stats", s.handleStats)
		if s.config.EnableClear {
			api.POST("/debug/clear-database", s.handleClearDatabase)
		}
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.config.Listen,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: event streams stay open for the life of a scan
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	s.log.WithField("listen", s.config.Listen).Info("HTTP server started")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
