// Package http provides the admin HTTP server, the metrics server and their middleware.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/ledgersync/internal/config"
	"github.com/allisson/ledgersync/internal/metrics"
	outboxHTTP "github.com/allisson/ledgersync/internal/outbox/http"
)

// Connectivity reports whether the remote store can be reached.
type Connectivity interface {
	Online(ctx context.Context) bool
}

const (
	// adminWriteTimeout covers a sync trigger, which answers only after the whole run.
	adminWriteTimeout   = 5 * time.Minute
	metricsWriteTimeout = 15 * time.Second
)

// Server represents the admin HTTP server.
type Server struct {
	db     *sql.DB
	remote Connectivity
	server *http.Server
	logger *slog.Logger
	router *gin.Engine
}

// NewServer creates a new admin HTTP server.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newHTTPServer(host, port, adminWriteTimeout),
	}
}

// SetupRouter configures the Gin router with all routes and middleware.
// metricsProvider may be nil when metrics are disabled.
func (s *Server) SetupRouter(
	cfg *config.Config,
	outboxHandler *outboxHTTP.OutboxHandler,
	syncHandler *SyncHandler,
	remote Connectivity,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	s.remote = remote

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if cors := corsMiddleware(cfg.CORSOrigins(), s.logger); cors != nil {
		router.Use(cors)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		outbox := v1.Group("/outbox")
		outbox.GET("/stats", outboxHandler.StatsHandler)
		outbox.GET("/entries", outboxHandler.ListHandler)
		outbox.POST("/requeue", outboxHandler.RequeueHandler)
		outbox.DELETE("/failed", outboxHandler.ClearFailedHandler)

		v1.POST("/sync/:kind", syncHandler.TriggerHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the local store is usable. The remote store is
// reported but never makes the process unready.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{}
	ready := true

	if s.db == nil || s.db.PingContext(ctx) != nil {
		components["database"] = "error"
		ready = false
	} else {
		components["database"] = "ok"
	}

	if s.remote != nil {
		if s.remote.Online(ctx) {
			components["remote"] = "online"
		} else {
			components["remote"] = "offline"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

// Start starts the admin HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured")
	}
	s.server.Handler = s.router

	return listenAndServe(s.server, s.logger, "http server")
}

// Shutdown gracefully shuts down the admin HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func newHTTPServer(host string, port int, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// listenAndServe blocks until the server stops. A graceful shutdown is not an error.
func listenAndServe(server *http.Server, logger *slog.Logger, name string) error {
	logger.Info("starting "+name, slog.String("addr", server.Addr))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	return nil
}
