// Package api serves the REST surface: backtests run as async jobs
// polled by ID, archived runs are listed and fetched, and strategies
// are enumerated. All /api/v1 routes except health sit behind the
// optional API key; health and metrics stay open for probes and
// scrapers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/velahq/vela/internal/api/job"
	"github.com/velahq/vela/internal/api/middleware"
	"github.com/velahq/vela/internal/api/response"
	"github.com/velahq/vela/internal/app"
	"github.com/velahq/vela/internal/metrics"
	"go.uber.org/zap"
)

// Server is the HTTP front end over an app.Runner.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	runner     *app.Runner
	jobs       *job.Store
	metrics    *metrics.Registry
	logger     *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	JobTTL      time.Duration
	MaxJobs     int
	MetricsPath string // empty disables the metrics endpoint
}

// NewServer creates the HTTP server. A nil metrics registry disables
// request metrics and the scrape endpoint.
func NewServer(cfg Config, runner *app.Runner, reg *metrics.Registry, logger ...*zap.Logger) *Server {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:     mux,
		runner:  runner,
		jobs:    job.NewStore(cfg.MaxJobs, cfg.JobTTL),
		metrics: reg,
		logger:  l,
	}
	s.routes(cfg)

	var handler http.Handler = mux
	if reg != nil {
		handler = metrics.HTTPMiddleware(reg)(handler)
	}
	handler = metrics.LoggingMiddleware(l)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// routes configures all HTTP routes.
func (s *Server) routes(cfg Config) {
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.Handle("POST /api/v1/backtests", auth(http.HandlerFunc(s.handleCreateBacktest)))
	s.mux.Handle("GET /api/v1/backtests/{id}", auth(http.HandlerFunc(s.handleGetBacktest)))
	s.mux.Handle("GET /api/v1/strategies", auth(http.HandlerFunc(s.handleListStrategies)))
	s.mux.Handle("GET /api/v1/signals", auth(http.HandlerFunc(s.handleSignals)))
	s.mux.Handle("GET /api/v1/runs", auth(http.HandlerFunc(s.handleListRuns)))
	s.mux.Handle("GET /api/v1/runs/{id}", auth(http.HandlerFunc(s.handleGetRun)))
	s.mux.Handle("DELETE /api/v1/runs/{id}", auth(http.HandlerFunc(s.handleDeleteRun)))

	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	if s.metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{"status": "ok"}
	for k, v := range s.runner.Stats() {
		info[k] = v
	}
	response.JSON(w, http.StatusOK, info)
}
