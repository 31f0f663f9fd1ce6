// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/sheetpulse/internal/api/handler/api"
	"github.com/newthinker/sheetpulse/internal/api/job"
	"github.com/newthinker/sheetpulse/internal/api/response"
	"github.com/newthinker/sheetpulse/internal/app"
	"github.com/newthinker/sheetpulse/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for sheetpulse
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	jobs       *job.Store
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	JobTTL      time.Duration
	MaxJobs     int
	MetricsPath string // empty disables the metrics endpoint
}

// Dependencies holds the services the handlers read from
type Dependencies struct {
	App     *app.App
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, fmt.Errorf("app required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
		jobs:   job.NewStore(cfg.MaxJobs, cfg.JobTTL),
	}

	// Middleware runs outermost first: logging, then metrics
	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger.Named("http"))(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous sync and chat can be slow
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes(cfg, deps)
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	var observe apihandler.JobObserver
	if deps.Metrics != nil {
		observe = deps.Metrics.SetJobsActive
	}

	syncHandler := apihandler.NewSyncHandler(deps.App, s.jobs, observe, s.logger.Named("sync"))
	stocksHandler := apihandler.NewStocksHandler(deps.App)
	sourcesHandler := apihandler.NewSourcesHandler(deps.App)
	chatHandler := apihandler.NewChatHandler(deps.App)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/v1/sources", sourcesHandler.List)
	s.mux.HandleFunc("GET /api/v1/alerts", sourcesHandler.Alerts)

	s.mux.HandleFunc("POST /api/v1/sync", syncHandler.Trigger)
	s.mux.HandleFunc("GET /api/v1/sync/status", syncHandler.Status)
	s.mux.HandleFunc("GET /api/v1/jobs/{id}", syncHandler.Job)

	s.mux.HandleFunc("GET /api/v1/stocks", stocksHandler.List)
	s.mux.HandleFunc("GET /api/v1/analytics", stocksHandler.Analytics)
	s.mux.HandleFunc("GET /api/v1/insights", stocksHandler.Insights)

	s.mux.HandleFunc("POST /api/v1/chat", chatHandler.Ask)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
