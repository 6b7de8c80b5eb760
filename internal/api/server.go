// Package api provides the HTTP server exposing the metrics catalog and the
// schema-gated time-series query endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/windrose/meteoreg/internal/api/handlers"
	"github.com/windrose/meteoreg/internal/api/middleware"
	"github.com/windrose/meteoreg/internal/catalog"
	"github.com/windrose/meteoreg/internal/config"
	"github.com/windrose/meteoreg/internal/logging"
	"github.com/windrose/meteoreg/internal/store"
	"github.com/windrose/meteoreg/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

// Version is set at build time via ldflags.
var (
	Version = "dev"
	Commit  = ""
)

// Server is the meteoreg HTTP API server.
type Server struct {
	config    *config.Config
	catalog   *catalog.Catalog
	db        *store.DB
	readings  *store.ReadingsRepository
	telemetry *telemetry.Telemetry
	logger    *logging.Logger

	router     *mux.Router
	httpServer *http.Server
}

// New creates an API server over the given catalog and readings store. db
// and readings may be nil when the service runs catalog-only.
func New(cfg *config.Config, cat *catalog.Catalog, db *store.DB, readings *store.ReadingsRepository, tel *telemetry.Telemetry, logger *logging.Logger) *Server {
	s := &Server{
		config:    cfg,
		catalog:   cat,
		db:        db,
		readings:  readings,
		telemetry: tel,
		logger:    logger.WithComponent("api"),
		router:    mux.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.API.ListenAddr, cfg.API.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.corsHandler(),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	return s
}

// Router returns the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.corsHandler()
}

func (s *Server) corsHandler() http.Handler {
	if !s.config.API.CORS.Enabled {
		return s.router
	}
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(s.config.API.CORS.AllowedOrigins),
		gorillahandlers.AllowedMethods(s.config.API.CORS.AllowedMethods),
		gorillahandlers.AllowedHeaders(s.config.API.CORS.AllowedHeaders),
	)(s.router)
}

func (s *Server) setupMiddleware() {
	s.router.Use(
		middleware.Recovery(s.logger.Logger),
		middleware.RequestID(),
		middleware.Logging(s.logger.Logger),
		middleware.Telemetry(s.telemetry),
	)
}

func (s *Server) setupRoutes() {
	health := handlers.NewHealthHandler(s.pinger(), handlers.VersionInfo{
		Version: Version,
		Commit:  Commit,
	}, s.logger.Logger)

	// Operational endpoints stay outside the versioned API and outside auth.
	s.router.HandleFunc("/healthz", health.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/livez", health.Liveness).Methods(http.MethodGet)
	s.router.HandleFunc("/version", health.Version).Methods(http.MethodGet)
	if s.telemetry != nil {
		s.router.Handle("/metrics-prometheus", s.telemetry.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if s.config.API.Auth.Enabled {
		api.Use(middleware.APIKeyAuth(s.config.API.Auth.APIKeyHashes, s.logger.Logger))
	}

	cat := handlers.NewCatalogHandler(s.catalog, s.telemetry, s.logger.Logger)
	api.HandleFunc("/metrics", cat.ListMetrics).Methods(http.MethodGet)
	api.HandleFunc("/metrics/names", cat.ListMetricNames).Methods(http.MethodGet)
	api.HandleFunc("/metrics/{name}", cat.GetMetric).Methods(http.MethodGet)
	api.HandleFunc("/aggregated/metrics", cat.ListAggregatedMetrics).Methods(http.MethodGet)
	api.HandleFunc("/aggregated/metrics/names", cat.ListAggregatedMetricNames).Methods(http.MethodGet)

	if s.readings != nil {
		query := handlers.NewQueryHandler(s.catalog.Main, nil, s.readings, s.telemetry, s.logger.Logger)
		api.HandleFunc("/query", query.Readings).Methods(http.MethodGet)

		if s.catalog.Partial != nil {
			partial := handlers.NewQueryHandler(s.catalog.Aggregated, s.catalog.Partial.Names(), s.readings, s.telemetry, s.logger.Logger)
			api.HandleFunc("/aggregated/query", partial.PartialReadings).Methods(http.MethodGet)
		}

		watch := handlers.NewWatchHandler(s.catalog.Main, s.readings, s.logger.Logger)
		api.HandleFunc("/readings/watch", watch.Watch).Methods(http.MethodGet)
	}
}

func (s *Server) pinger() handlers.DatabasePinger {
	if s.db == nil {
		return nil
	}
	return s.db
}

// Start runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("API server listening",
			"addr", s.httpServer.Addr,
			"auth", s.config.API.Auth.Enabled)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("Shutting down API server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	return nil
}
