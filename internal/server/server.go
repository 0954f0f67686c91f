// Package server provides the HTTP server and routing for Tradewinds.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/avramidis/tradewinds/internal/di"
)

// Config holds server configuration.
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container
}

// Server is the HTTP dispatch surface over the analytics container.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	container *di.Container
}

// New creates a new HTTP server wired to the container's services.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		container: cfg.Container,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(log zerolog.Logger) {
	s.router.Get("/health", s.handleHealth)

	dataHandlers := NewDataHandlers(
		s.container.Client,
		s.container.Harvester,
		s.container.Records,
		s.container.GroundPrices,
		s.container.Budget,
		log,
	)
	intelligenceHandlers := NewIntelligenceHandlers(
		s.container.Records,
		s.container.Pricing,
		s.container.Flow,
		s.container.Supply,
		s.container.Counterparty,
		s.container.Corridor,
		s.container.Signals,
		log,
	)
	systemHandlers := NewSystemHandlers(s.container.Records, s.container.Budget, log)

	s.router.Route("/api", func(r chi.Router) {
		dataHandlers.RegisterRoutes(r)
		intelligenceHandlers.RegisterRoutes(r)
		systemHandlers.RegisterRoutes(r)
	})
}

// handleHealth is the liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.log, w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tradewinds",
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
