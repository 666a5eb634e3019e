// Package server provides the HTTP API for the websearch service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/config"
	"github.com/finetunelab/websearch/internal/provider"
	"github.com/finetunelab/websearch/internal/search"
	"github.com/finetunelab/websearch/internal/telemetry"
)

// Server is the HTTP server for the websearch API.
type Server struct {
	orchestrator *search.Orchestrator
	registry     *provider.Registry
	tracker      *telemetry.Tracker
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	orchestrator *search.Orchestrator,
	registry *provider.Registry,
	tracker *telemetry.Tracker,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		registry:     registry,
		tracker:      tracker,
		config:       cfg,
		logger:       logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/providers", s.handleProviders)
	r.Get("/api/v1/telemetry", s.handleTelemetry)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
