// Package server provides the read-only HTTP API over a content registry.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/compendium/internal/config"
	"github.com/hyperjump/compendium/internal/registry"
	"go.uber.org/zap"
)

// Server is the HTTP server for the registry API.
type Server struct {
	registry      *registry.Registry
	config        *config.ServerConfig
	snippetLength int
	logger        *zap.Logger
	server        *http.Server
}

// NewServer creates a server over reg. snippetLength bounds search snippets.
func NewServer(
	reg *registry.Registry,
	cfg *config.ServerConfig,
	snippetLength int,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		registry:      reg,
		config:        cfg,
		snippetLength: snippetLength,
		logger:        logger,
	}
}

// Router returns the API handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/ids", s.handleIDs)
		r.Get("/search", s.handleSearch)
		r.Get("/categories", s.handleCategories)
		r.Get("/entries", s.handleListEntries)
		r.Get("/entries/{id}", s.handleGetEntry)
		r.Get("/entries/{id}/references", s.handleReferences)
		r.Get("/entries/{id}/related", s.handleRelated)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("module", s.registry.Name()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
