// GeoWatch - Security Fleet Monitoring and Geographic Visualization
// Copyright 2026 AuditSec
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auditsec/geowatch

// Package api serves the read surface of the engine over HTTP: the
// entity set, the derived view layers and pipeline health. All
// endpoints are read-only; mutation happens through the ingest
// pipeline alone.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/auditsec/geowatch/internal/logging"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host          string
	Port          int
	Timeout       time.Duration
	CORSOrigins   []string
	RateLimitReqs int
}

// Server is the read API HTTP server, run under the supervisor.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	log     zerolog.Logger
}

// NewServer creates the read API server.
func NewServer(cfg ServerConfig, handler *Handler) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		log:     logging.With().Str("component", "api").Logger(),
	}
}

// String identifies the server to its supervisor.
func (s *Server) String() string { return "api-server" }

// Routes builds the router. Split from Run so tests can drive the full
// middleware stack through httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(s.cfg.CORSOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(s.cfg.RateLimitReqs))
		r.Use(PrometheusMetrics())

		r.Get("/entities", s.handler.Entities)
		r.Get("/entities/{id}", s.handler.Entity)
		r.Get("/visible", s.handler.Visible)
		r.Get("/clusters", s.handler.Clusters)
		r.Get("/clusters/{id}/focus", s.handler.ClusterFocus)
		r.Get("/density", s.handler.Density)
		r.Get("/alerts", s.handler.Alerts)
		r.Get("/flows", s.handler.Flows)
		r.Get("/summary", s.handler.Summary)
		r.Get("/activity", s.handler.Activity)
		r.Get("/providers", s.handler.Providers)
		r.Get("/status", s.handler.Status)
	})

	r.Get("/api/v1/health", s.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Serve implements suture.Service: serve until ctx ends, then drain.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
		IdleTimeout:  2 * s.cfg.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Read API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn().Err(err).Msg("API shutdown did not drain cleanly")
	}
	return ctx.Err()
}
