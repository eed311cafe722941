// Package httpserver exposes the ops surface: Prometheus metrics, health
// probes, and read-only JSON views of pairs, positions, and the breaker.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/position"
	"github.com/crossvenue/prediction-arb/internal/riskbreaker"
	"github.com/crossvenue/prediction-arb/pkg/healthprobe"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server serves the ops endpoints.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Pairs         *matcher.PairStore
	Tracker       *position.Tracker
	Breaker       *riskbreaker.Breaker
}

// New builds the router and server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	h := newAPIHandler(cfg.Pairs, cfg.Tracker, cfg.Breaker, cfg.Logger)
	r.Get("/api/pairs", h.handlePairs)
	r.Get("/api/positions", h.handlePositions)
	r.Get("/api/stats", h.handleStats)
	r.Get("/api/breaker", h.handleBreaker)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{server: server, logger: cfg.Logger}
}

// Start serves until the listener closes. Blocking.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-stopping")
	return s.server.Shutdown(ctx)
}
