// Package core provides the HTTP chassis for the bot. It builds a chi router
// that serves both the standalone webhook server and the Lambda Function URL
// entry point, and applies the cross-cutting middleware (panic recovery,
// request ids, timeouts, structured request logs) before requests reach
// handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"velobrief/internal/config"
)

// RouteRegistrar mounts handler routes on the router.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the chassis dependencies.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	HealthChecks []HealthCheck
	// SessionCount reports live conversations on /health. Optional.
	SessionCount func() int
	// RouteRegistrars are populated by the entry point so core does not
	// import handler packages.
	RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer validates critical dependencies and prepares an empty router.
// The caller mounts routes via MountRoutes after setting registrars.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases chassis resources. Sessions are in memory, so there is
// nothing to flush.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
