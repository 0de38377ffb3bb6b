// Package core is the HTTP chassis of the growthwatch API: a chi router with
// the global middleware chain, the JSON envelope helpers, request validation
// and the health endpoint. Endpoint handlers live in internal/api/handlers
// and are attached through RouteRegistrars, so core never imports them.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"growthwatch/internal/config"
)

// MetricsCollector receives one observation per served request.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a group of endpoints under /v1.
type RouteRegistrar func(r chi.Router)

// Server holds the router and everything the middleware needs.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector // optional

	HealthProbes      []HealthProbe
	V1RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer returns a Server with an empty router. Register probes and
// route groups, then call MountRoutes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("core: config must not be nil")
	case logger == nil:
		return nil, errors.New("core: logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler is what http.Server serves.
func (s *Server) Handler() http.Handler { return s.router }

// Router exposes the mux for tests and ad-hoc routes.
func (s *Server) Router() *chi.Mux { return s.router }

// Shutdown closes every probe that implements io.Closer, then the metrics
// collector when it is one, so buffered request metrics are flushed. Every
// close is attempted and the errors are joined.
func (s *Server) Shutdown(_ context.Context) error {
	var errs []error
	for _, p := range s.HealthProbes {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			s.Logger.Error("closing health probe", "probe", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("closing probe %s: %w", p.Name(), err))
		}
	}
	if c, ok := s.Metrics.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.Logger.Error("flushing request metrics", "error", err)
			errs = append(errs, fmt.Errorf("closing metrics: %w", err))
		}
	}
	s.Logger.Info("server shutdown complete", "probes", len(s.HealthProbes))
	return errors.Join(errs...)
}
