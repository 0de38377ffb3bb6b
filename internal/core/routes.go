package core

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"growthwatch/internal/types"
)

const (
	// defaultRequestTimeout applies when the configuration carries no timeout.
	defaultRequestTimeout = 29 * time.Second

	requestIDHeader = "X-Request-Id"

	// maxRequestIDLength guards logs against oversized client-supplied IDs.
	maxRequestIDLength = 128
)

// defaultRedactedHeaders are masked in request logs.
var defaultRedactedHeaders = []string{"Authorization", "Cookie", "X-Api-Key"}

// MountRoutes installs the middleware stack, GET /health and the /v1 group.
// Unmatched paths and methods get the standard JSON error envelope.
func (s *Server) MountRoutes() {
	s.router.Use(s.middlewareStack()...)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "no such endpoint: "+r.URL.Path, nil))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, r, http.StatusMethodNotAllowed, newErrorResponse(r, types.ErrCodeValidationMethodNotAllowed,
			r.Method+" is not supported on "+r.URL.Path, nil))
	})

	s.router.Get("/health", s.HandleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		for _, register := range s.V1RouteRegistrars {
			register(r)
		}
	})
}

// middlewareStack lists the global middleware outermost first. The recoverer
// must wrap everything; the request ID must exist before anything logs; the
// metrics recorder sits innermost so it sees the resolved route pattern.
func (s *Server) middlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		s.Recoverer,
		ContextTimeoutMiddleware(s.requestTimeout()),
		RequestIDMiddleware,
		s.SecurityHeadersMiddleware,
		RequestLogger(s.Logger, defaultRedactedHeaders),
		NewCORSMiddleware(s.corsAllowedOrigins()),
		s.MetricsMiddleware,
	}
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config == nil || s.Config.Server.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return s.Config.Server.RequestTimeout
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config == nil || len(s.Config.Server.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.Config.Server.CORSAllowedOrigins
}

// ContextTimeoutMiddleware gives every request a deadline of d.
func ContextTimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware adopts the caller's X-Request-Id when it is present
// and reasonably short, and otherwise mints a UUID. The ID is put on the
// context and echoed in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), id)))
	})
}
