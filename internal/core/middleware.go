package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"growthwatch/internal/types"
)

// statusRecorder remembers the status and size of a response so logging and
// metrics can observe them after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Status returns the written status, 200 if the handler wrote nothing.
func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

// Recoverer turns a panic anywhere below it into a logged stack trace and a
// 500 error envelope. It must be the outermost middleware.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			s.Logger.Error("panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", types.GetRequestID(r.Context()),
				"panic", fmt.Sprint(rvr),
				"stack", string(debug.Stack()),
			)

			// Encoding plain strings cannot fail, so this never re-panics.
			body, _ := json.Marshal(newErrorResponse(r, types.ErrCodeInternalUnexpected, "an unexpected error occurred", nil))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(body)
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestLogger emits one structured line per request. Values of headers
// named in redactedHeaders (case-insensitive) are replaced by [REDACTED].
// 5xx responses log at error level and 4xx at warn.
func RequestLogger(logger *slog.Logger, redactedHeaders []string) func(http.Handler) http.Handler {
	redact := make(map[string]bool, len(redactedHeaders))
	for _, h := range redactedHeaders {
		redact[http.CanonicalHeaderKey(h)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			status := rec.Status()
			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
			}
			if id := types.GetRequestID(r.Context()); id != "" {
				args = append(args, "request_id", id)
			}
			if len(r.Header) > 0 {
				headers := make([]any, 0, len(r.Header))
				for name, values := range r.Header {
					value := strings.Join(values, ", ")
					if redact[http.CanonicalHeaderKey(name)] {
						value = "[REDACTED]"
					}
					headers = append(headers, slog.String(name, value))
				}
				args = append(args, slog.Group("headers", headers...))
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request completed", args...)
		})
	}
}

// MetricsMiddleware reports latency per chi route pattern so query strings
// never become metric dimensions. Without a collector it is a pass-through.
func (s *Server) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		s.Metrics.RecordRequest(r.Method, routePattern(r), strconv.Itoa(rec.Status()), time.Since(start))
	})
}

// routePattern returns the matched chi pattern, or "unmatched" for 404s.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// SecurityHeadersMiddleware sets headers every JSON response carries. The API
// serves no HTML, so framing and sniffing are denied outright.
func (s *Server) SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// NewCORSMiddleware lets clinic dashboards call the API from the browser.
// A "*" entry allows every origin; otherwise the Origin header must match an
// entry exactly and is echoed back with Vary: Origin. Preflight requests are
// answered with 204 and never reach the router.
func NewCORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowOrigin := ""
			switch {
			case allowAll:
				allowOrigin = "*"
			case origin != "" && allowed[origin]:
				allowOrigin = origin
				w.Header().Add("Vary", "Origin")
			}

			if allowOrigin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowOrigin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
				h.Set("Access-Control-Expose-Headers", requestIDHeader)
				h.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
