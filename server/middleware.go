package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aeroscan/aeroscan/flow"
	"github.com/aeroscan/aeroscan/security"
)

type contextKey string

// requestIDKey carries the per-request ID through the request context
const requestIDKey contextKey = "request_id"

// RequestID extracts the request ID from a context. Returns "" when the
// request did not pass through the middleware.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// requestIDMiddleware tags every request with a random ID, echoed back in
// the X-Request-ID header for log correlation.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := security.GenerateRequestID()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records a request counter and duration per route
// pattern. No-op instruments when metrics are disabled.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.inst == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = r.URL.Path
		}
		durationMs := time.Since(start).Seconds() * 1000
		s.inst.Metrics().RecordHTTPRequest(r.Context(), r.Method, endpoint, rec.status, durationMs)
	})
}

// rateLimitMiddleware applies the per-IP limiter to the OAuth endpoints.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := security.ClientIP(r, s.cfg.TrustProxy)
		if !s.limiter.Allow(ip) {
			s.logger.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
			if s.inst != nil {
				s.inst.Metrics().RecordRateLimitExceeded(r.Context(), "ip")
			}
			s.writeError(w, flow.NewError("rate_limited", "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests))
			return
		}

		next.ServeHTTP(w, r)
	})
}
