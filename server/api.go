package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aeroscan/aeroscan/auth"
	"github.com/aeroscan/aeroscan/flow"
	"github.com/aeroscan/aeroscan/security"
	"github.com/aeroscan/aeroscan/upstream"
)

// handleHealth reports liveness plus a best-effort view of the caller's
// credential. A missing or malformed credential degrades the report, never
// the status code.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	mode := string(auth.ModeNone)

	if cred, ok := s.resolver.ResolveSilent(r); ok {
		mode = string(cred.Mode)
		valid, err := s.upstream.CheckCredential(r.Context(), cred)
		if err != nil {
			s.logger.Warn("Credential probe failed", "error", err)
		}
		authenticated = valid
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"authenticated": authenticated,
		"mode":          mode,
	})
}

// proxyHandler builds a handler that forwards the request to one upstream
// path. Search-shaped responses additionally pass through the field
// normalization adapter.
func (s *Server) proxyHandler(path string, normalize bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.proxy(w, r, path, normalize)
	}
}

// handleTripDetail forwards GET /api/trips/{id} to the upstream trip lookup.
func (s *Server) handleTripDetail(w http.ResponseWriter, r *http.Request) {
	s.proxy(w, r, "/trips/"+chi.URLParam(r, "id"), false)
}

func (s *Server) proxy(w http.ResponseWriter, r *http.Request, path string, normalize bool) {
	cred, ferr := s.resolver.Resolve(r)
	if ferr != nil {
		s.writeError(w, ferr)
		return
	}

	start := time.Now()
	resp, err := s.upstream.Get(r.Context(), path, r.URL.Query(), cred)
	if s.inst != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		durationMs := time.Since(start).Seconds() * 1000
		s.inst.Metrics().RecordUpstreamCall(r.Context(), path, status, durationMs)
	}
	if err != nil {
		s.logger.Error("Upstream request failed", "path", path, "error", err)
		s.writeError(w, flow.ErrUpstream("upstream request failed", http.StatusBadGateway))
		return
	}

	body := resp.Body
	if normalize && resp.OK() {
		normalized, err := upstream.NormalizeSearchBody(body)
		if err != nil {
			s.logger.Warn("Could not normalize upstream response", "path", path, "error", err)
		} else {
			body = normalized
		}
	}

	security.SetSecurityHeaders(w)
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("Failed to write upstream response", "error", err)
	}
}
