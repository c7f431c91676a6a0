// Package server wires the HTTP surface of the gateway: the OAuth bridge
// endpoints, the authenticated partner API proxy, and the profile trip store.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aeroscan/aeroscan/auth"
	"github.com/aeroscan/aeroscan/config"
	"github.com/aeroscan/aeroscan/flow"
	"github.com/aeroscan/aeroscan/instrumentation"
	"github.com/aeroscan/aeroscan/profile"
	"github.com/aeroscan/aeroscan/security"
	"github.com/aeroscan/aeroscan/upstream"
)

// Server coordinates the OAuth flow, the upstream proxy, and trip
// persistence. Handlers stay thin; the heavy lifting lives in the
// collaborating packages.
type Server struct {
	cfg       *config.Config
	states    flow.StateStore
	results   flow.ResultStore
	exchanger *flow.Exchanger // nil when OAuth is not configured
	upstream  *upstream.Client
	resolver  *auth.Resolver
	identity  *auth.IdentityResolver
	profiles  profile.Store
	limiter   *security.RateLimiter // nil disables rate limiting
	inst      *instrumentation.Instrumentation
	logger    *slog.Logger
}

// Options carries the collaborators a Server needs. Exchanger and
// RateLimiter are optional; everything else is required.
type Options struct {
	Config      *config.Config
	States      flow.StateStore
	Results     flow.ResultStore
	Exchanger   *flow.Exchanger
	Upstream    *upstream.Client
	Profiles    profile.Store
	RateLimiter *security.RateLimiter
	Inst        *instrumentation.Instrumentation
	Logger      *slog.Logger
}

// New creates a Server from its collaborators.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.States == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if opts.Results == nil {
		return nil, fmt.Errorf("result store is required")
	}
	if opts.Upstream == nil {
		return nil, fmt.Errorf("upstream client is required")
	}
	if opts.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	resolver := auth.NewResolver(opts.Config.APIKeyHeader)

	var userinfo auth.UserInfoFetcher
	if opts.Exchanger != nil {
		userinfo = opts.Exchanger
	}

	return &Server{
		cfg:       opts.Config,
		states:    opts.States,
		results:   opts.Results,
		exchanger: opts.Exchanger,
		upstream:  opts.Upstream,
		resolver:  resolver,
		identity:  auth.NewIdentityResolver(resolver, userinfo),
		profiles:  opts.Profiles,
		limiter:   opts.RateLimiter,
		inst:      opts.Inst,
		logger:    opts.Logger,
	}, nil
}

// Router builds the chi router with all gateway routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.metricsMiddleware)

	r.Route("/oauth", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Get("/status", s.handleOAuthStatus)
		r.Get("/start", s.handleOAuthStart)
		r.Get("/callback", s.handleOAuthCallback)
		r.Get("/result/{id}", s.handleOAuthResult)
		r.Post("/refresh", s.handleOAuthRefresh)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/search", s.proxyHandler("/search", true))
		r.Get("/availability", s.proxyHandler("/availability", true))
		r.Get("/trips/{id}", s.handleTripDetail)
		r.Get("/routes", s.proxyHandler("/routes", false))
	})

	r.Route("/profile", func(r chi.Router) {
		r.Get("/trips", s.handleGetTrips)
		r.Put("/trips", s.handlePutTrips)
	})

	return r
}

// writeJSON writes a JSON response with security headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	security.SetSecurityHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes a flow.Error as the JSON error body.
func (s *Server) writeError(w http.ResponseWriter, ferr *flow.Error) {
	s.writeJSON(w, ferr.Status, map[string]string{
		"error":   ferr.Code,
		"message": ferr.Message,
	})
}
