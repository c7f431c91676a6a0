package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aeroscan/aeroscan/flow"
	"github.com/aeroscan/aeroscan/security"
)

// handleOAuthStatus reports whether the OAuth bridge is configured, without
// leaking the secret values themselves.
func (s *Server) handleOAuthStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"enabled":         s.cfg.OAuthEnabled(),
		"hasClientId":     s.cfg.OAuthClientID != "",
		"hasClientSecret": s.cfg.OAuthClientSecret != "",
		"redirectUri":     s.cfg.OAuthRedirectURL,
	})
}

// handleOAuthStart creates a fresh CSRF state and redirects the browser to
// the provider's consent page.
func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if s.exchanger == nil {
		missing := strings.Join(s.cfg.MissingOAuthSettings(), ", ")
		s.writeError(w, flow.ErrConfig(fmt.Sprintf("OAuth is not configured: missing %s", missing)))
		return
	}

	origin := flow.SanitizeOrigin(r.URL.Query().Get("origin"))

	state, err := s.states.CreateState(r.Context(), origin)
	if err != nil {
		s.logger.Error("Failed to create OAuth state", "error", err)
		s.writeError(w, flow.ErrInternal("Failed to start authorization flow"))
		return
	}

	if s.inst != nil {
		s.inst.Metrics().RecordFlowStarted(r.Context())
	}
	s.logger.Info("OAuth flow started", "origin", origin, "request_id", RequestID(r.Context()))

	http.Redirect(w, r, s.exchanger.AuthCodeURL(state), http.StatusFound)
}

// handleOAuthCallback completes the authorization code flow. Every outcome,
// success or failure, is stored as a one-time result and delivered to the
// opener through the rendered page; the endpoint itself always answers 200.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Consume the state first: it binds the callback to a flow we started
	// and recovers the initiating page's origin.
	targetOrigin := ""
	stateOK := false
	if state := q.Get("state"); state != "" {
		entry, err := s.states.ConsumeState(r.Context(), state)
		switch {
		case err == nil:
			targetOrigin = entry.Origin
			stateOK = true
		case errors.Is(err, flow.ErrStateNotFound):
			s.logger.Warn("OAuth callback with unknown state")
		default:
			s.logger.Error("Failed to consume OAuth state", "error", err)
		}
	}

	if errCode := q.Get("error"); errCode != "" {
		msg := q.Get("error_description")
		if msg == "" {
			msg = errCode
		}
		s.finishCallback(w, r, targetOrigin, flow.ResultPayload{Success: false, Error: msg})
		return
	}

	if !stateOK {
		s.finishCallback(w, r, targetOrigin, flow.ResultPayload{Success: false, Error: "invalid or expired state"})
		return
	}

	code := q.Get("code")
	if code == "" {
		s.finishCallback(w, r, targetOrigin, flow.ResultPayload{Success: false, Error: "missing authorization code"})
		return
	}

	if s.exchanger == nil {
		s.finishCallback(w, r, targetOrigin, flow.ResultPayload{Success: false, Error: "OAuth is not configured"})
		return
	}

	token, err := s.exchanger.Exchange(r.Context(), code)
	if s.inst != nil {
		s.inst.Metrics().RecordCodeExchange(r.Context(), err == nil)
	}
	if err != nil {
		s.logger.Warn("Authorization code exchange failed", "error", err)
		s.finishCallback(w, r, targetOrigin, flow.ResultPayload{Success: false, Error: err.Error()})
		return
	}

	// Enrichment only. A failed userinfo lookup never fails the flow.
	user, err := s.exchanger.FetchUserInfo(r.Context(), token.AccessToken)
	if err != nil {
		s.logger.Warn("Userinfo lookup failed", "error", err)
		user = nil
	}

	s.finishCallback(w, r, targetOrigin, flow.ResultPayload{Success: true, Token: token, User: user})
}

// finishCallback stores the flow outcome and renders the relay page.
func (s *Server) finishCallback(w http.ResponseWriter, r *http.Request, targetOrigin string, payload flow.ResultPayload) {
	if s.inst != nil {
		s.inst.Metrics().RecordCallbackProcessed(r.Context(), payload.Success)
	}

	resultID, err := s.results.CreateResult(r.Context(), payload, targetOrigin)
	if err != nil {
		s.logger.Error("Failed to store OAuth result", "error", err)
		s.writeError(w, flow.ErrInternal("Failed to store authorization result"))
		return
	}

	s.logger.Info("OAuth callback processed",
		"success", payload.Success,
		"origin", targetOrigin,
		"request_id", RequestID(r.Context()))

	security.SetCallbackPageHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := flow.RenderCallbackPage(w, resultID, targetOrigin); err != nil {
		s.logger.Error("Failed to render callback page", "error", err)
	}
}

// handleOAuthResult hands out a stored flow outcome exactly once.
func (s *Server) handleOAuthResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	payload, err := s.results.ConsumeResult(r.Context(), id)
	if s.inst != nil {
		s.inst.Metrics().RecordResultConsumed(r.Context(), err == nil)
	}
	if err != nil {
		if !errors.Is(err, flow.ErrResultNotFound) {
			s.logger.Error("Failed to consume OAuth result", "error", err)
		}
		s.writeError(w, flow.ErrNotFound("result not found or already retrieved"))
		return
	}

	s.writeJSON(w, http.StatusOK, payload)
}

// refreshRequest is the POST /oauth/refresh body.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// handleOAuthRefresh exchanges a refresh token for a fresh token record.
func (s *Server) handleOAuthRefresh(w http.ResponseWriter, r *http.Request) {
	if s.exchanger == nil {
		missing := strings.Join(s.cfg.MissingOAuthSettings(), ", ")
		s.writeError(w, flow.ErrConfig(fmt.Sprintf("OAuth is not configured: missing %s", missing)))
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, flow.ErrBadRequest("invalid JSON body"))
		return
	}
	if req.RefreshToken == "" {
		s.writeError(w, flow.ErrBadRequest("refreshToken is required"))
		return
	}

	token, err := s.exchanger.Refresh(r.Context(), req.RefreshToken)
	if s.inst != nil {
		s.inst.Metrics().RecordTokenRefresh(r.Context(), err == nil)
	}
	if err != nil {
		var xerr *flow.TokenExchangeError
		if errors.As(err, &xerr) {
			s.writeError(w, flow.ErrUpstream(xerr.Message, xerr.StatusCode))
			return
		}
		s.logger.Error("Token refresh failed", "error", err)
		s.writeError(w, flow.ErrInternal("Failed to refresh token"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
	})
}
