package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// defaultHTTPTimeout bounds token endpoint and userinfo calls
	defaultHTTPTimeout = 30 * time.Second

	// maxUserInfoBody caps the userinfo response body read
	maxUserInfoBody = 1 << 20 // 1 MiB
)

// ExchangerConfig holds the upstream OAuth endpoint configuration.
type ExchangerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string

	// HTTPClient is an optional custom client for token endpoint requests.
	// Defaults to a 30s-timeout client.
	HTTPClient *http.Client
}

// Exchanger performs authorization-code and refresh-token exchanges against
// the upstream OAuth endpoint.
type Exchanger struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	now         func() time.Time
}

// TokenExchangeError is a non-2xx response from the upstream token endpoint.
// Message carries the upstream error_description or error field when present.
type TokenExchangeError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed (status %d): %s", e.StatusCode, e.Message)
}

// NewExchanger creates a token exchange client.
func NewExchanger(cfg ExchangerConfig) (*Exchanger, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("auth and token endpoint URLs are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Exchanger{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  httpClient,
		now:         time.Now,
	}, nil
}

// SetClock overrides the time source. Intended for tests.
func (e *Exchanger) SetClock(now func() time.Time) {
	e.now = now
}

// AuthCodeURL generates the upstream consent URL carrying the given state.
func (e *Exchanger) AuthCodeURL(state string) string {
	return e.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*TokenRecord, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	token, err := e.config.Exchange(ctx, code)
	if err != nil {
		return nil, asExchangeError(err)
	}

	return e.record(token, ""), nil
}

// Refresh trades a refresh token for fresh tokens. The prior refresh token is
// preserved when the upstream omits a new one.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*TokenRecord, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	src := e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, asExchangeError(err)
	}

	return e.record(token, refreshToken), nil
}

// FetchUserInfo retrieves identity details for an access token. This is
// best-effort enrichment: callers treat any error as non-fatal and surface
// user: null instead of failing the flow.
func (e *Exchanger) FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	if e.userInfoURL == "" {
		return nil, fmt.Errorf("userinfo endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBody)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}

	return info, nil
}

// record converts an oauth2.Token into the client-facing TokenRecord,
// anchoring ObtainedAt on the exchanger's clock.
func (e *Exchanger) record(token *oauth2.Token, priorRefreshToken string) *TokenRecord {
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = priorRefreshToken
	}

	scope, _ := token.Extra("scope").(string)

	return newTokenRecord(token.AccessToken, refresh, token.TokenType, scope, token.ExpiresIn, e.now())
}

// asExchangeError maps oauth2 retrieval failures to TokenExchangeError,
// preferring the upstream's error_description, then its error code, then a
// generic message with the status code.
func asExchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return err
	}

	msg := rerr.ErrorDescription
	if msg == "" {
		msg = rerr.ErrorCode
	}

	status := 0
	if rerr.Response != nil {
		status = rerr.Response.StatusCode
	}
	if msg == "" {
		msg = fmt.Sprintf("token endpoint returned status %d", status)
	}

	return &TokenExchangeError{StatusCode: status, Message: msg}
}
