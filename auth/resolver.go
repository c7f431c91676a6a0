// Package auth resolves inbound request credentials into upstream
// authorization headers and stable owner identities. Requests authenticate
// with exactly one of a partner API key or an OAuth bearer token; both and
// neither are distinct rejected states.
package auth

import (
	"net/http"
	"strings"

	"github.com/aeroscan/aeroscan/flow"
)

// DefaultAPIKeyHeader is the inbound header carrying a partner API key.
const DefaultAPIKeyHeader = "X-API-Key"

// Mode identifies how a request authenticated.
type Mode string

const (
	ModeAPIKey Mode = "api_key"
	ModeOAuth  Mode = "oauth"
	ModeNone   Mode = "none"
)

// Credential is a resolved request credential. Secret is the raw API key or
// bearer token; the upstream client encodes it into authorization headers and
// it is never persisted.
type Credential struct {
	Mode   Mode
	Secret string
}

// Resolver inspects inbound credential headers and enforces the
// exactly-one-auth-mode invariant.
type Resolver struct {
	apiKeyHeader string
}

// NewResolver creates a resolver reading API keys from the given header name.
// An empty name falls back to DefaultAPIKeyHeader.
func NewResolver(apiKeyHeader string) *Resolver {
	if apiKeyHeader == "" {
		apiKeyHeader = DefaultAPIKeyHeader
	}
	return &Resolver{apiKeyHeader: apiKeyHeader}
}

// Resolve returns the request credential, failing with a typed error when the
// request presents both credential kinds or neither.
func (r *Resolver) Resolve(req *http.Request) (*Credential, *flow.Error) {
	apiKey := strings.TrimSpace(req.Header.Get(r.apiKeyHeader))
	bearer := bearerToken(req)

	switch {
	case apiKey != "" && bearer != "":
		return nil, flow.ErrBadRequest("provide exactly one auth mode")
	case apiKey != "":
		return &Credential{Mode: ModeAPIKey, Secret: apiKey}, nil
	case bearer != "":
		return &Credential{Mode: ModeOAuth, Secret: bearer}, nil
	default:
		return nil, flow.ErrUnauthorized("no credentials provided")
	}
}

// ResolveSilent is the health-check variant: any resolution failure
// degrades to "no credentials" instead of an error, letting the caller
// report unauthenticated status rather than failing the request.
func (r *Resolver) ResolveSilent(req *http.Request) (*Credential, bool) {
	cred, err := r.Resolve(req)
	if err != nil {
		return nil, false
	}
	return cred, true
}

// bearerToken extracts a token from "Authorization: Bearer <token>".
// Returns "" for any other Authorization shape.
func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
