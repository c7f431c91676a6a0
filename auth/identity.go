package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/aeroscan/aeroscan/flow"
)

// displayPrefixLen is how many hash characters appear in an API-key display
// name. Enough to tell keys apart in a UI without exposing the key.
const displayPrefixLen = 8

// IdentityType distinguishes API-key holders from OAuth subjects.
type IdentityType string

const (
	IdentityAPIKey IdentityType = "api_key"
	IdentityOAuth  IdentityType = "oauth"
)

// OwnerIdentity is a stable, privacy-preserving identifier for the entity
// that owns persisted profile data. Raw secrets and subjects are hashed so
// they never appear in keyed-by-owner storage.
type OwnerIdentity struct {
	OwnerID     string       `json:"ownerId"`
	Type        IdentityType `json:"identityType"`
	DisplayName string       `json:"displayName"`
}

// UserInfoFetcher retrieves identity details for a bearer token. Satisfied by
// *flow.Exchanger.
type UserInfoFetcher interface {
	FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error)
}

// IdentityResolver derives an OwnerIdentity from a request credential.
type IdentityResolver struct {
	resolver *Resolver
	userinfo UserInfoFetcher
}

// NewIdentityResolver creates an identity resolver. userinfo may be nil when
// OAuth is not configured; OAuth-mode requests then fail with Unauthorized.
func NewIdentityResolver(resolver *Resolver, userinfo UserInfoFetcher) *IdentityResolver {
	return &IdentityResolver{resolver: resolver, userinfo: userinfo}
}

// Resolve derives the owner identity for a request. API keys are hashed
// locally; bearer tokens are resolved to a subject via the upstream userinfo
// endpoint. Deterministic: the same credential always maps to the same owner.
func (ir *IdentityResolver) Resolve(ctx context.Context, req *http.Request) (*OwnerIdentity, *flow.Error) {
	cred, ferr := ir.resolver.Resolve(req)
	if ferr != nil {
		return nil, ferr
	}

	switch cred.Mode {
	case ModeAPIKey:
		return apiKeyIdentity(cred.Secret), nil
	case ModeOAuth:
		return ir.oauthIdentity(ctx, cred.Secret)
	default:
		return nil, flow.ErrUnauthorized("no credentials provided")
	}
}

// apiKeyIdentity hashes an API key into a stable owner ID.
func apiKeyIdentity(key string) *OwnerIdentity {
	digest := hashHex(key)
	return &OwnerIdentity{
		OwnerID:     "api_key:" + digest,
		Type:        IdentityAPIKey,
		DisplayName: "API key " + digest[:displayPrefixLen],
	}
}

// oauthIdentity resolves a bearer token to its subject via userinfo. Unlike
// the best-effort enrichment during token exchange, identity resolution is
// load-bearing here: no subject means no owner, so failures are Unauthorized.
func (ir *IdentityResolver) oauthIdentity(ctx context.Context, token string) (*OwnerIdentity, *flow.Error) {
	if ir.userinfo == nil {
		return nil, flow.ErrUnauthorized("OAuth identity resolution is not configured")
	}

	info, err := ir.userinfo.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, flow.ErrUnauthorized("could not resolve token identity")
	}

	subject := subjectFrom(info)
	if subject == "" {
		return nil, flow.ErrUnauthorized("token identity has no subject")
	}

	return &OwnerIdentity{
		OwnerID:     "oauth:" + hashHex(subject),
		Type:        IdentityOAuth,
		DisplayName: displayNameFrom(info),
	}, nil
}

// subjectFrom extracts a stable subject identifier from a userinfo document:
// sub, falling back to id, then email.
func subjectFrom(info map[string]any) string {
	for _, field := range []string{"sub", "id", "email"} {
		switch v := info[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			// JSON numbers decode to float64; some providers use numeric IDs
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// displayNameFrom picks a human-readable label from a userinfo document.
func displayNameFrom(info map[string]any) string {
	for _, field := range []string{"name", "email"} {
		if v, ok := info[field].(string); ok && v != "" {
			return v
		}
	}
	return "Connected account"
}

// hashHex returns the SHA-256 hex digest of a value.
func hashHex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
