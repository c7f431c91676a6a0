// Package upstream is the partner API client: it forwards resolved-auth
// requests, walks an ordered list of authorization header shapes when the
// upstream rejects a bearer token, and normalizes known response field-name
// variants into canonical records.
package upstream

import "net/http"

// HeaderStrategy is one way of encoding a credential into an upstream
// authorization header. The expected header convention for OAuth-derived
// tokens has historically been ambiguous upstream, so bearer-mode requests
// walk an ordered list of strategies instead of hard-coding one shape.
type HeaderStrategy struct {
	// Name identifies the strategy in logs and metrics
	Name string `yaml:"name"`

	// Header is the header the credential is placed in
	Header string `yaml:"header"`

	// Prefix is prepended to the credential value (e.g. "Bearer ")
	Prefix string `yaml:"prefix"`
}

// Apply sets the strategy's header on h for the given credential.
func (s HeaderStrategy) Apply(h http.Header, credential string) {
	h.Set(s.Header, s.Prefix+credential)
}

// DefaultBearerStrategies is the fallback chain for bearer-token requests,
// tried in order until a non-401/403 response. The list is
// configuration-overridable so a changed upstream convention does not require
// a redeploy of call sites.
func DefaultBearerStrategies() []HeaderStrategy {
	return []HeaderStrategy{
		{Name: "partner-raw", Header: "Partner-Authorization", Prefix: ""},
		{Name: "partner-bearer", Header: "Partner-Authorization", Prefix: "Bearer "},
		{Name: "standard-bearer", Header: "Authorization", Prefix: "Bearer "},
	}
}

// APIKeyStrategy is the single, unambiguous header shape for API-key
// requests. No fallback is attempted for keys.
func APIKeyStrategy() HeaderStrategy {
	return HeaderStrategy{Name: "partner-key", Header: "Partner-Authorization", Prefix: ""}
}
