package flow

import (
	"net/url"
	"strings"
)

// SanitizeOrigin validates a client-supplied return origin and normalizes it
// to scheme://host[:port]. Returns "" when the input does not parse as an
// http or https URL with a host.
//
// The result is used only to scope postMessage targets and redirect targets.
// It is never trusted for authorization decisions.
func SanitizeOrigin(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}

	return scheme + "://" + strings.ToLower(u.Host)
}
