package security

import "net/http"

// SetSecurityHeaders sets response hardening headers for JSON endpoints.
// OAuth responses carry credentials, so caching is disabled outright.
func SetSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
}

// SetCallbackPageHeaders sets headers for the server-rendered callback page.
// The page carries an inline script, so the strict default-src 'none' policy
// cannot apply; script-src 'unsafe-inline' is scoped to this one response,
// which interpolates nothing beyond the opaque result ID and a sanitized
// origin.
func SetCallbackPageHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
}
