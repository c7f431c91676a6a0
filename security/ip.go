package security

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP for rate limiting. Forwarding headers are
// honored only when trustProxy is set, since they are trivially spoofable
// without a trusted reverse proxy in front.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// First hop is the originating client
			if idx := strings.Index(xff, ","); idx >= 0 {
				xff = xff[:idx]
			}
			if ip := strings.TrimSpace(xff); ip != "" {
				return ip
			}
		}
		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			return xrip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
