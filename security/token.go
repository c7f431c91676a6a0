// Package security provides the small security primitives shared across the
// gateway: opaque token generation, request IDs, response hardening headers,
// and per-client rate limiting.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the entropy of state and result tokens. 32 bytes (256 bits)
// comfortably exceeds the 128-bit floor required for CSRF state.
const tokenBytes = 32

// GenerateToken generates a cryptographically secure opaque token encoded as
// a 43-character base64url string without padding. Used for OAuth state
// tokens and one-time result IDs.
//
// The function panics if the system's random number generator fails, which
// indicates a critical system-level security failure.
func GenerateToken() string {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// GenerateRequestID generates a random request ID: 16 bytes of entropy as a
// 22-character base64url string. Request IDs are for log correlation only.
func GenerateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
