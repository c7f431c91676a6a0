// Package flow implements the OAuth authorization-code handshake for the
// seats.aero partner API: short-lived CSRF state, one-time result delivery,
// token exchange, and the callback page that ships results back to the
// opener window.
package flow

import (
	"context"
	"errors"
	"time"
)

// DefaultEntryTTL is how long state and result entries survive if never
// consumed. An in-flight flow interrupted by a restart simply fails with
// "invalid or expired state"; ten minutes comfortably covers a consent
// screen round trip.
const DefaultEntryTTL = 10 * time.Minute

// Sentinel errors returned by store implementations
var (
	// ErrStateNotFound indicates the state token is unknown, expired, or already consumed
	ErrStateNotFound = errors.New("oauth state not found")

	// ErrResultNotFound indicates the result ID is unknown, expired, or already consumed
	ErrResultNotFound = errors.New("oauth result not found")
)

// StateEntry ties a CSRF state token to the flow that minted it.
type StateEntry struct {
	// State is the opaque random token carried through the consent redirect
	State string

	// CreatedAt is when the entry was minted (TTL anchor)
	CreatedAt time.Time

	// Origin is the sanitized return origin, or "" when unknown
	Origin string
}

// ResultPayload is the outcome of a completed callback, success or failure.
// It is delivered to the browser exactly once via the result store.
type ResultPayload struct {
	Success bool           `json:"success"`
	Token   *TokenRecord   `json:"token,omitempty"`
	User    map[string]any `json:"user"`
	Error   string         `json:"error,omitempty"`
}

// ResultEntry holds a payload awaiting its single retrieval.
type ResultEntry struct {
	ResultID  string
	CreatedAt time.Time
	Origin    string
	Payload   ResultPayload
}

// StateStore is the short-lived mapping of CSRF state token to flow context.
//
// Implementations must make ConsumeState a read-once operation: a lookup and
// delete that is atomic with respect to concurrent consumers, so two requests
// can never both observe the same token as present.
type StateStore interface {
	// CreateState mints a cryptographically random state token and stores it
	CreateState(ctx context.Context, origin string) (string, error)

	// ConsumeState looks up and deletes the entry atomically.
	// Returns ErrStateNotFound for unknown, expired, or already-consumed tokens.
	ConsumeState(ctx context.Context, state string) (*StateEntry, error)
}

// ResultStore is the one-time-read mapping of result ID to callback outcome.
// A result ID, once read, is permanently gone: retrieval is at-most-once.
type ResultStore interface {
	// CreateResult stores a payload and returns its opaque result ID
	CreateResult(ctx context.Context, payload ResultPayload, origin string) (string, error)

	// ConsumeResult looks up and deletes the payload atomically.
	// A second call for the same ID always returns ErrResultNotFound.
	ConsumeResult(ctx context.Context, id string) (*ResultPayload, error)
}
