// Package memory provides a mutex-guarded in-memory implementation of the
// flow state and result stores. It is suitable for single-instance
// deployments: entries do not survive a process restart, which simply fails
// any in-flight OAuth handshake with "invalid or expired state".
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aeroscan/aeroscan/flow"
	"github.com/aeroscan/aeroscan/security"
)

// defaultCleanupInterval is how often the background sweeper runs in addition
// to the opportunistic sweeps before each create and consume.
const defaultCleanupInterval = time.Minute

// Store is an in-memory implementation of flow.StateStore and flow.ResultStore.
//
// All operations take the write lock, so a sweep can never race a consume into
// double-delivering an entry: lookup and delete happen under one critical
// section.
type Store struct {
	mu sync.Mutex

	states  map[string]*flow.StateEntry
	results map[string]*flow.ResultEntry

	ttl             time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
	now             func() time.Time
}

// Compile-time interface checks
var (
	_ flow.StateStore  = (*Store)(nil)
	_ flow.ResultStore = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCleanupInterval overrides how often the background sweeper runs.
func WithCleanupInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an in-memory store and starts its background sweeper.
func New(opts ...Option) *Store {
	s := &Store{
		states:          make(map[string]*flow.StateEntry),
		results:         make(map[string]*flow.ResultEntry),
		ttl:             flow.DefaultEntryTTL,
		cleanupInterval: defaultCleanupInterval,
		stopCleanup:     make(chan struct{}),
		logger:          slog.Default(),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

// Stop ends the background sweeper goroutine.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}

// CreateState mints a random state token and stores it with the given origin.
func (s *Store) CreateState(_ context.Context, origin string) (string, error) {
	state := security.GenerateToken()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	s.states[state] = &flow.StateEntry{
		State:     state,
		CreatedAt: s.now(),
		Origin:    origin,
	}

	s.logger.Debug("Created OAuth state", "states", len(s.states))
	return state, nil
}

// ConsumeState looks up and deletes a state entry atomically.
func (s *Store) ConsumeState(_ context.Context, state string) (*flow.StateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	entry, ok := s.states[state]
	if !ok {
		return nil, flow.ErrStateNotFound
	}
	delete(s.states, state)

	s.logger.Debug("Consumed OAuth state", "age", s.now().Sub(entry.CreatedAt))
	return entry, nil
}

// CreateResult stores a callback outcome and returns its one-time result ID.
func (s *Store) CreateResult(_ context.Context, payload flow.ResultPayload, origin string) (string, error) {
	id := security.GenerateToken()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	s.results[id] = &flow.ResultEntry{
		ResultID:  id,
		CreatedAt: s.now(),
		Origin:    origin,
		Payload:   payload,
	}

	s.logger.Debug("Created OAuth result", "success", payload.Success, "results", len(s.results))
	return id, nil
}

// ConsumeResult looks up and deletes a result atomically. A second call for
// the same ID always fails: retrieval is at-most-once.
func (s *Store) ConsumeResult(_ context.Context, id string) (*flow.ResultPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	entry, ok := s.results[id]
	if !ok {
		return nil, flow.ErrResultNotFound
	}
	delete(s.results, id)

	payload := entry.Payload
	return &payload, nil
}

// sweepLocked deletes all entries older than the TTL. Caller holds mu.
func (s *Store) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	cleaned := 0

	for state, entry := range s.states {
		if entry.CreatedAt.Before(cutoff) {
			delete(s.states, state)
			cleaned++
		}
	}
	for id, entry := range s.results {
		if entry.CreatedAt.Before(cutoff) {
			delete(s.results, id)
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Debug("Swept expired flow entries", "count", cleaned)
	}
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.sweepLocked()
			s.mu.Unlock()
		}
	}
}
