package security

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultMaxEntries bounds the number of tracked identifiers so an attacker
// cycling source addresses cannot grow the map without limit.
const defaultMaxEntries = 10000

// rateLimiterEntry tracks a limiter and its last access time
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter provides per-identifier rate limiting using a token bucket per
// identifier, with stale-entry cleanup to prevent unbounded memory growth.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*rateLimiterEntry
	rate       int
	burst      int
	maxEntries int
	logger     *slog.Logger

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond per
// identifier with the given burst. A background goroutine evicts entries idle
// for more than the cleanup interval; call Stop to end it.
func NewRateLimiter(requestsPerSecond, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	rl := &RateLimiter{
		limiters:        make(map[string]*rateLimiterEntry),
		rate:            requestsPerSecond,
		burst:           burst,
		maxEntries:      defaultMaxEntries,
		logger:          logger,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from the given identifier is within limits.
func (rl *RateLimiter) Allow(identifier string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[identifier]
	if !ok {
		if len(rl.limiters) >= rl.maxEntries {
			rl.evictOldestLocked()
		}
		entry = &rateLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.rate), rl.burst),
		}
		rl.limiters[identifier] = entry
	}

	entry.lastAccess = now
	return entry.limiter.Allow()
}

// evictOldestLocked removes the least recently used entry. Caller holds mu.
func (rl *RateLimiter) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range rl.limiters {
		if oldestKey == "" || entry.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(rl.limiters, oldestKey)
		rl.logger.Debug("Evicted rate limiter entry at capacity", "identifier", oldestKey)
	}
}

// Stop ends the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup evicts entries idle for longer than the cleanup interval.
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.cleanupInterval)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("Cleaned up idle rate limiter entries", "count", removed, "remaining", len(rl.limiters))
	}
}
