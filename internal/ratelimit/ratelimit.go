package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PacingLimiter enforces a minimum delay between calls to the same upstream,
// keyed by name (a feed host, a model provider). The ingest loop uses it for
// the inter-feed pacing gap; the classifier uses it to space completions on
// one provider.
type PacingLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	minDelay time.Duration
}

// NewPacingLimiter creates a limiter that enforces minDelay between
// consecutive calls under the same key.
func NewPacingLimiter(minDelay time.Duration) *PacingLimiter {
	return &PacingLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last call under key.
// Returns an error if the context is cancelled while waiting.
func (r *PacingLimiter) Wait(ctx context.Context, key string) error {
	r.mu.Lock()
	last, ok := r.lastCall[key]
	now := time.Now()

	if !ok {
		// First call under this key — no wait needed.
		r.lastCall[key] = now
		r.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= r.minDelay {
		// Enough time has passed — proceed immediately.
		r.lastCall[key] = now
		r.mu.Unlock()
		return nil
	}

	// Need to wait for the remainder.
	remaining := r.minDelay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("pacing wait for %s: %w", key, ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	r.mu.Lock()
	r.lastCall[key] = time.Now()
	r.mu.Unlock()

	return nil
}
