// Package ratelimit throttles chat requests per client key over a fixed
// window. The limiter is best-effort abuse mitigation, not a safety boundary:
// implementations may approximate under concurrency and fail open on store
// errors.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow and DefaultQuota match the public contract: at most 10
	// admitted calls per key per 60 seconds, the window resetting exactly
	// 60s after the first admitted call in it.
	DefaultWindow = 60 * time.Second
	DefaultQuota  = 10
)

// Limiter admits or rejects a call for a client key, side-effecting.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type entry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is the process-local implementation: a mutex-guarded map with
// no eviction. Stale entries persist until overwritten on window rollover for
// the same key; memory grows with distinct keys seen.
type MemoryLimiter struct {
	window time.Duration
	quota  int

	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

// NewMemoryLimiter creates a limiter with the given window and quota.
// Non-positive values fall back to the defaults.
func NewMemoryLimiter(window time.Duration, quota int) *MemoryLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &MemoryLimiter{
		window:  window,
		quota:   quota,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}
	if e.count >= l.quota {
		return false, nil
	}
	e.count++
	return true, nil
}
