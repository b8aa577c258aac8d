// Package ratelimit caps how often one client may submit the contact form.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter provides per-key rate limiting using a token bucket. It is
// local to one process and used when Redis is not configured.
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64 // tokens per second
	burst     int     // max tokens
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

const (
	sweepInterval = 5 * time.Minute
	staleAfter    = 10 * time.Minute
)

// NewMemoryLimiter allows limit requests per window for each key, refilled
// continuously.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		rate:    float64(limit) / window.Seconds(),
		burst:   limit,
		now:     time.Now,
	}
}

// Allow never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastTime: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastTime).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// sweep evicts idle buckets so the map does not grow without bound.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-staleAfter)
	for key, b := range l.buckets {
		if b.lastTime.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
