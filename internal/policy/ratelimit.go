package policy

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter holds a per-key token bucket (per session, per API key, or
// per provider), lazily creating buckets on first use so the hot path never
// takes a write lock once a key has been seen.
type RateLimiter struct {
	mu       sync.RWMutex
	buckets  map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter builds a limiter allowing rps requests per second per key,
// with burst capacity.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether a request under key may proceed right now,
// consuming a token if so.
func (r *RateLimiter) Allow(key string) bool {
	return r.bucketFor(key).Allow()
}

// Wait blocks until a token for key is available or ctx's deadline expires.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	return r.bucketFor(key).Wait(ctx)
}

func (r *RateLimiter) bucketFor(key string) *rate.Limiter {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "__default__"
	}

	r.mu.RLock()
	b, ok := r.buckets[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.buckets[key]; ok {
		return b
	}
	b = rate.NewLimiter(r.rps, r.burst)
	r.buckets[key] = b
	return b
}

// Prune drops every bucket that has refilled to its full burst (such a
// bucket behaves exactly like a freshly created one), bounding memory growth
// for a long-lived process serving many distinct keys (e.g. one bucket per
// session), and returns how many it removed. maxIdle is not consulted; a
// bucket's last use is not tracked. Callers typically invoke this from a
// periodic janitor pass.
func (r *RateLimiter) Prune(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, b := range r.buckets {
		if b.TokensAt(time.Now()) >= float64(r.burst) {
			delete(r.buckets, key)
			removed++
		}
	}
	return removed
}
