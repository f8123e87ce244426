package server

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between attempts per key.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastSeen    map[string]time.Time
	now         func() time.Time
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
		lastSeen:    make(map[string]time.Time),
		now:         time.Now,
	}
}

// Allow records an attempt for key. When the attempt comes too early it
// returns false and the time left until the next one is allowed.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	if r == nil || r.minInterval <= 0 {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	last, ok := r.lastSeen[key]
	if !ok {
		r.lastSeen[key] = now
		return true, 0
	}
	elapsed := now.Sub(last)
	if elapsed < r.minInterval {
		return false, r.minInterval - elapsed
	}
	r.lastSeen[key] = now
	return true, 0
}

// prune forgets keys idle for longer than the interval.
func (r *RateLimiter) prune(now time.Time) {
	for key, last := range r.lastSeen {
		if now.Sub(last) >= r.minInterval {
			delete(r.lastSeen, key)
		}
	}
}
