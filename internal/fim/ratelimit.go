package fim

import (
	"sync"
	"time"
)

// RateLimiter is a token-bucket-flavored ceiling on events-per-second,
// transcribed from the source's check_max_fps: a counter reset every
// one-second window, sleeping the calling goroutine once the window's
// quota is exhausted rather than dropping work. A zero or negative limit
// disables throttling entirely.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	windowStart time.Time
	count       int
	nowFunc     func() time.Time
	sleepFunc   func(time.Duration)
}

// NewRateLimiter builds a limiter allowing up to maxEPS file checks per
// second. maxEPS <= 0 disables the limiter.
func NewRateLimiter(maxEPS int) *RateLimiter {
	return &RateLimiter{
		limit:     maxEPS,
		nowFunc:   time.Now,
		sleepFunc: time.Sleep,
	}
}

// Allow accounts for one more file check, sleeping the caller until the
// next one-second window if the configured ceiling has been reached
// within the current window (spec.md §5, §9 "check_max_fps").
func (r *RateLimiter) Allow() {
	if r == nil || r.limit <= 0 {
		return
	}

	r.mu.Lock()
	now := r.nowFunc()
	if r.windowStart.IsZero() || now.Sub(r.windowStart) >= time.Second {
		r.windowStart = now
		r.count = 0
	}

	r.count++
	if r.count <= r.limit {
		r.mu.Unlock()
		return
	}

	wait := time.Second - now.Sub(r.windowStart)
	r.windowStart = now.Add(wait)
	r.count = 0
	r.mu.Unlock()

	if wait > 0 {
		r.sleepFunc(wait)
	}
}
