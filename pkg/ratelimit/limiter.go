// Package ratelimit bounds how many tool calls reach the Legifrance API per
// period.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a fixed window limiter: at most Capacity calls are admitted
// between two window resets. A window ends once more than Period elapsed
// since it started.
type Limiter struct {
	mu sync.Mutex

	capacity    int
	period      time.Duration
	count       int
	windowStart time.Time

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now and time.After.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(l *Limiter) {
		l.now = now
		l.after = after
	}
}

// New returns a limiter admitting capacity calls per period. A capacity
// below one admits a single call per period.
func New(capacity int, period time.Duration, opts ...Option) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	l := &Limiter{
		capacity: capacity,
		period:   period,
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.windowStart = l.now()
	return l
}

// roll starts a new window when the current one is over. Callers hold mu.
func (l *Limiter) roll(now time.Time) {
	if now.Sub(l.windowStart) > l.period {
		l.windowStart = now
		l.count = 0
	}
}

// TryAcquire admits a call if the current window has room.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roll(l.now())
	if l.count >= l.capacity {
		return false
	}
	l.count++
	return true
}

// Wait blocks until a call is admitted or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.roll(now)
		if l.count < l.capacity {
			l.count++
			l.mu.Unlock()
			return nil
		}
		wait := l.period - now.Sub(l.windowStart)
		if wait <= 0 {
			l.windowStart = now
			l.count = 1
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.after(wait):
		}
	}
}

// Remaining returns how many calls the current window still admits.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roll(l.now())
	return l.capacity - l.count
}
