// Package admission throttles how quickly new simulator sessions may be
// opened, protecting a shared endpoint from runaway test harnesses.
package admission

import (
	"sync"
	"time"
)

// Limiter admits at most limit sessions per sliding window. A nil limiter
// or a zero limit admits everything.
type Limiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu        sync.Mutex
	admitted  []time.Time
	rejected  uint64
}

// NewLimiter constructs a limiter allowing up to limit admissions per
// window. The clock is injectable for tests; nil falls back to time.Now.
func NewLimiter(window time.Duration, limit int, clock func() time.Time) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{window: window, limit: limit, now: clock}
}

// Admit reports whether a new session may be opened right now and, when
// permitted, charges it against the window.
func (l *Limiter) Admit() bool {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	kept := l.admitted[:0]
	for _, ts := range l.admitted {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.admitted = kept
	if len(l.admitted) >= l.limit {
		l.rejected++
		return false
	}
	l.admitted = append(l.admitted, l.now())
	return true
}

// Rejected returns how many admissions the limiter has refused.
func (l *Limiter) Rejected() uint64 {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rejected
}
