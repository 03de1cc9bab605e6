// Package ratelimit provides the small count-plus-window limiter used to
// throttle validation and security diagnostics, so an attacker flooding
// malformed input cannot also flood the log pipeline.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most max events per window. Calls beyond the budget are
// counted so the caller can report how many were suppressed when the window
// rolls over.
type Limiter struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	windowStart time.Time
	count       int
	suppressed  int
}

// New returns a limiter permitting max events per window. max <= 0 disables
// limiting entirely.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{max: max, window: window}
}

// Allow reports whether an event at now fits the current window's budget.
// When the window has elapsed the budget resets and the first call returns
// true along with the rollover.
func (l *Limiter) Allow(now time.Time) bool {
	if l == nil || l.max <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.count = 0
	}
	l.count++
	if l.count > l.max {
		l.suppressed++
		return false
	}
	return true
}

// TakeSuppressed returns the number of events dropped since the last call and
// resets the counter. Callers fold it into the next emitted log line.
func (l *Limiter) TakeSuppressed() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.suppressed
	l.suppressed = 0
	return n
}
