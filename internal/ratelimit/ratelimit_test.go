package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	l := New(3, time.Second)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !l.Allow(now) {
			t.Fatalf("call %d should be within budget", i+1)
		}
	}
	if l.Allow(now) {
		t.Fatalf("fourth call should be suppressed")
	}
	if l.Allow(now) {
		t.Fatalf("fifth call should be suppressed")
	}
	if got := l.TakeSuppressed(); got != 2 {
		t.Fatalf("TakeSuppressed = %d, want 2", got)
	}
	if got := l.TakeSuppressed(); got != 0 {
		t.Fatalf("second TakeSuppressed = %d, want 0", got)
	}
}

func TestWindowRollover(t *testing.T) {
	l := New(1, time.Second)
	now := time.Now()

	if !l.Allow(now) {
		t.Fatalf("first call should pass")
	}
	if l.Allow(now.Add(500 * time.Millisecond)) {
		t.Fatalf("call inside window should be suppressed")
	}
	if !l.Allow(now.Add(time.Second)) {
		t.Fatalf("call after window should pass again")
	}
}

func TestDisabledLimiter(t *testing.T) {
	l := New(0, time.Second)
	now := time.Now()
	for i := 0; i < 100; i++ {
		if !l.Allow(now) {
			t.Fatalf("disabled limiter must always allow")
		}
	}

	var nilLimiter *Limiter
	if !nilLimiter.Allow(now) {
		t.Fatalf("nil limiter must allow")
	}
	if nilLimiter.TakeSuppressed() != 0 {
		t.Fatalf("nil limiter must report zero suppressed")
	}
}
