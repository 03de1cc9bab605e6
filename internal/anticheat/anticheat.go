// Package anticheat holds the per-player speed/teleport checker the
// connection layer consults before accepting a position update. It keeps only
// the last accepted sample per player, a rolling comparison rather than a
// trajectory history.
package anticheat

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// minSampleInterval absorbs network micro-bursts: samples arriving closer
// together than this are accepted without a speed assessment, since the
// implied speed over such short windows is dominated by jitter.
const minSampleInterval = 10 * time.Millisecond

// Sample is one accepted position with its arrival time.
type Sample struct {
	X  float64
	Y  float64
	At time.Time
}

// Result reports whether a movement sample is plausible. Errors carries the
// diagnostic distance/time/speed figures on a violation.
type Result struct {
	Valid  bool
	Errors []string
}

// Checker validates movement per player against a maximum speed with a
// tolerance band for jitter and latency. The tolerance is a tuned constant
// (see config), not a derived value.
type Checker struct {
	mu        sync.Mutex
	maxSpeed  float64
	tolerance float64
	last      map[string]Sample
}

// New builds a checker. maxSpeed is in world units per second; tolerance is
// the fractional allowance above it (0.20 means 20% over max is accepted).
func New(maxSpeed, tolerance float64) *Checker {
	return &Checker{
		maxSpeed:  maxSpeed,
		tolerance: tolerance,
		last:      make(map[string]Sample),
	}
}

// Check assesses a position sample for playerID at now. Accepted samples
// replace the player's last-known sample; rejected ones leave it untouched so
// the next honest update is judged against the last accepted state.
func (c *Checker) Check(playerID string, x, y float64, now time.Time) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.last[playerID]
	if !ok {
		// First sample: nothing to compare against.
		c.last[playerID] = Sample{X: x, Y: y, At: now}
		return Result{Valid: true}
	}

	res := validateMovement(x, y, prev, now, c.maxSpeed, c.tolerance)
	if res.Valid {
		c.last[playerID] = Sample{X: x, Y: y, At: now}
	}
	return res
}

// Forget drops the stored sample for playerID, typically on disconnect or
// map transfer (a portal jump must not read as a teleport hack).
func (c *Checker) Forget(playerID string) {
	c.mu.Lock()
	delete(c.last, playerID)
	c.mu.Unlock()
}

func validateMovement(x, y float64, prev Sample, now time.Time, maxSpeed, tolerance float64) Result {
	elapsed := now.Sub(prev.At)
	if elapsed <= minSampleInterval {
		return Result{Valid: true}
	}

	dist := math.Hypot(x-prev.X, y-prev.Y)
	speed := dist / elapsed.Seconds()
	limit := maxSpeed * (1 + tolerance)
	if speed > limit {
		return Result{
			Valid: false,
			Errors: []string{fmt.Sprintf(
				"speed hack detected: moved %.1f units in %s (%.1f u/s, limit %.1f u/s)",
				dist, elapsed, speed, limit)},
		}
	}
	return Result{Valid: true}
}
