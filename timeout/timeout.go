// Package timeout provides a latching millisecond deadline driven by a monotonic clock.
package timeout

import (
	"time"
)

// Clock returns a monotonic reading.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the process monotonic clock.
var System Clock = systemClock{}

// Timeout reports when a duration has passed since Start.
// Once elapsed it stays elapsed until Start is called again.
type Timeout struct {
	clock    Clock
	start    time.Time
	duration time.Duration
	active   bool
	elapsed  bool
}

func New(clock Clock) *Timeout {
	if clock == nil {
		clock = System
	}
	return &Timeout{clock: clock}
}

// Start (re)arms the timeout. Durations are truncated to whole milliseconds.
func (t *Timeout) Start(d time.Duration) {
	if t.clock == nil {
		t.clock = System
	}
	t.start = t.clock.Now()
	t.duration = d.Truncate(time.Millisecond)
	t.active = true
	t.elapsed = false
}

// HasElapsed is true iff now - start >= duration. An unarmed timeout never elapses.
func (t *Timeout) HasElapsed() bool {
	if t.elapsed {
		return true
	}
	if !t.active {
		return false
	}
	if t.clock.Now().Sub(t.start).Truncate(time.Millisecond) >= t.duration {
		t.elapsed = true
		t.active = false
	}
	return t.elapsed
}

func (t *Timeout) IsActive() bool {
	return t.active
}

// Abort disarms the timeout without marking it elapsed.
func (t *Timeout) Abort() {
	t.active = false
	t.elapsed = false
}
