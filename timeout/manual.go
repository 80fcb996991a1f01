package timeout

import (
	"sync"
	"time"
)

// ManualClock is a Clock that only moves when told to. It is meant for tests
// and for the tool simulator.
type ManualClock struct {
	mx  sync.Mutex
	now time.Time
}

func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

func (c *ManualClock) Now() time.Time {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mx.Lock()
	c.now = c.now.Add(d)
	c.mx.Unlock()
}
