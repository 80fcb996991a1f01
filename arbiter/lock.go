package arbiter

import (
	"sync/atomic"
	"time"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/timeout"
)

var _ toolpanel.BusLock = &Lock{}

// Lock is the ownership token of the tool bus. It is safe to share between
// goroutines; TryAcquire never blocks.
type Lock struct {
	held atomic.Bool
}

func (l *Lock) TryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

func (l *Lock) Release() {
	l.held.Store(false)
}

func (l *Lock) Held() bool {
	return l.held.Load()
}

// Acquire polls lock until it is taken or d has elapsed on clock. yield is
// called between attempts so the caller can service other duties.
//
// It is the blocking form for bus users outside the Runner. Exchanges poll
// the lock one attempt per Advance instead, so they never block a tick.
func Acquire(lock toolpanel.BusLock, clock timeout.Clock, d time.Duration, yield func()) bool {
	to := timeout.New(clock)
	to.Start(d)
	for !lock.TryAcquire() {
		if to.HasElapsed() {
			return false
		}
		if yield != nil {
			yield()
		}
	}
	return true
}
