package arbiter

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/timeout"
)

// DefaultLockTimeout bounds the wait for the bus lock.
const DefaultLockTimeout = 50 * time.Millisecond

type RunnerOpts struct {
	LockTimeout time.Duration
	Clock       timeout.Clock
	// Yield is called between two steps of a blocking exchange.
	Yield func()
}

type RunnerOpt func(*RunnerOpts)

func WithLockTimeout(d time.Duration) RunnerOpt {
	return func(o *RunnerOpts) {
		o.LockTimeout = d
	}
}

func WithClock(clock timeout.Clock) RunnerOpt {
	return func(o *RunnerOpts) {
		o.Clock = clock
	}
}

func WithYield(yield func()) RunnerOpt {
	return func(o *RunnerOpts) {
		o.Yield = yield
	}
}

// Runner drives exchanges with the tool over a shared bus.
// Only one exchange is in flight at any time.
type Runner struct {
	lock        toolpanel.BusLock
	tx          toolpanel.Transaction
	clock       timeout.Clock
	lockTimeout time.Duration
	yield       func()

	// mx serializes exchange steps
	mx       sync.Mutex
	owner    *Exchange
	inFlight atomic.Bool
}

func NewRunner(lock toolpanel.BusLock, tx toolpanel.Transaction, opts ...RunnerOpt) *Runner {
	config := RunnerOpts{
		LockTimeout: DefaultLockTimeout,
		Clock:       timeout.System,
		Yield:       runtime.Gosched,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Runner{
		lock:        lock,
		tx:          tx,
		clock:       config.Clock,
		lockTimeout: config.LockTimeout,
		yield:       config.Yield,
	}
}

// Begin creates an exchange in the Idle state. Nothing touches the bus until
// its first Advance.
func (r *Runner) Begin(ctx context.Context, req Request) *Exchange {
	return &Exchange{
		runner:      r,
		ctx:         ctx,
		req:         req,
		lockTimeout: timeout.New(r.clock),
	}
}

// InFlight reports whether a request has been submitted and its response is
// still awaited.
func (r *Runner) InFlight() bool {
	return r.inFlight.Load()
}

// RunExchange performs one exchange and waits for it cooperatively. It reports
// false with no payload when the lock could not be taken in time or the tool
// did not answer; otherwise it returns the whole payload, status byte
// included, without looking at the status.
func (r *Runner) RunExchange(ctx context.Context, command byte, mode Mode, value uint16) (bool, Response) {
	resp, err := r.exchange(ctx, Request{Command: command, Mode: mode, Value: value})
	if err != nil {
		return false, nil
	}
	return true, resp
}

// Control performs one exchange and classifies the response. A nil error
// means the tool executed the command; any failure returns a nil payload.
func (r *Runner) Control(ctx context.Context, command byte, mode Mode, value uint16) (Response, error) {
	resp, err := r.exchange(ctx, Request{Command: command, Mode: mode, Value: value})
	if err != nil {
		return nil, err
	}
	if err := Classify(resp); err != nil {
		return nil, fmt.Errorf("command %#x: %w", command, err)
	}
	return resp, nil
}

// Get reads a value (Read mode) and returns the classified response.
func (r *Runner) Get(ctx context.Context, command byte) (Response, error) {
	return r.Control(ctx, command, Read, 0)
}

// Set writes value to the tool and returns the classified response.
func (r *Runner) Set(ctx context.Context, command byte, value uint16) (Response, error) {
	return r.Control(ctx, command, Write, value)
}

func (r *Runner) exchange(ctx context.Context, req Request) (Response, error) {
	ex := r.Begin(ctx, req)
	for !ex.Advance() {
		r.yield()
	}
	return ex.Result()
}

// acquire takes the bus lock and marks e in flight. While another exchange
// awaits its response it steps that transaction instead and fails unless the
// transaction completes.
func (r *Runner) acquire(e *Exchange) bool {
	if !r.collect() {
		return false
	}
	if !r.lock.TryAcquire() {
		return false
	}
	r.owner = e
	r.inFlight.Store(true)
	return true
}

// collect steps the in-flight transaction and hands its outcome to the owning
// exchange once it is complete. It reports whether the bus is free of pending
// responses.
func (r *Runner) collect() bool {
	if r.owner == nil {
		return true
	}
	if !r.tx.Step() {
		return false
	}
	owner := r.owner
	r.owner = nil
	r.inFlight.Store(false)
	owner.complete(r)
	return true
}
