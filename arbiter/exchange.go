package arbiter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/timeout"
)

// Mode selects between reading a value from the tool and writing one to it.
type Mode byte

const (
	Read Mode = iota
	Write
)

// Request is one command sent to the tool.
type Request struct {
	Command byte
	Mode    Mode
	// Value is only sent in Write mode.
	Value uint16
}

// toolIndex addresses the only tool on the bus.
const toolIndex = 0

func (r Request) packet() []byte {
	if r.Mode == Write {
		return []byte{toolIndex, r.Command, byte(r.Value), byte(r.Value >> 8)}
	}
	return []byte{toolIndex, r.Command}
}

// State of an Exchange.
type State byte

const (
	Idle State = iota
	LockPending
	Submitted
	AwaitingResponse
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LockPending:
		return "lock-pending"
	case Submitted:
		return "submitted"
	case AwaitingResponse:
		return "awaiting-response"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Exchange is a single request/response cycle with the tool. It never blocks:
// the owner calls Advance on every scheduler tick until it returns true.
//
// The bus lock is held only while the request is being submitted. While the
// response is awaited the runner's in-flight guard keeps other exchanges in
// LockPending. Those exchanges keep stepping the pending transaction, so an
// exchange its owner stopped advancing still completes and frees the guard.
type Exchange struct {
	runner *Runner
	ctx    context.Context
	req    Request
	state  State

	lockTimeout *timeout.Timeout

	payload Response
	err     error
}

func (e *Exchange) State() State {
	e.runner.mx.Lock()
	defer e.runner.mx.Unlock()
	return e.state
}

// Advance moves the exchange forward by one step and reports whether it is done.
func (e *Exchange) Advance() bool {
	e.runner.mx.Lock()
	defer e.runner.mx.Unlock()
	switch e.state {
	case Idle:
		e.lockTimeout.Start(e.runner.lockTimeout)
		e.state = LockPending
		return e.tryLock()
	case LockPending:
		return e.tryLock()
	case Submitted:
		e.state = AwaitingResponse
		return e.poll()
	case AwaitingResponse:
		return e.poll()
	default:
		return true
	}
}

// Result returns the payload (status byte included) of a completed exchange,
// or the lock/transport failure that ended it.
func (e *Exchange) Result() (Response, error) {
	e.runner.mx.Lock()
	defer e.runner.mx.Unlock()
	if e.state != Done {
		return nil, fmt.Errorf("exchange %#x still %s", e.req.Command, e.state)
	}
	return e.payload, e.err
}

func (e *Exchange) tryLock() bool {
	// cancellation is only possible until the request is on the bus
	if err := e.ctx.Err(); err != nil {
		return e.fail(err)
	}
	r := e.runner
	if r.acquire(e) {
		r.tx.Start(e.req.packet())
		r.lock.Release()
		e.state = Submitted
		return false
	}
	if e.lockTimeout.HasElapsed() {
		return e.fail(toolpanel.ErrLockTimeout)
	}
	return false
}

func (e *Exchange) poll() bool {
	e.runner.collect()
	return e.state == Done
}

// complete records the outcome of the finished transaction.
func (e *Exchange) complete(r *Runner) {
	switch status := r.tx.Status(); status {
	case toolpanel.StatusOK:
		e.payload = append(Response(nil), r.tx.Response()...)
		e.state = Done
	case toolpanel.StatusTimedOut:
		e.fail(toolpanel.ErrTransportTimeout)
	default:
		e.fail(fmt.Errorf("%w: %s", toolpanel.ErrTransport, status))
	}
}

func (e *Exchange) fail(err error) bool {
	slog.Debug("tool exchange failed", "command", e.req.Command, "state", e.state.String(), "error", err)
	e.err = fmt.Errorf("command %#x: %w", e.req.Command, err)
	e.payload = nil
	e.state = Done
	return true
}
