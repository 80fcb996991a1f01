package arbiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/timeout"
)

// MockTransaction is a mock implementation of toolpanel.Transaction using testify/mock
type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Start(request []byte) {
	m.Called(request)
}

func (m *MockTransaction) Step() bool {
	return m.Called().Bool(0)
}

func (m *MockTransaction) Status() toolpanel.TransportStatus {
	return m.Called().Get(0).(toolpanel.TransportStatus)
}

func (m *MockTransaction) Response() []byte {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]byte)
}

type stuckLock struct{}

func (stuckLock) TryAcquire() bool { return false }
func (stuckLock) Release()         {}

// scriptedTx completes after a fixed number of steps with a canned answer.
type scriptedTx struct {
	started  [][]byte
	steps    int
	left     int
	status   toolpanel.TransportStatus
	response []byte
}

func (s *scriptedTx) Start(request []byte) {
	s.started = append(s.started, request)
	s.left = s.steps
}

func (s *scriptedTx) Step() bool {
	if s.left > 0 {
		s.left--
		return false
	}
	return true
}

func (s *scriptedTx) Status() toolpanel.TransportStatus { return s.status }
func (s *scriptedTx) Response() []byte                  { return s.response }

func tickingRunner(lock toolpanel.BusLock, tx toolpanel.Transaction) (*Runner, *timeout.ManualClock) {
	clock := timeout.NewManualClock()
	return NewRunner(lock, tx,
		WithClock(clock),
		WithYield(func() { clock.Advance(time.Millisecond) }),
	), clock
}

func TestRunner_ReadRequest(t *testing.T) {
	lock := &Lock{}
	tx := new(MockTransaction)
	runner, _ := tickingRunner(lock, tx)

	tx.On("Start", []byte{0x00, 0x02}).Once()
	tx.On("Step").Run(func(args mock.Arguments) {
		assert.False(t, lock.Held(), "lock must be released while the response is awaited")
		assert.True(t, runner.InFlight())
	}).Return(false).Times(3)
	tx.On("Step").Return(true).Once()
	tx.On("Status").Return(toolpanel.StatusOK)
	tx.On("Response").Return([]byte{toolpanel.RCOK, 0xDC, 0x00})

	ok, resp := runner.RunExchange(context.Background(), 0x02, Read, 999)
	require.True(t, ok)
	assert.Equal(t, Response{toolpanel.RCOK, 0xDC, 0x00}, resp)
	assert.Equal(t, uint16(220), resp.Uint16(1))
	assert.False(t, lock.Held())
	assert.False(t, runner.InFlight())
	tx.AssertExpectations(t)
}

func TestRunner_WriteRequestCarriesValue(t *testing.T) {
	tx := &scriptedTx{status: toolpanel.StatusOK, response: []byte{toolpanel.RCOK}}
	runner, _ := tickingRunner(&Lock{}, tx)

	_, err := runner.Set(context.Background(), 0x03, 0x01F4)
	require.NoError(t, err)
	require.Len(t, tx.started, 1)
	assert.Equal(t, []byte{0x00, 0x03, 0xF4, 0x01}, tx.started[0])
}

func TestRunner_LockTimeout(t *testing.T) {
	tx := new(MockTransaction)
	runner, clock := tickingRunner(stuckLock{}, tx)
	start := clock.Now()

	ok, resp := runner.RunExchange(context.Background(), 0x02, Read, 0)
	assert.False(t, ok)
	assert.Nil(t, resp)
	assert.Equal(t, DefaultLockTimeout, clock.Now().Sub(start))
	tx.AssertNotCalled(t, "Start", mock.Anything)

	_, err := runner.Get(context.Background(), 0x02)
	assert.ErrorIs(t, err, toolpanel.ErrLockTimeout)
}

func TestRunner_CustomLockTimeout(t *testing.T) {
	clock := timeout.NewManualClock()
	runner := NewRunner(stuckLock{}, &scriptedTx{}, WithClock(clock), WithLockTimeout(5*time.Millisecond),
		WithYield(func() { clock.Advance(time.Millisecond) }))
	start := clock.Now()
	_, err := runner.Get(context.Background(), 0x02)
	assert.ErrorIs(t, err, toolpanel.ErrLockTimeout)
	assert.Equal(t, 5*time.Millisecond, clock.Now().Sub(start))
}

func TestRunner_TransportTimeoutDropsPayload(t *testing.T) {
	tx := &scriptedTx{steps: 2, status: toolpanel.StatusTimedOut, response: []byte{toolpanel.RCOK, 0x01, 0x02}}
	runner, _ := tickingRunner(&Lock{}, tx)

	ok, resp := runner.RunExchange(context.Background(), 0x02, Read, 0)
	assert.False(t, ok)
	assert.Nil(t, resp)

	resp, err := runner.Get(context.Background(), 0x02)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, toolpanel.ErrTransportTimeout)
	assert.False(t, runner.InFlight())
}

func TestRunner_LinkError(t *testing.T) {
	tx := &scriptedTx{status: toolpanel.StatusLinkError}
	runner, _ := tickingRunner(&Lock{}, tx)
	_, err := runner.Get(context.Background(), 0x02)
	assert.ErrorIs(t, err, toolpanel.ErrTransport)
}

func TestRunner_StatusFailure(t *testing.T) {
	tx := &scriptedTx{status: toolpanel.StatusOK, response: []byte{toolpanel.RCCmdUnsupported}}
	runner, _ := tickingRunner(&Lock{}, tx)

	ok, resp := runner.RunExchange(context.Background(), 0x42, Read, 0)
	assert.True(t, ok, "the exchange itself succeeded")
	assert.Equal(t, Response{toolpanel.RCCmdUnsupported}, resp)

	resp, err := runner.Control(context.Background(), 0x42, Read, 0)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, toolpanel.ErrStatus)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, toolpanel.RCCmdUnsupported, statusErr.Code)
}

func TestRunner_PayloadIsCopied(t *testing.T) {
	raw := []byte{toolpanel.RCOK, 0x10, 0x00}
	tx := &scriptedTx{status: toolpanel.StatusOK, response: raw}
	runner, _ := tickingRunner(&Lock{}, tx)

	_, resp := runner.RunExchange(context.Background(), 0x02, Read, 0)
	raw[1] = 0xFF
	assert.Equal(t, uint16(0x10), resp.Uint16(1))
}

func TestRunner_CancelledBeforeSubmission(t *testing.T) {
	tx := &scriptedTx{status: toolpanel.StatusOK, response: []byte{toolpanel.RCOK}}
	runner, _ := tickingRunner(&Lock{}, tx)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Get(ctx, 0x02)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tx.started)
}

func TestExchange_StateMachine(t *testing.T) {
	lock := &Lock{}
	tx := &scriptedTx{steps: 1, status: toolpanel.StatusOK, response: []byte{toolpanel.RCOK}}
	runner, _ := tickingRunner(lock, tx)

	ex := runner.Begin(context.Background(), Request{Command: 0x02})
	assert.Equal(t, Idle, ex.State())
	_, err := ex.Result()
	assert.Error(t, err, "result is not available before completion")

	assert.False(t, ex.Advance())
	assert.Equal(t, Submitted, ex.State())
	assert.False(t, lock.Held())

	assert.False(t, ex.Advance())
	assert.Equal(t, AwaitingResponse, ex.State())

	assert.True(t, ex.Advance())
	assert.Equal(t, Done, ex.State())
	assert.True(t, ex.Advance(), "done is terminal")

	resp, err := ex.Result()
	require.NoError(t, err)
	assert.Equal(t, Response{toolpanel.RCOK}, resp)
}

func TestExchange_SingleExchangeInFlight(t *testing.T) {
	lock := &Lock{}
	tx := &scriptedTx{steps: 5, status: toolpanel.StatusOK, response: []byte{toolpanel.RCOK}}
	runner, clock := tickingRunner(lock, tx)

	first := runner.Begin(context.Background(), Request{Command: 0x02})
	second := runner.Begin(context.Background(), Request{Command: 0x20})

	assert.False(t, first.Advance())
	assert.Equal(t, Submitted, first.State())
	assert.False(t, lock.Held())

	// the bus lock is free, but the first exchange still awaits its response
	assert.False(t, second.Advance())
	assert.Equal(t, LockPending, second.State())

	for !first.Advance() {
		assert.False(t, second.Advance())
		assert.Equal(t, LockPending, second.State())
		clock.Advance(time.Millisecond)
	}
	require.Len(t, tx.started, 1)

	assert.False(t, second.Advance())
	assert.Equal(t, Submitted, second.State())
	require.Len(t, tx.started, 2)
	assert.Equal(t, byte(0x20), tx.started[1][1])
}

func TestExchange_InFlightBoundedByLockTimeout(t *testing.T) {
	tx := &scriptedTx{steps: 1000, status: toolpanel.StatusOK, response: []byte{toolpanel.RCOK}}
	runner, clock := tickingRunner(&Lock{}, tx)

	first := runner.Begin(context.Background(), Request{Command: 0x02})
	first.Advance()
	second := runner.Begin(context.Background(), Request{Command: 0x20})
	for !second.Advance() {
		clock.Advance(time.Millisecond)
	}
	_, err := second.Result()
	assert.ErrorIs(t, err, toolpanel.ErrLockTimeout)
	assert.Len(t, tx.started, 1)
}

func TestExchange_DroppedExchangeDoesNotBlockRunner(t *testing.T) {
	tx := &scriptedTx{steps: 3, status: toolpanel.StatusOK, response: []byte{toolpanel.RCOK, 0x10, 0x00}}
	runner, clock := tickingRunner(&Lock{}, tx)

	dropped := runner.Begin(context.Background(), Request{Command: 0x02})
	assert.False(t, dropped.Advance())
	assert.Equal(t, Submitted, dropped.State())
	assert.True(t, runner.InFlight())
	clock.Advance(time.Second)

	for i := 0; i < 3; i++ {
		resp, err := runner.Get(context.Background(), 0x20)
		require.NoError(t, err)
		assert.Equal(t, Response{toolpanel.RCOK, 0x10, 0x00}, resp)
	}
	assert.False(t, runner.InFlight())
	require.Len(t, tx.started, 4)
	assert.Equal(t, byte(0x20), tx.started[1][1])

	// the outcome is still delivered to the exchange nobody advanced
	assert.Equal(t, Done, dropped.State())
	resp, err := dropped.Result()
	require.NoError(t, err)
	assert.Equal(t, Response{toolpanel.RCOK, 0x10, 0x00}, resp)
	assert.True(t, dropped.Advance())
}

func TestExchange_DroppedExchangeTimesOut(t *testing.T) {
	tx := &scriptedTx{steps: 2, status: toolpanel.StatusTimedOut}
	runner, _ := tickingRunner(&Lock{}, tx)

	dropped := runner.Begin(context.Background(), Request{Command: 0x02})
	dropped.Advance()

	_, err := runner.Get(context.Background(), 0x20)
	assert.ErrorIs(t, err, toolpanel.ErrTransportTimeout)
	assert.Len(t, tx.started, 2)
	_, err = dropped.Result()
	assert.ErrorIs(t, err, toolpanel.ErrTransportTimeout)
	assert.False(t, runner.InFlight())
}

func TestAcquire(t *testing.T) {
	clock := timeout.NewManualClock()
	tick := func() { clock.Advance(time.Millisecond) }

	lock := &Lock{}
	assert.True(t, Acquire(lock, clock, 50*time.Millisecond, tick))
	assert.True(t, lock.Held())

	start := clock.Now()
	assert.False(t, Acquire(lock, clock, 50*time.Millisecond, tick))
	assert.Equal(t, 50*time.Millisecond, clock.Now().Sub(start))

	lock.Release()
	assert.True(t, Acquire(lock, clock, 0, nil))
}
