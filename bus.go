package toolpanel

import (
	"context"
	"errors"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

var (
	ErrLockTimeout      = errors.New("tool bus lock not acquired in time")
	ErrTransportTimeout = errors.New("tool did not respond in time")
	ErrTransport        = errors.New("tool link failure")
	ErrStatus           = errors.New("tool reported failure status")
)

// TransportStatus is the outcome of a completed transaction as seen by the link layer.
type TransportStatus byte

const (
	StatusOK TransportStatus = iota
	StatusTimedOut
	StatusLinkError
)

func (s TransportStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimedOut:
		return "timed-out"
	case StatusLinkError:
		return "link-error"
	default:
		return "unknown"
	}
}

// BusLock is the ownership token of the bus shared with the tool.
// TryAcquire never blocks.
type BusLock interface {
	TryAcquire() bool
	Release()
}

// Transaction is the request/response primitive talking to the tool.
// Start submits a request; Step advances the exchange by one non-blocking
// step and reports whether it has completed. The primitive enforces its own
// exchange timeout, so Step always reports completion eventually.
// Status and Response are valid once Step returned true.
type Transaction interface {
	Start(request []byte)
	Step() bool
	Status() TransportStatus
	Response() []byte
}

// Store is a byte addressable persistent memory (EEPROM or its stand-in).
type Store interface {
	Read8(addr uint16) (byte, error)
	Write8(addr uint16, value byte) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// Response codes carried in the first byte of every tool response.
const (
	RCGenericError      byte = 0x80
	RCOK                byte = 0x81
	RCBufferOverflow    byte = 0x82
	RCCRCMismatch       byte = 0x83
	RCPacketTooBig      byte = 0x84
	RCCmdUnsupported    byte = 0x85
	RCDownstreamTimeout byte = 0x87
	RCToolLockTimeout   byte = 0x88
	RCCancelBuild       byte = 0x89
)
