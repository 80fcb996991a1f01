package arbiter

import (
	"encoding/binary"
	"fmt"

	"github.com/mklimuk/toolpanel"
)

// Response is the raw payload returned by the tool. The first byte is the
// status code, the layout of the rest depends on the command.
type Response []byte

// Status returns the status byte, 0 for an empty response.
func (r Response) Status() byte {
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

// Uint8 reads the byte at off. Reading outside the payload panics: the
// payload layout of every command is fixed and known to the caller.
func (r Response) Uint8(off int) uint8 {
	return r[off]
}

// Uint16 reads a little-endian word at off.
func (r Response) Uint16(off int) uint16 {
	return binary.LittleEndian.Uint16(r[off : off+2])
}

// StatusError is returned when the tool answered with a status other than RCOK.
type StatusError struct {
	Code byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tool status %#x", e.Code)
}

func (e *StatusError) Unwrap() error {
	return toolpanel.ErrStatus
}

// Classify returns nil iff the response carries the RCOK status. Every other
// status is a failure; nothing is retried.
func Classify(r Response) error {
	if len(r) == 0 {
		return fmt.Errorf("empty response: %w", toolpanel.ErrTransport)
	}
	if r[0] != toolpanel.RCOK {
		return &StatusError{Code: r[0]}
	}
	return nil
}
