package tool

import (
	"errors"
	"fmt"

	"github.com/sigurn/crc8"
)

// Frame layout: start byte, payload length, payload, CRC-8/Maxim of the payload.
const (
	StartByte  byte = 0xD5
	MaxPayload      = 32
	frameExtra      = 3
	MaxFrame        = MaxPayload + frameExtra
)

var (
	ErrPayloadTooBig = errors.New("packet payload too big")
	ErrCRCMismatch   = errors.New("packet crc mismatch")
)

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// Checksum computes the Dallas/Maxim (iButton) CRC used by the tool bus.
func Checksum(payload []byte) byte {
	return crc8.Checksum(payload, crcTable)
}

// Encode frames payload for the wire.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooBig, len(payload))
	}
	frame := make([]byte, 0, len(payload)+frameExtra)
	frame = append(frame, StartByte, byte(len(payload)))
	frame = append(frame, payload...)
	return append(frame, Checksum(payload)), nil
}

type decodeState byte

const (
	waitStart decodeState = iota
	waitLength
	waitPayload
	waitCRC
)

// Decoder reassembles frames from a byte stream. Bytes outside of a frame
// (line noise, idle filler) are skipped until the next start byte.
type Decoder struct {
	state   decodeState
	length  int
	n       int
	payload [MaxPayload]byte
}

func (d *Decoder) Reset() {
	d.state = waitStart
	d.length = 0
	d.n = 0
}

// Feed consumes one byte. It reports true when b completed a valid frame; the
// payload is then available from Payload until the next Feed. A broken frame
// is reported as an error and the decoder starts over.
func (d *Decoder) Feed(b byte) (bool, error) {
	switch d.state {
	case waitStart:
		if b == StartByte {
			d.state = waitLength
		}
	case waitLength:
		if int(b) > MaxPayload {
			d.Reset()
			return false, fmt.Errorf("%w: %d bytes", ErrPayloadTooBig, b)
		}
		d.length = int(b)
		d.n = 0
		d.state = waitPayload
		if d.length == 0 {
			d.state = waitCRC
		}
	case waitPayload:
		d.payload[d.n] = b
		d.n++
		if d.n == d.length {
			d.state = waitCRC
		}
	case waitCRC:
		d.state = waitStart
		if crc := Checksum(d.payload[:d.length]); crc != b {
			return false, fmt.Errorf("%w: expected %#x, got %#x", ErrCRCMismatch, crc, b)
		}
		return true, nil
	}
	return false, nil
}

func (d *Decoder) Payload() []byte {
	return d.payload[:d.length]
}
