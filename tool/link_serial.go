package tool

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// DefaultSerialReadTimeout is the smallest non-blocking read timeout of
// tarm/serial on posix, which counts in whole deciseconds.
const DefaultSerialReadTimeout = 100 * time.Millisecond

type SerialConfig struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// serialPort is the part of a tarm port the link uses.
type serialPort interface {
	io.ReadWriteCloser
	Flush() error
}

// SerialLink talks to the tool over an RS485 transceiver attached to a serial
// port. A background reader drains the port so Read returns immediately with
// whatever has arrived, however long the port read timeout is.
type SerialLink struct {
	port serialPort
	name string

	mx      sync.Mutex
	pending []byte
	err     error
	done    chan struct{}
}

func OpenSerial(cfg SerialConfig) (*SerialLink, error) {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultSerialReadTimeout
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", cfg.Device, err)
	}
	return newSerialLink(port, cfg.Device), nil
}

func newSerialLink(port serialPort, name string) *SerialLink {
	l := &SerialLink{port: port, name: name, done: make(chan struct{})}
	go l.pump()
	return l
}

func (l *SerialLink) pump() {
	defer close(l.done)
	chunk := make([]byte, MaxFrame)
	for {
		n, err := l.port.Read(chunk)
		l.mx.Lock()
		l.pending = append(l.pending, chunk[:n]...)
		// an expired read timeout surfaces as EOF
		if err != nil && !errors.Is(err, io.EOF) {
			l.err = err
		}
		l.mx.Unlock()
		if err != nil && !errors.Is(err, io.EOF) {
			slog.Debug("serial reader stopped", "device", l.name, "error", err)
			return
		}
	}
}

// Read returns the bytes received so far without waiting for more. Once the
// buffer is drained it reports the error that stopped the reader, if any.
func (l *SerialLink) Read(p []byte) (int, error) {
	l.mx.Lock()
	defer l.mx.Unlock()
	n := copy(p, l.pending)
	l.pending = l.pending[n:]
	if n == 0 && l.err != nil {
		return 0, fmt.Errorf("serial read from %s: %w", l.name, l.err)
	}
	return n, nil
}

func (l *SerialLink) Write(p []byte) (int, error) {
	n, err := l.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("serial write to %s: %w", l.name, err)
	}
	return n, nil
}

// Flush discards unread input, both in the port and in the link buffer.
func (l *SerialLink) Flush() error {
	err := l.port.Flush()
	l.mx.Lock()
	l.pending = nil
	l.mx.Unlock()
	return err
}

// Close closes the port and waits for the background reader to stop.
func (l *SerialLink) Close() error {
	err := l.port.Close()
	<-l.done
	return err
}
