package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/tpctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

const (
	cmdStatus       = 0x10
	cmdI2CWrite     = 0x90
	cmdI2CRead      = 0x91
	cmdI2CGetData   = 0x40
	cancelTransfer  = 0x10
	engineBusy      = 0x01
	readDataError   = 0x41
	invalidDataSize = 127
)

var ErrDeviceNotFound = errors.New("MCP2221 device not found")
var ErrAmbiguousDevice = fmt.Errorf("ambiguous device identification")

var _ toolpanel.I2CBus = &MCP2221{}

// Opener returns a handle to the HID interface of the bridge.
type Opener func() (io.ReadWriteCloser, error)

// OpenHID opens the index-th MCP2221 found on the USB. A negative index
// requires exactly one bridge to be connected.
func OpenHID(index int) Opener {
	return func() (io.ReadWriteCloser, error) {
		devs := hid.Enumerate(VendorID, ProductID)
		if len(devs) == 0 {
			return nil, ErrDeviceNotFound
		}
		if index < 0 {
			if len(devs) > 1 {
				return nil, ErrAmbiguousDevice
			}
			index = 0
		}
		if index >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", index)
		}
		dev, err := devs[index].Open()
		if err != nil {
			return nil, fmt.Errorf("error opening device: %w", err)
		}
		return dev, nil
	}
}

type MCP2221Opts struct {
	Opener       Opener
	ResponseWait time.Duration
}

type MCP2221Opt func(*MCP2221Opts)

func WithOpener(opener Opener) MCP2221Opt {
	return func(o *MCP2221Opts) {
		o.Opener = opener
	}
}

// WithResponseWait delays reading of every report after a request was written.
func WithResponseWait(d time.Duration) MCP2221Opt {
	return func(o *MCP2221Opts) {
		o.ResponseWait = d
	}
}

// MCP2221 is the USB to I2C bridge used to reach the tool controller from a host.
type MCP2221 struct {
	mx           sync.Mutex
	open         Opener
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"buffer_counter"`
	I2CSpeedDivider        int    `yaml:"speed_divider"`
	I2CTimeout             int    `yaml:"timeout"`
	CurrentAddress         string `yaml:"address"`
	LastWriteRequestedSize uint16 `yaml:"requested_size"`
	LastWriteSentSize      uint16 `yaml:"sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	config := MCP2221Opts{Opener: OpenHID(-1)}
	for _, opt := range opts {
		opt(&config)
	}
	return &MCP2221{
		open:         config.Opener,
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: config.ResponseWait,
	}
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CWrite
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] == engineBusy {
		slog.Debug("adapter busy", "address", address)
		return toolpanel.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CRead
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == engineBusy {
		slog.Debug("adapter busy", "address", address)
		return toolpanel.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdI2CGetData
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == readDataError {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if d.response[3] == invalidDataSize || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	if err := d.send(ctx); err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

// ReleaseBus cancels a pending I2C transfer and frees the bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = cancelTransfer
	if err := d.send(ctx); err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9-10: requested I2C transfer length (LE)
		11-12: already transferred number of bytes (LE)
		13: internal I2C data buffer counter
		14: current I2C communication speed divider value
		15: current I2C timeout value
		16-17: I2C address being used
		25: read pending
	*/
	return &MCP2221Status{
		I2CDataBufferCounter:   int(buffer[13]),
		I2CSpeedDivider:        int(buffer[14]),
		I2CTimeout:             int(buffer[15]),
		ReadPending:            int(buffer[25]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
	}
}

func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("could not close adapter", "error", err)
		}
	}()
	verbose := tpctx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "report", hex.EncodeToString(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	if d.responseWait > 0 {
		time.Sleep(d.responseWait)
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "report", hex.EncodeToString(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
