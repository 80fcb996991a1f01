package store

import (
	"fmt"
	"time"

	"gobot.io/x/gobot/v2/drivers/spi"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/timeout"
)

// Microchip 25AA1024 instruction set.
const (
	cmdRead  = 0x03
	cmdWrite = 0x02
	cmdWREN  = 0x06
	cmdRDSR  = 0x05

	statusWIP = 0x01

	pageSize = 256
	// Capacity of the 25AA1024 in bytes.
	Capacity = 131072

	writeCycle = 10 * time.Millisecond
)

// spiConn is the part of a gobot SPI connection the EEPROM needs.
type spiConn interface {
	ReadCommandData(command []byte, data []byte) error
	WriteBytes(data []byte) error
}

var _ toolpanel.Store = &EEPROM{}

// EEPROM is the 25AA1024 SPI memory of the board.
type EEPROM struct {
	driver *spi.Driver
	conn   spiConn
	clock  timeout.Clock
	poll   time.Duration
}

// NewEEPROM binds the memory to a gobot SPI connector (e.g. a nanopi adaptor).
func NewEEPROM(adaptor spi.Connector, bus, chip int) *EEPROM {
	d := spi.NewDriver(adaptor, "eeprom", spi.WithBusNumber(bus), spi.WithChipNumber(chip))
	// mode 0, up to 20MHz per datasheet
	d.SetMode(0)
	if d.GetSpeedOrDefault(0) == 0 {
		d.SetSpeed(5_000_000)
	}
	return &EEPROM{driver: d, clock: timeout.System, poll: 500 * time.Microsecond}
}

func (e *EEPROM) Start() error {
	if err := e.driver.Start(); err != nil {
		return fmt.Errorf("could not start spi driver: %w", err)
	}
	conn, ok := e.driver.Connection().(spiConn)
	if !ok {
		return fmt.Errorf("spi connection does not support required operations")
	}
	e.conn = conn
	return nil
}

func (e *EEPROM) Halt() error {
	return e.driver.Halt()
}

func (e *EEPROM) Read8(addr uint16) (byte, error) {
	data, err := e.Read(uint32(addr), 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (e *EEPROM) Write8(addr uint16, value byte) error {
	return e.Write(uint32(addr), []byte{value})
}

// Read returns length bytes starting at address.
func (e *EEPROM) Read(address uint32, length int) ([]byte, error) {
	if address+uint32(length) > Capacity {
		return nil, fmt.Errorf("%w: read %d bytes at %#x", ErrOutOfRange, length, address)
	}
	if e.conn == nil {
		return nil, fmt.Errorf("eeprom not started")
	}
	data := make([]byte, length)
	if err := e.conn.ReadCommandData(header(cmdRead, address), data); err != nil {
		return nil, fmt.Errorf("eeprom read at %#x: %w", address, err)
	}
	return data, nil
}

// Write splits data at page boundaries and waits for every internal write
// cycle to complete.
func (e *EEPROM) Write(address uint32, data []byte) error {
	if address+uint32(len(data)) > Capacity {
		return fmt.Errorf("%w: write %d bytes at %#x", ErrOutOfRange, len(data), address)
	}
	if e.conn == nil {
		return fmt.Errorf("eeprom not started")
	}
	for len(data) > 0 {
		space := pageSize - int(address%pageSize)
		chunk := data[:min(space, len(data))]
		if err := e.pageWrite(address, chunk); err != nil {
			return err
		}
		data = data[len(chunk):]
		address += uint32(len(chunk))
	}
	return nil
}

func (e *EEPROM) pageWrite(address uint32, data []byte) error {
	if err := e.conn.WriteBytes([]byte{cmdWREN}); err != nil {
		return fmt.Errorf("eeprom write enable: %w", err)
	}
	if err := e.conn.WriteBytes(append(header(cmdWrite, address), data...)); err != nil {
		return fmt.Errorf("eeprom page write at %#x: %w", address, err)
	}
	return e.waitUntilReady()
}

func (e *EEPROM) waitUntilReady() error {
	t := timeout.New(e.clock)
	t.Start(writeCycle)
	status := make([]byte, 1)
	for {
		if err := e.conn.ReadCommandData([]byte{cmdRDSR}, status); err != nil {
			return fmt.Errorf("eeprom status: %w", err)
		}
		if status[0]&statusWIP == 0 {
			return nil
		}
		if t.HasElapsed() {
			return fmt.Errorf("timeout waiting for write completion")
		}
		time.Sleep(e.poll)
	}
}

// header builds an opcode followed by a 24 bit address.
func header(cmd byte, address uint32) []byte {
	return []byte{cmd, byte(address >> 16), byte(address >> 8), byte(address)}
}
