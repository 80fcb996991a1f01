package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/toolpanel/timeout"
)

func TestRead8Default(t *testing.T) {
	m := NewMemory(0x100)
	assert.Equal(t, DefaultTool0Temp, Read8Default(m, AddrTool0Temp, DefaultTool0Temp))

	require.NoError(t, m.Write8(AddrTool0Temp, 235))
	assert.Equal(t, byte(235), Read8Default(m, AddrTool0Temp, DefaultTool0Temp))

	// unreadable cell
	assert.Equal(t, byte(7), Read8Default(m, 0x200, 7))
}

func TestMemory_OutOfRange(t *testing.T) {
	m := NewMemory(16)
	_, err := m.Read8(16)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, m.Write8(16, 1), ErrOutOfRange)
}

func TestFile_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.yaml")
	f, err := OpenFile(path)
	require.NoError(t, err)
	v, err := f.Read8(AddrPlatformTemp)
	require.NoError(t, err)
	assert.Equal(t, Erased, v)

	require.NoError(t, f.Write8(AddrPlatformTemp, 95))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, err = reopened.Read8(AddrPlatformTemp)
	require.NoError(t, err)
	assert.Equal(t, byte(95), v)
}

func TestFile_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cells: [1, 2"), 0o644))
	_, err := OpenFile(path)
	assert.Error(t, err)
}

// fakeChip emulates the 25AA1024 command set on top of a byte array.
type fakeChip struct {
	mem       [Capacity]byte
	enabled   bool
	busyPolls int
	writes    [][]byte
}

func (c *fakeChip) ReadCommandData(command []byte, data []byte) error {
	switch command[0] {
	case cmdRDSR:
		data[0] = 0
		if c.busyPolls > 0 {
			c.busyPolls--
			data[0] = statusWIP
		}
	case cmdRead:
		addr := uint32(command[1])<<16 | uint32(command[2])<<8 | uint32(command[3])
		copy(data, c.mem[addr:])
	default:
		return errors.New("unexpected command")
	}
	return nil
}

func (c *fakeChip) WriteBytes(data []byte) error {
	switch data[0] {
	case cmdWREN:
		c.enabled = true
	case cmdWrite:
		if !c.enabled {
			return errors.New("write not enabled")
		}
		c.enabled = false
		addr := uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
		c.writes = append(c.writes, data[4:])
		copy(c.mem[addr:], data[4:])
	}
	return nil
}

func testEEPROM(chip *fakeChip) *EEPROM {
	return &EEPROM{conn: chip, clock: timeout.System, poll: time.Microsecond}
}

func TestEEPROM_ReadWrite(t *testing.T) {
	chip := &fakeChip{busyPolls: 2}
	e := testEEPROM(chip)

	require.NoError(t, e.Write8(AddrTool0Temp, 230))
	v, err := e.Read8(AddrTool0Temp)
	require.NoError(t, err)
	assert.Equal(t, byte(230), v)
}

func TestEEPROM_PageSplit(t *testing.T) {
	chip := &fakeChip{}
	e := testEEPROM(chip)

	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, e.Write(0xF0, data))
	require.Len(t, chip.writes, 3)
	assert.Len(t, chip.writes[0], 16)
	assert.Len(t, chip.writes[1], 256)
	assert.Len(t, chip.writes[2], 28)

	back, err := e.Read(0xF0, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestEEPROM_Bounds(t *testing.T) {
	e := testEEPROM(&fakeChip{})
	_, err := e.Read(Capacity-1, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, e.Write(Capacity, []byte{1}), ErrOutOfRange)

	notStarted := &EEPROM{}
	_, err = notStarted.Read8(0)
	assert.Error(t, err)
}
