package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/toolpanel"
)

// Erased is the value of a cell that was never written.
const Erased byte = 0xFF

// Preheat defaults kept in the persistent memory of the board.
const (
	AddrTool0Temp    uint16 = 0x0080
	AddrPlatformTemp uint16 = 0x0081

	DefaultTool0Temp    byte = 220
	DefaultPlatformTemp byte = 110
)

var ErrOutOfRange = errors.New("address out of range")

// Read8Default reads a single cell and falls back to def when the cell is
// erased or cannot be read.
func Read8Default(s toolpanel.Store, addr uint16, def byte) byte {
	v, err := s.Read8(addr)
	if err != nil || v == Erased {
		return def
	}
	return v
}

var _ toolpanel.Store = &Memory{}

// Memory is a volatile store; every cell starts erased.
type Memory struct {
	mx    sync.RWMutex
	cells map[uint16]byte
	size  int
}

func NewMemory(size int) *Memory {
	return &Memory{cells: make(map[uint16]byte), size: size}
}

func (m *Memory) Read8(addr uint16) (byte, error) {
	if int(addr) >= m.size {
		return 0, fmt.Errorf("%w: %#04x", ErrOutOfRange, addr)
	}
	m.mx.RLock()
	defer m.mx.RUnlock()
	if v, ok := m.cells[addr]; ok {
		return v, nil
	}
	return Erased, nil
}

func (m *Memory) Write8(addr uint16, value byte) error {
	if int(addr) >= m.size {
		return fmt.Errorf("%w: %#04x", ErrOutOfRange, addr)
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	m.cells[addr] = value
	return nil
}
