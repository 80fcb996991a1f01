package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/toolpanel"
)

const DefaultI2CChunk = 8

// I2CLink reaches the tool controller through an I2C bridge. The slave answers
// reads with filler bytes until a response frame is ready; the frame decoder
// skips them.
type I2CLink struct {
	ctx   context.Context
	bus   toolpanel.I2CBus
	addr  byte
	chunk int
}

func NewI2CLink(ctx context.Context, bus toolpanel.I2CBus, addr byte) *I2CLink {
	return &I2CLink{ctx: ctx, bus: bus, addr: addr, chunk: DefaultI2CChunk}
}

func (l *I2CLink) Write(p []byte) (int, error) {
	if err := l.bus.WriteToAddr(l.ctx, l.addr, p); err != nil {
		return 0, fmt.Errorf("i2c write to %#x: %w", l.addr, err)
	}
	return len(p), nil
}

func (l *I2CLink) Read(p []byte) (int, error) {
	n := min(len(p), l.chunk)
	err := l.bus.ReadFromAddr(l.ctx, l.addr, p[:n])
	if errors.Is(err, toolpanel.ErrBusBusy) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("i2c read from %#x: %w", l.addr, err)
	}
	return n, nil
}

func (l *I2CLink) Close() error {
	return l.bus.Release(l.ctx)
}
