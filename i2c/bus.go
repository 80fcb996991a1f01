package i2c

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/toolpanel"
)

var _ toolpanel.I2CBus = &GenericBus{}

// DefaultSpeed is the standard mode clock of the tool bus.
const DefaultSpeed = 100 * physic.KiloHertz

// GenericBus is an I2C bus of the host (e.g. /dev/i2c-1 on a single board computer).
type GenericBus struct {
	bus  i2c.BusCloser
	name string
}

func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus %q: %w", dev, err)
	}
	return &GenericBus{bus: bus, name: bus.String()}, nil
}

// SetSpeed changes the bus clock.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	if err := b.bus.SetSpeed(f); err != nil {
		return fmt.Errorf("could not set %s speed to %s: %w", b.name, f, err)
	}
	return nil
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := b.bus.Tx(uint16(address), nil, buffer); err != nil {
		return fmt.Errorf("could not read from %s at %#x: %w", b.name, address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := b.bus.Tx(uint16(address), buffer, nil); err != nil {
		return fmt.Errorf("could not write to %s at %#x: %w", b.name, address, err)
	}
	return nil
}

// Release is a no-op; the kernel driver frees the bus after every transfer.
func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
