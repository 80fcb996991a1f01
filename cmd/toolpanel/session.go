package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/adapter"
	"github.com/mklimuk/toolpanel/arbiter"
	"github.com/mklimuk/toolpanel/config"
	"github.com/mklimuk/toolpanel/i2c"
	"github.com/mklimuk/toolpanel/panel"
	"github.com/mklimuk/toolpanel/store"
	"github.com/mklimuk/toolpanel/tool"
	"github.com/mklimuk/toolpanel/tpctx"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// session holds everything a command needs to talk to the tool.
type session struct {
	ctx     context.Context
	cfg     config.Config
	runner  *arbiter.Runner
	tool    *panel.Tool
	closers []io.Closer
}

func openSession(c *cli.Context) (*session, error) {
	s := &session{
		ctx: tpctx.SetVerbose(c.Context, c.Bool("verbose")),
		cfg: configFrom(c),
	}
	link, err := s.openLink()
	if err != nil {
		s.Close()
		return nil, err
	}
	slice := tool.NewSlice(link,
		tool.WithResponseTimeout(s.cfg.Tool.ResponseTimeout),
		tool.WithVerbose(tpctx.IsVerbose(s.ctx)),
	)
	s.runner = arbiter.NewRunner(&arbiter.Lock{}, slice, arbiter.WithLockTimeout(s.cfg.Tool.LockTimeout))
	s.tool = panel.NewTool(s.runner)
	slog.Debug("tool session open", "adapter", s.cfg.Tool.Adapter, "device", s.cfg.Tool.Device)
	return s, nil
}

func (s *session) openLink() (tool.Link, error) {
	t := s.cfg.Tool
	switch t.Adapter {
	case config.AdapterSim:
		return tool.NewSimulator(), nil
	case config.AdapterSerial:
		link, err := tool.OpenSerial(tool.SerialConfig{Device: t.Device, Baud: t.Baud})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, link)
		return link, nil
	case config.AdapterI2C:
		bus, err := i2c.NewGenericBus(t.Device)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, bus)
		if err := bus.SetSpeed(i2c.DefaultSpeed); err != nil {
			slog.Warn("keeping default bus speed", "error", err)
		}
		return tool.NewI2CLink(s.ctx, bus, t.Address), nil
	case config.AdapterMCP2221:
		link := tool.NewI2CLink(s.ctx, adapter.NewMCP2221(), t.Address)
		s.closers = append(s.closers, link)
		return link, nil
	default:
		return nil, fmt.Errorf("%w: unknown adapter %q", config.ErrInvalid, t.Adapter)
	}
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			slog.Warn("could not close link", "error", err)
		}
	}
}

// openStore opens the persistent memory holding the preheat settings.
func openStore(cfg config.Store) (toolpanel.Store, io.Closer, error) {
	nop := closerFunc(func() error { return nil })
	switch cfg.Kind {
	case config.StoreMemory:
		return store.NewMemory(store.Capacity), nop, nil
	case config.StoreFile:
		f, err := store.OpenFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, nop, nil
	case config.StoreSPI:
		e := store.NewEEPROM(nanopi.NewNeoAdaptor(), cfg.Bus, cfg.Chip)
		if err := e.Start(); err != nil {
			return nil, nil, fmt.Errorf("could not start eeprom: %w", err)
		}
		return e, closerFunc(e.Halt), nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalid, cfg.Kind)
	}
}
