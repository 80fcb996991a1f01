// Package panel implements the tool related readouts and actions of the
// interface board menus on top of the transaction runner.
package panel

import (
	"context"
	"fmt"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/arbiter"
	"github.com/mklimuk/toolpanel/render"
	"github.com/mklimuk/toolpanel/store"
	"github.com/mklimuk/toolpanel/tool"
)

// Placeholder shown instead of a value that could not be read.
const Placeholder = "XXX"

type Heater byte

const (
	Extruder Heater = iota
	Platform
)

type heater struct {
	name        string
	label       string
	get         byte
	getSetpoint byte
	setSetpoint byte
	addr        uint16
	def         byte
}

var heaters = [...]heater{
	Extruder: {"extruder", "Tool: ", tool.CmdGetTemp, tool.CmdGetSetpoint, tool.CmdSetTemp, store.AddrTool0Temp, store.DefaultTool0Temp},
	Platform: {"platform", "Bed:  ", tool.CmdGetPlatformTemp, tool.CmdGetPlatformSetpoint, tool.CmdSetPlatformTemp, store.AddrPlatformTemp, store.DefaultPlatformTemp},
}

func (h Heater) String() string {
	if int(h) < len(heaters) {
		return heaters[h].name
	}
	return "unknown"
}

func ParseHeater(name string) (Heater, error) {
	for i, h := range heaters {
		if h.name == name {
			return Heater(i), nil
		}
	}
	return 0, fmt.Errorf("unknown heater %q", name)
}

// Reading is a value read from the tool; OK is false when the readout failed.
type Reading struct {
	Value uint16
	OK    bool
}

// Append renders the reading as a 3 column field.
func (r Reading) Append(buf []byte) int {
	if !r.OK {
		return render.AppendString(buf, Placeholder)
	}
	return render.AppendUint16(buf, r.Value, 3)
}

type HeaterReadings struct {
	Current  Reading
	Setpoint Reading
}

type Temperatures struct {
	Tool     HeaterReadings
	Platform HeaterReadings
}

// Line renders the readings of a heater, e.g. "Tool: 220/230C".
func (t Temperatures) Line(h Heater) render.Line {
	r := t.Tool
	if h == Platform {
		r = t.Platform
	}
	var l render.Line
	l.AppendString(heaters[h].label)
	r.Current.Append(l[:])
	l.AppendString("/")
	r.Setpoint.Append(l[:])
	l.AppendString("C")
	return l
}

// VersionInfo is the firmware version of the tool controller.
type VersionInfo struct {
	Major uint8
	Minor uint8
	OK    bool
}

// String renders the version the way the menu does: one digit each, "X.X"
// when the version is unknown.
func (v VersionInfo) String() string {
	if !v.OK {
		return "X.X"
	}
	var l render.Line
	l.AppendUint16(uint16(v.Major), 1)
	l.AppendString(".")
	l.AppendUint16(uint16(v.Minor), 1)
	return l.String()
}

// Tool talks to the extruder controller through the arbiter.
type Tool struct {
	runner *arbiter.Runner
}

func NewTool(runner *arbiter.Runner) *Tool {
	return &Tool{runner: runner}
}

func (t *Tool) read(ctx context.Context, cmd byte) Reading {
	resp, err := t.runner.Get(ctx, cmd)
	if err != nil || len(resp) < 3 {
		return Reading{}
	}
	return Reading{Value: resp.Uint16(1), OK: true}
}

// Temperatures reads current values and setpoints of both heaters. Each
// value is read in its own exchange; a failure only affects that value.
func (t *Tool) Temperatures(ctx context.Context) Temperatures {
	var temps Temperatures
	for _, h := range []Heater{Extruder, Platform} {
		r := HeaterReadings{
			Current:  t.read(ctx, heaters[h].get),
			Setpoint: t.read(ctx, heaters[h].getSetpoint),
		}
		if h == Extruder {
			temps.Tool = r
		} else {
			temps.Platform = r
		}
	}
	return temps
}

func (t *Tool) Version(ctx context.Context) VersionInfo {
	r := t.read(ctx, tool.CmdVersion)
	if !r.OK {
		return VersionInfo{}
	}
	return VersionInfo{Major: uint8(r.Value / 100), Minor: uint8(r.Value % 100), OK: true}
}

// MotorActive reports whether the extruder motor is driven.
func (t *Tool) MotorActive(ctx context.Context) (bool, error) {
	resp, err := t.runner.Get(ctx, tool.CmdGetMotor1PWM)
	if err != nil {
		return false, err
	}
	if len(resp) < 2 {
		return false, fmt.Errorf("short motor pwm response: %w", toolpanel.ErrTransport)
	}
	return resp.Uint8(1) != 0, nil
}

func (t *Tool) Setpoint(ctx context.Context, h Heater) (uint16, error) {
	resp, err := t.runner.Get(ctx, heaters[h].getSetpoint)
	if err != nil {
		return 0, err
	}
	if len(resp) < 3 {
		return 0, fmt.Errorf("short %s setpoint response: %w", h, toolpanel.ErrTransport)
	}
	return resp.Uint16(1), nil
}

func (t *Tool) SetSetpoint(ctx context.Context, h Heater, value uint16) error {
	_, err := t.runner.Set(ctx, heaters[h].setSetpoint, value)
	return err
}

// TogglePreheat switches a heater off when it has a setpoint, or on at the
// preheat temperature kept in s otherwise. It returns the new setpoint.
func (t *Tool) TogglePreheat(ctx context.Context, h Heater, s toolpanel.Store) (uint16, error) {
	current, err := t.Setpoint(ctx, h)
	if err != nil {
		return 0, fmt.Errorf("could not read %s setpoint: %w", h, err)
	}
	var next uint16
	if current == 0 {
		next = uint16(store.Read8Default(s, heaters[h].addr, heaters[h].def))
	}
	if err := t.SetSetpoint(ctx, h, next); err != nil {
		return 0, fmt.Errorf("could not set %s setpoint: %w", h, err)
	}
	return next, nil
}
