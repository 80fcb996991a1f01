package main

import (
	"encoding/hex"
	"errors"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/toolpanel"
	"github.com/mklimuk/toolpanel/arbiter"
	"github.com/mklimuk/toolpanel/cmd/toolpanel/console"
	"github.com/mklimuk/toolpanel/panel"
	"github.com/mklimuk/toolpanel/tool"
)

var heaterFlag = &cli.StringFlag{Name: "heater", Usage: "extruder or platform", Value: panel.Extruder.String()}

var toolCmd = cli.Command{
	Name:  "tool",
	Usage: "extruder controller readouts and settings",
	Subcommands: cli.Commands{
		&toolStatusCmd,
		&toolVersionCmd,
		&toolSetCmd,
		&toolPreheatCmd,
		&toolRawCmd,
	},
}

// toolExit maps tool errors to exit codes.
func toolExit(err error, msg string) cli.ExitCoder {
	code := console.CodeLink
	if errors.Is(err, toolpanel.ErrStatus) {
		code = console.CodeToolError
	}
	return console.Exit(code, "%s: %s", msg, console.Red(err))
}

var toolStatusCmd = cli.Command{
	Name:  "status",
	Usage: "show temperatures and motor state",
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return console.Exit(console.CodeLink, "could not open tool link: %s", console.Red(err))
		}
		defer s.Close()
		temps := s.tool.Temperatures(s.ctx)
		tl, bl := temps.Line(panel.Extruder), temps.Line(panel.Platform)
		console.PInfof(console.PictoThermometer, "%s", console.White(tl.String()))
		console.PInfof(console.PictoThermometer, "%s", console.White(bl.String()))
		active, err := s.tool.MotorActive(s.ctx)
		if err != nil {
			console.Warnf("motor state unavailable: %s", err)
			return nil
		}
		console.PInfof(console.PictoGear, "motor %s", console.OnOff(active))
		return nil
	},
}

var toolVersionCmd = cli.Command{
	Name:  "version",
	Usage: "show the firmware version of the tool",
	Action: func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return console.Exit(console.CodeLink, "could not open tool link: %s", console.Red(err))
		}
		defer s.Close()
		console.Printf("Tool v%s\n", console.Bold(s.tool.Version(s.ctx)))
		return nil
	},
}

var toolSetCmd = cli.Command{
	Name:      "set",
	Usage:     "set a heater setpoint",
	ArgsUsage: "<celsius>",
	Flags: []cli.Flag{
		heaterFlag,
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		h, err := panel.ParseHeater(c.String("heater"))
		if err != nil {
			return console.Exit(console.CodeUsage, "%s", err)
		}
		value, err := strconv.ParseUint(c.Args().First(), 10, 16)
		if err != nil {
			return console.Exit(console.CodeUsage, "invalid setpoint %q", c.Args().First())
		}
		if !c.Bool("yes") {
			ok, err := console.Confirm("set " + h.String() + " to " + strconv.FormatUint(value, 10) + "C?")
			if err != nil {
				return console.Exit(1, "prompt failed: %s", err)
			}
			if !ok {
				return nil
			}
		}
		s, err := openSession(c)
		if err != nil {
			return console.Exit(console.CodeLink, "could not open tool link: %s", console.Red(err))
		}
		defer s.Close()
		if err := s.tool.SetSetpoint(s.ctx, h, uint16(value)); err != nil {
			return toolExit(err, "could not set setpoint")
		}
		console.Infof("%s setpoint %s", h, console.Green(value))
		return nil
	},
}

var toolPreheatCmd = cli.Command{
	Name:  "preheat",
	Usage: "toggle preheating of a heater",
	Flags: []cli.Flag{heaterFlag},
	Action: func(c *cli.Context) error {
		h, err := panel.ParseHeater(c.String("heater"))
		if err != nil {
			return console.Exit(console.CodeUsage, "%s", err)
		}
		st, closer, err := openStore(configFrom(c).Store)
		if err != nil {
			return console.Exit(1, "could not open store: %s", console.Red(err))
		}
		defer func() { _ = closer.Close() }()
		s, err := openSession(c)
		if err != nil {
			return console.Exit(console.CodeLink, "could not open tool link: %s", console.Red(err))
		}
		defer s.Close()
		next, err := s.tool.TogglePreheat(s.ctx, h, st)
		if err != nil {
			return toolExit(err, "could not toggle preheat")
		}
		if next == 0 {
			console.Infof("%s preheat %s", h, console.OnOff(false))
			return nil
		}
		console.Infof("%s preheat %s at %dC", h, console.OnOff(true), next)
		return nil
	},
}

var toolRawCmd = cli.Command{
	Name:      "raw",
	Usage:     "run a single exchange and dump the response",
	ArgsUsage: "<command> [value]",
	Action: func(c *cli.Context) error {
		cmd, err := strconv.ParseUint(c.Args().Get(0), 0, 8)
		if err != nil {
			return console.Exit(console.CodeUsage, "invalid command %q", c.Args().Get(0))
		}
		mode, value := arbiter.Read, uint64(0)
		if c.NArg() > 1 {
			mode = arbiter.Write
			value, err = strconv.ParseUint(c.Args().Get(1), 0, 16)
			if err != nil {
				return console.Exit(console.CodeUsage, "invalid value %q", c.Args().Get(1))
			}
		}
		s, err := openSession(c)
		if err != nil {
			return console.Exit(console.CodeLink, "could not open tool link: %s", console.Red(err))
		}
		defer s.Close()
		ok, resp := s.runner.RunExchange(s.ctx, byte(cmd), mode, uint16(value))
		if !ok {
			return console.Exit(console.CodeLink, "%s: no response", tool.CommandName(byte(cmd)))
		}
		status := console.Green("ok")
		if err := arbiter.Classify(resp); err != nil {
			status = console.Red(err)
		}
		console.Printf("%s %s %s\n", tool.CommandName(byte(cmd)), status, hex.EncodeToString(resp))
		return nil
	},
}
