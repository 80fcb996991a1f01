package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/toolpanel/cmd/toolpanel/console"
	"github.com/mklimuk/toolpanel/render"
)

var renderFlags = []cli.Flag{
	&cli.IntFlag{Name: "capacity", Usage: "buffer size, terminator included", Value: render.LineWidth + 1},
	&cli.StringFlag{Name: "prefix", Usage: "text already in the buffer"},
}

var renderCmd = cli.Command{
	Name:  "render",
	Usage: "preview display fields",
	Subcommands: cli.Commands{
		&renderUint8Cmd,
		&renderTimeCmd,
	},
}

// preview prepares a buffer holding the prefix and prints it after fn appended to it.
func preview(c *cli.Context, fn func(buf []byte) int) error {
	capacity := c.Int("capacity")
	if capacity < 1 || capacity > 256 {
		return console.Exit(console.CodeUsage, "capacity out of range: %d", capacity)
	}
	buf := make([]byte, capacity)
	render.AppendString(buf, c.String("prefix"))
	n := fn(buf)
	end := 0
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	console.Printf("[%s] appended %s\n", string(buf[:end]), console.White(n))
	return nil
}

var renderUint8Cmd = cli.Command{
	Name:      "uint8",
	ArgsUsage: "<0-255>",
	Flags:     renderFlags,
	Action: func(c *cli.Context) error {
		val, err := strconv.ParseUint(c.Args().First(), 0, 8)
		if err != nil {
			return console.Exit(console.CodeUsage, "invalid value %q", c.Args().First())
		}
		return preview(c, func(buf []byte) int { return render.AppendUint8(buf, uint8(val)) })
	},
}

var renderTimeCmd = cli.Command{
	Name:      "time",
	ArgsUsage: "<seconds>",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "centi", Usage: "the value is in centiseconds"},
	}, renderFlags...),
	Action: func(c *cli.Context) error {
		val, err := strconv.ParseUint(c.Args().First(), 0, 32)
		if err != nil {
			return console.Exit(console.CodeUsage, "invalid value %q", c.Args().First())
		}
		v := uint32(val)
		if !c.Bool("centi") {
			v = render.Centiseconds(v)
		}
		return preview(c, func(buf []byte) int { return render.AppendTime(buf, v) })
	},
}
