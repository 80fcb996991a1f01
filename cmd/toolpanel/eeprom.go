package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/toolpanel/cmd/toolpanel/console"
	"github.com/mklimuk/toolpanel/store"
)

var eepromCmd = cli.Command{
	Name:  "eeprom",
	Usage: "read and write the persistent settings",
	Subcommands: cli.Commands{
		&eepromGetCmd,
		&eepromSetCmd,
	},
}

var namedCells = map[string]uint16{
	"tool0-temp":    store.AddrTool0Temp,
	"platform-temp": store.AddrPlatformTemp,
}

func parseCell(arg string) (uint16, error) {
	if addr, ok := namedCells[arg]; ok {
		return addr, nil
	}
	addr, err := strconv.ParseUint(arg, 0, 16)
	return uint16(addr), err
}

var eepromGetCmd = cli.Command{
	Name:      "get",
	ArgsUsage: "<address|tool0-temp|platform-temp>",
	Action: func(c *cli.Context) error {
		addr, err := parseCell(c.Args().First())
		if err != nil {
			return console.Exit(console.CodeUsage, "invalid address %q", c.Args().First())
		}
		st, closer, err := openStore(configFrom(c).Store)
		if err != nil {
			return console.Exit(1, "could not open store: %s", console.Red(err))
		}
		defer func() { _ = closer.Close() }()
		v, err := st.Read8(addr)
		if err != nil {
			return console.Exit(1, "read failed: %s", console.Red(err))
		}
		if v == store.Erased {
			console.PInfof(console.PictoKey, "%#04x: %s", addr, console.Yellow("erased"))
			return nil
		}
		console.PInfof(console.PictoKey, "%#04x: %s", addr, console.White(v))
		return nil
	},
}

var eepromSetCmd = cli.Command{
	Name:      "set",
	ArgsUsage: "<address|tool0-temp|platform-temp> <value>",
	Action: func(c *cli.Context) error {
		addr, err := parseCell(c.Args().Get(0))
		if err != nil {
			return console.Exit(console.CodeUsage, "invalid address %q", c.Args().Get(0))
		}
		v, err := strconv.ParseUint(c.Args().Get(1), 0, 8)
		if err != nil {
			return console.Exit(console.CodeUsage, "invalid value %q", c.Args().Get(1))
		}
		st, closer, err := openStore(configFrom(c).Store)
		if err != nil {
			return console.Exit(1, "could not open store: %s", console.Red(err))
		}
		defer func() { _ = closer.Close() }()
		if err := st.Write8(addr, byte(v)); err != nil {
			return console.Exit(1, "write failed: %s", console.Red(err))
		}
		console.Infof("%#04x set to %s", addr, console.Green(v))
		return nil
	},
}
