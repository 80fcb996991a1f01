package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/toolpanel/cmd/toolpanel/console"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective configuration",
	Action: func(c *cli.Context) error {
		if err := configFrom(c).Dump(console.Writer()); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		return nil
	},
}
