package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/toolpanel/adapter"
	"github.com/mklimuk/toolpanel/cmd/toolpanel/console"
	"github.com/mklimuk/toolpanel/tpctx"
)

// USB to I2C bridges able to reach the tool controller.
var bridges = []struct {
	name      string
	vendorID  uint16
	productID uint16
}{
	{"MCP2221", adapter.VendorID, adapter.ProductID},
	{"CP2112", 0x10C4, 0xEA90},
}

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "usb bridges",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
		&usbStatusCmd,
		&usbReleaseCmd,
	},
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list all HID devices",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\n")
		for _, dev := range hid.Enumerate(0, 0) {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list connected bridges",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(os.Stdout, 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "VENDOR\tPRODUCT\tBRIDGE\n")
		for _, b := range bridges {
			for _, dev := range hid.Enumerate(b.vendorID, b.productID) {
				_, _ = fmt.Fprintf(w, "%#x\t%#x\t%s\n", dev.VendorID, dev.ProductID, b.name)
			}
		}
		return w.Flush()
	},
}

func printStatus(status *adapter.MCP2221Status) error {
	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(status); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return enc.Close()
}

var usbStatusCmd = cli.Command{
	Name:  "status",
	Usage: "show the I2C engine state of the MCP2221",
	Action: func(c *cli.Context) error {
		ctx := tpctx.SetVerbose(c.Context, c.Bool("verbose"))
		status, err := adapter.NewMCP2221().Status(ctx)
		if err != nil {
			return console.Exit(console.CodeLink, "adapter communication error: %s", console.Red(err))
		}
		return printStatus(status)
	},
}

var usbReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a stuck I2C transfer of the MCP2221",
	Action: func(c *cli.Context) error {
		ctx := tpctx.SetVerbose(c.Context, c.Bool("verbose"))
		status, err := adapter.NewMCP2221().ReleaseBus(ctx)
		if err != nil {
			return console.Exit(console.CodeLink, "adapter communication error: %s", console.Red(err))
		}
		return printStatus(status)
	},
}
