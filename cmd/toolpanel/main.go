package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/toolpanel/cmd/toolpanel/console"
	"github.com/mklimuk/toolpanel/config"
)

var version string
var commit string
var date string

const metaConfig = "config"

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := cli.NewApp()
	app.Name = "toolpanel"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "talk to the extruder controller the way the interface board does"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Usage: "enable verbose logging and frame dumps"},
		&cli.StringFlag{Name: "config", Usage: "path to the yaml configuration", EnvVars: []string{"TOOLPANEL_CONFIG"}},
		&cli.StringFlag{Name: "adapter", Usage: "tool link: sim, serial, i2c or mcp2221"},
		&cli.StringFlag{Name: "device", Usage: "serial port or i2c bus of the link"},
		&cli.IntFlag{Name: "baud", Usage: "serial baud rate"},
		&cli.UintFlag{Name: "addr", Usage: "i2c address of the tool controller"},
	}
	app.Before = func(c *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
			Prefix:          "tp",
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if c.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))

		cfg, err := effectiveConfig(c)
		if err != nil {
			return console.Exit(console.CodeUsage, "%s", err)
		}
		c.App.Metadata = map[string]interface{}{metaConfig: cfg}
		return nil
	}
	// exit codes are resolved below
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Commands = cli.Commands{
		&toolCmd,
		&renderCmd,
		&eepromCmd,
		&usbCmd,
		&configCmd,
	}
	return exitCode(app.Run(args))
}

// exitCode reports deliberate exits plainly and anything else as unexpected.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exerr cli.ExitCoder
	if errors.As(err, &exerr) {
		if msg := exerr.Error(); msg != "" {
			console.Errorln(msg)
		}
		return exerr.ExitCode()
	}
	log.Printf("unexpected error: %v", err)
	return 1
}

// effectiveConfig loads the configuration file and applies flag overrides.
func effectiveConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("adapter") {
		cfg.Tool.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		cfg.Tool.Device = c.String("device")
	}
	if c.IsSet("baud") {
		cfg.Tool.Baud = c.Int("baud")
	}
	if c.IsSet("addr") {
		addr := c.Uint("addr")
		if addr > 0x7F {
			return cfg, fmt.Errorf("%w: i2c address %#x out of range", config.ErrInvalid, addr)
		}
		cfg.Tool.Address = uint8(addr)
	}
	return cfg, cfg.Validate()
}

func configFrom(c *cli.Context) config.Config {
	if cfg, ok := c.App.Metadata[metaConfig].(config.Config); ok {
		return cfg
	}
	return config.Default()
}
