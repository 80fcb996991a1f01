package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Link adapters reaching the tool controller.
const (
	AdapterSim     = "sim"
	AdapterSerial  = "serial"
	AdapterI2C     = "i2c"
	AdapterMCP2221 = "mcp2221"
)

// Store kinds backing the preheat settings.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSPI    = "spi"
)

var ErrInvalid = errors.New("invalid configuration")

type Tool struct {
	Adapter         string        `yaml:"adapter"`
	Device          string        `yaml:"device"`
	Baud            int           `yaml:"baud"`
	Address         uint8         `yaml:"address"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
}

type Store struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
	Bus  int    `yaml:"bus"`
	Chip int    `yaml:"chip"`
}

type Config struct {
	Tool  Tool  `yaml:"tool"`
	Store Store `yaml:"store"`
}

func Default() Config {
	return Config{
		Tool: Tool{
			Adapter:         AdapterSim,
			Device:          "/dev/ttyUSB0",
			Baud:            38400,
			Address:         0x10,
			LockTimeout:     50 * time.Millisecond,
			ResponseTimeout: 50 * time.Millisecond,
		},
		Store: Store{
			Kind: StoreFile,
			Path: "toolpanel-eeprom.yaml",
		},
	}
}

// Load reads the configuration at path on top of the defaults. An empty path
// or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("could not open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("could not decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Tool.Adapter {
	case AdapterSim, AdapterSerial, AdapterI2C, AdapterMCP2221:
	default:
		return fmt.Errorf("%w: unknown adapter %q", ErrInvalid, c.Tool.Adapter)
	}
	if c.Tool.Adapter == AdapterSerial && c.Tool.Baud <= 0 {
		return fmt.Errorf("%w: baud rate must be positive", ErrInvalid)
	}
	if c.Tool.Address > 0x7F {
		return fmt.Errorf("%w: i2c address %#x out of range", ErrInvalid, c.Tool.Address)
	}
	if c.Tool.LockTimeout <= 0 || c.Tool.ResponseTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	}
	switch c.Store.Kind {
	case StoreMemory, StoreSPI:
	case StoreFile:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: file store needs a path", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store.Kind)
	}
	return nil
}

// Dump writes the effective configuration as yaml.
func (c Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	return enc.Close()
}
