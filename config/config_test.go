package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
tool:
  adapter: serial
  device: /dev/ttyS1
  lock_timeout: 20ms
store:
  kind: memory
`))
	require.NoError(t, err)
	assert.Equal(t, AdapterSerial, cfg.Tool.Adapter)
	assert.Equal(t, "/dev/ttyS1", cfg.Tool.Device)
	assert.Equal(t, 20*time.Millisecond, cfg.Tool.LockTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, 38400, cfg.Tool.Baud)
	assert.Equal(t, 50*time.Millisecond, cfg.Tool.ResponseTimeout)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"adapter", "tool: {adapter: usb}"},
		{"address", "tool: {address: 200}"},
		{"timeout", "tool: {lock_timeout: 0s}"},
		{"store", "store: {kind: flash}"},
		{"file path", "store: {kind: file, path: ''}"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(test.doc))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
	_, err := Decode(strings.NewReader("tool: {colour: red}"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDump_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Dump(&buf))
	assert.Contains(t, buf.String(), "adapter: sim")
	cfg, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
