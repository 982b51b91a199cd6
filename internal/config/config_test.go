package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stgraph/internal/loader"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 12, cfg.Window.Window)
	assert.Equal(t, "standard", cfg.Scaler.Kind)
	assert.Equal(t, []string{"t"}, cfg.Scaler.Axes)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
dataset:
  path: traffic.csv
  channels: 2
window:
  window: 24
  horizon: 3
scaler:
  kind: minmax
  axes: [t, n]
loader:
  workers: 2
  batch_size: 8
  mode: union
  drop_last: true
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "traffic.csv", cfg.Dataset.Path)
	assert.Equal(t, 2, cfg.Dataset.Channels)
	// Unset fields keep their defaults.
	assert.Equal(t, 0.2, cfg.Dataset.TestLen)
	assert.Equal(t, 1, cfg.Window.Stride)
	assert.Equal(t, []string{"t", "n"}, cfg.Scaler.Axes)

	lc := cfg.Loader.Loader()
	assert.Equal(t, loader.Config{Workers: 2, BatchSize: 8, Mode: loader.ModeUnion, DropLast: true}, lc)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Len(t, cfg.Window.Options(), 4)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, runtime.NumCPU(), cfg.Loader.Loader().Workers)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "window:\n  size: 3\n"},
		{"syntax", "window: [\n"},
		{"window", "window:\n  window: 0\n"},
		{"delay", "window:\n  delay: -1\n"},
		{"scaler kind", "scaler:\n  kind: robust\n"},
		{"scaler axis", "scaler:\n  axes: [x]\n"},
		{"mode", "loader:\n  mode: zip\n"},
		{"threshold", "connectivity:\n  threshold: 2\n"},
		{"log level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(dir, "stgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window:\n  horizon: 6\n"), 0o600))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Window.Horizon)
}

func TestSplitter(t *testing.T) {
	s := Default().Dataset.Splitter(3)
	assert.Equal(t, 0.1, s.ValLen)
	assert.Equal(t, 0.2, s.TestLen)
	assert.Equal(t, 3, s.Gap)
}
