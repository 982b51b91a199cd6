// Package config loads stgraph settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/stgraph/internal/dataset"
	"github.com/born-ml/stgraph/internal/loader"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the full stgraph configuration.
type Config struct {
	Dataset      DatasetConfig      `yaml:"dataset"`
	Window       WindowConfig       `yaml:"window"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Scaler       ScalerConfig       `yaml:"scaler"`
	Loader       LoaderConfig       `yaml:"loader"`
	Log          LogConfig          `yaml:"log"`
}

// DatasetConfig locates the series and sets the temporal split.
type DatasetConfig struct {
	// Path is a CSV file with one row per step and N*Channels columns,
	// node-major.
	Path     string  `yaml:"path"`
	Channels int     `yaml:"channels" validate:"min=1"`
	ValLen   float64 `yaml:"val_len" validate:"gte=0"`
	TestLen  float64 `yaml:"test_len" validate:"gte=0"`
}

// WindowConfig sets the sample geometry.
type WindowConfig struct {
	Window  int `yaml:"window" validate:"min=1"`
	Horizon int `yaml:"horizon" validate:"min=1"`
	Delay   int `yaml:"delay" validate:"gte=0"`
	Stride  int `yaml:"stride" validate:"min=1"`
}

// ConnectivityConfig builds the graph from a distance matrix.
type ConnectivityConfig struct {
	// Path is a square CSV distance matrix; empty means no graph.
	Path      string  `yaml:"path"`
	Theta     float64 `yaml:"theta" validate:"gte=0"`
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
	SelfLoops bool    `yaml:"self_loops"`
}

// ScalerConfig selects the target normalization.
type ScalerConfig struct {
	Kind string   `yaml:"kind" validate:"oneof=none standard minmax"`
	Axes []string `yaml:"axes" validate:"dive,oneof=t n f"`
}

// LoaderConfig controls batching.
type LoaderConfig struct {
	Workers   int    `yaml:"workers" validate:"gte=0"` // 0 uses every CPU
	BatchSize int    `yaml:"batch_size" validate:"min=1"`
	Mode      string `yaml:"mode" validate:"oneof=stack union"`
	DropLast  bool   `yaml:"drop_last"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Dataset: DatasetConfig{Channels: 1, ValLen: 0.1, TestLen: 0.2},
		Window: WindowConfig{
			Window:  dataset.DefaultWindow,
			Horizon: dataset.DefaultHorizon,
			Delay:   dataset.DefaultDelay,
			Stride:  dataset.DefaultStride,
		},
		Connectivity: ConnectivityConfig{Threshold: 0.1},
		Scaler:       ScalerConfig{Kind: "standard", Axes: []string{"t"}},
		Loader:       LoaderConfig{BatchSize: 32, Mode: string(loader.ModeStack)},
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: config path is chosen by the user
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are errors.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Options returns the dataset window options.
func (w WindowConfig) Options() []dataset.Option {
	return []dataset.Option{
		dataset.WithWindow(w.Window),
		dataset.WithHorizon(w.Horizon),
		dataset.WithDelay(w.Delay),
		dataset.WithStride(w.Stride),
	}
}

// Splitter returns the temporal splitter. The gap removes window overlap
// between partitions.
func (d DatasetConfig) Splitter(gap int) dataset.Splitter {
	return dataset.Splitter{ValLen: d.ValLen, TestLen: d.TestLen, Gap: gap}
}

// Loader converts to the loader configuration.
func (l LoaderConfig) Loader() loader.Config {
	workers := l.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return loader.Config{
		Workers:   workers,
		BatchSize: l.BatchSize,
		Mode:      loader.Mode(l.Mode),
		DropLast:  l.DropLast,
	}
}

// SlogLevel returns the configured level.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Handler returns a slog handler writing to w.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
