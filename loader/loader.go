// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader provides windowed datasets and concurrent batch loading for
// spatiotemporal graph records.
//
// Example usage:
//
//	ds, err := loader.NewDataset(series, // [T, N, F]
//	    loader.WithConnectivity(edgeIndex, edgeWeight),
//	    loader.WithWindow(12),
//	    loader.WithHorizon(3),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	split, _ := loader.Splitter{ValLen: 0.1, TestLen: 0.2}.Split(ds.Len())
//	l, _ := loader.New(ds, loader.DefaultConfig())
//	for b, err := range l.All(ctx, split.Train) {
//	    ...
//	}
package loader

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/stgraph/data"
	"github.com/born-ml/stgraph/internal/batch"
	"github.com/born-ml/stgraph/internal/dataset"
	"github.com/born-ml/stgraph/internal/loader"
	"github.com/born-ml/stgraph/tensor"
)

// Dataset is a read-only windowed view of a (time, nodes, features) series.
type Dataset = dataset.Dataset

// DatasetOption configures a Dataset.
type DatasetOption = dataset.Option

// Split holds sample indices per partition.
type Split = dataset.Split

// Splitter partitions samples into train, validation and test ranges.
type Splitter = dataset.Splitter

// Loader turns sample indices into collated batches.
type Loader = loader.Loader

// Source provides samples by index.
type Source = loader.Source

// Config controls batch construction.
type Config = loader.Config

// Mode selects how samples are collated.
type Mode = loader.Mode

// Collation modes.
const (
	ModeStack Mode = loader.ModeStack
	ModeUnion Mode = loader.ModeUnion
)

// Option configures a Loader.
type Option = loader.Option

// Metrics holds the loader's Prometheus collectors.
type Metrics = loader.Metrics

// Sample keys and layout.
const (
	KeyInput      = dataset.KeyInput
	KeyTarget     = dataset.KeyTarget
	TargetPattern = dataset.TargetPattern
)

// Errors.
var (
	ErrInvalidTarget        = dataset.ErrInvalidTarget
	ErrInvalidWindow        = dataset.ErrInvalidWindow
	ErrInvalidAttr          = dataset.ErrInvalidAttr
	ErrIndexOutOfRange      = dataset.ErrIndexOutOfRange
	ErrInvalidConfig        = loader.ErrInvalidConfig
	ErrEmpty                = batch.ErrEmpty
	ErrKeyMismatch          = batch.ErrKeyMismatch
	ErrConnectivityMismatch = batch.ErrConnectivityMismatch
)

// NewDataset windows target, a (time, nodes, features) series.
func NewDataset(target *tensor.RawTensor, opts ...DatasetOption) (*Dataset, error) {
	return dataset.New(target, opts...)
}

// WithMask sets a validity mask shaped like the target.
func WithMask(mask *tensor.RawTensor) DatasetOption {
	return dataset.WithMask(mask)
}

// WithCovariate adds an exogenous input with the given pattern.
func WithCovariate(name string, value *tensor.RawTensor, p string) DatasetOption {
	return dataset.WithCovariate(name, value, p)
}

// WithConnectivity sets the graph shared by every sample.
func WithConnectivity(edgeIndex, edgeWeight *tensor.RawTensor) DatasetOption {
	return dataset.WithConnectivity(edgeIndex, edgeWeight)
}

// WithScaler attaches a fitted transform to a sample key.
func WithScaler(key string, tr data.Transform) DatasetOption {
	return dataset.WithScaler(key, tr)
}

// WithWindow sets the input length.
func WithWindow(w int) DatasetOption {
	return dataset.WithWindow(w)
}

// WithHorizon sets the target length.
func WithHorizon(h int) DatasetOption {
	return dataset.WithHorizon(h)
}

// WithDelay sets the steps skipped between input and target.
func WithDelay(delay int) DatasetOption {
	return dataset.WithDelay(delay)
}

// WithStride sets the step between consecutive samples.
func WithStride(s int) DatasetOption {
	return dataset.WithStride(s)
}

// New returns a loader over src.
func New(src Source, cfg Config, opts ...Option) (*Loader, error) {
	return loader.New(src, cfg, opts...)
}

// DefaultConfig returns stacked batches of 32 built on every CPU.
func DefaultConfig() Config {
	return loader.DefaultConfig()
}

// NewMetrics registers the loader collectors with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return loader.NewMetrics(reg)
}

// WithLogger sets the loader's logger.
func WithLogger(l *slog.Logger) Option {
	return loader.WithLogger(l)
}

// WithMetrics records batch counts and build latency.
func WithMetrics(m *Metrics) Option {
	return loader.WithMetrics(m)
}

// Stack joins records along a new leading axis "b".
func Stack(records []*data.Record) (*data.Record, error) {
	return batch.Stack(records)
}

// Union joins records as a disjoint union of graphs.
func Union(records []*data.Record) (*data.Record, error) {
	return batch.Union(records)
}
