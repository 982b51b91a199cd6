package dataset

import (
	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/tensor"
)

// Option configures a Dataset.
type Option func(*Dataset)

// WithMask sets a validity mask shaped like the target.
func WithMask(mask *tensor.RawTensor) Option {
	return func(d *Dataset) { d.mask = mask }
}

// WithCovariate adds an exogenous input named name whose dimensions are
// labeled by p. Covariates with a time axis are windowed like the input;
// static ones are attached whole to every sample.
func WithCovariate(name string, value *tensor.RawTensor, p string) Option {
	return func(d *Dataset) {
		d.covariates = append(d.covariates, covariate{name: name, value: value, pattern: p})
	}
}

// WithConnectivity attaches a graph shared by every sample.
func WithConnectivity(edgeIndex, edgeWeight *tensor.RawTensor) Option {
	return func(d *Dataset) { d.edgeIndex, d.edgeWeight = edgeIndex, edgeWeight }
}

// WithScaler registers tr for the sample key ("x", "y" or a covariate name).
func WithScaler(key string, tr data.Transform) Option {
	return func(d *Dataset) {
		if d.scalers == nil {
			d.scalers = make(map[string]data.Transform)
		}
		d.scalers[key] = tr
	}
}

// WithWindow sets the number of input steps. Default 12.
func WithWindow(w int) Option {
	return func(d *Dataset) { d.window = w }
}

// WithHorizon sets the number of target steps. Default 1.
func WithHorizon(h int) Option {
	return func(d *Dataset) { d.horizon = h }
}

// WithDelay sets the steps skipped between input and target. Default 0.
func WithDelay(delay int) Option {
	return func(d *Dataset) { d.delay = delay }
}

// WithStride sets the steps between consecutive samples. Default 1.
func WithStride(s int) Option {
	return func(d *Dataset) { d.stride = s }
}
