// Package dataset cuts a (time, nodes, features) series into sliding-window
// records of input history and forecast targets.
package dataset

import (
	"fmt"

	"github.com/born-ml/stgraph/internal/connectivity"
	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/pattern"
	"github.com/born-ml/stgraph/internal/tensor"
)

// Sample keys.
const (
	KeyInput  = "x"
	KeyTarget = "y"
)

// TargetPattern labels the dimensions of the target series.
const TargetPattern = "t n f"

// Defaults.
const (
	DefaultWindow  = 12
	DefaultHorizon = 1
	DefaultDelay   = 0
	DefaultStride  = 1
)

type covariate struct {
	name    string
	value   *tensor.RawTensor
	pattern string
	timeDim int // -1 when static
}

// Dataset is a read-only windowed view of a spatiotemporal series. Get builds
// a fresh record per call, so concurrent calls are safe.
type Dataset struct {
	target     *tensor.RawTensor
	mask       *tensor.RawTensor
	covariates []covariate
	edgeIndex  *tensor.RawTensor
	edgeWeight *tensor.RawTensor
	scalers    map[string]data.Transform

	window, horizon, delay, stride int
}

// New builds a dataset over target, a (T, N, F) series.
func New(target *tensor.RawTensor, opts ...Option) (*Dataset, error) {
	d := &Dataset{
		target:  target,
		window:  DefaultWindow,
		horizon: DefaultHorizon,
		delay:   DefaultDelay,
		stride:  DefaultStride,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) validate() error {
	if d.target == nil || d.target.NDim() != 3 {
		var shape tensor.Shape
		if d.target != nil {
			shape = d.target.Shape()
		}
		return fmt.Errorf("%w: shape %v, want [T, N, F]", ErrInvalidTarget, shape)
	}
	if d.window < 1 || d.horizon < 1 || d.delay < 0 || d.stride < 1 {
		return fmt.Errorf("%w: window=%d horizon=%d delay=%d stride=%d",
			ErrInvalidWindow, d.window, d.horizon, d.delay, d.stride)
	}
	if d.mask != nil && !d.mask.Shape().Equal(d.target.Shape()) {
		return fmt.Errorf("%w: mask shape %v, target %v", ErrInvalidAttr, d.mask.Shape(), d.target.Shape())
	}

	for i := range d.covariates {
		c := &d.covariates[i]
		if c.name == KeyInput || c.name == KeyTarget {
			return fmt.Errorf("%w: covariate name %q is reserved", ErrInvalidAttr, c.name)
		}
		if c.value == nil {
			return fmt.Errorf("%w: covariate %q is nil", ErrInvalidAttr, c.name)
		}
		p, err := pattern.Check(c.pattern, c.value.NDim())
		if err != nil {
			return fmt.Errorf("covariate %q: %w", c.name, err)
		}
		c.pattern = p
		c.timeDim = -1
		if dim, ok := pattern.Index(p, pattern.AxisTime); ok {
			if c.value.Shape()[dim] != d.NumSteps() {
				return fmt.Errorf("%w: covariate %q has %d steps, target %d",
					ErrInvalidAttr, c.name, c.value.Shape()[dim], d.NumSteps())
			}
			c.timeDim = dim
		}
	}

	for key := range d.scalers {
		if !d.hasKey(key) {
			return fmt.Errorf("%w: scaler for unknown key %q", ErrInvalidAttr, key)
		}
	}

	if d.edgeIndex != nil {
		if err := connectivity.Validate(d.edgeIndex, d.NumNodes()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) hasKey(key string) bool {
	if key == KeyInput || key == KeyTarget {
		return true
	}
	for _, c := range d.covariates {
		if c.name == key {
			return true
		}
	}
	return false
}

// NumSteps returns T.
func (d *Dataset) NumSteps() int { return d.target.Shape()[0] }

// NumNodes returns N.
func (d *Dataset) NumNodes() int { return d.target.Shape()[1] }

// NumChannels returns F.
func (d *Dataset) NumChannels() int { return d.target.Shape()[2] }

// Window returns the number of input steps.
func (d *Dataset) Window() int { return d.window }

// Horizon returns the number of target steps.
func (d *Dataset) Horizon() int { return d.horizon }

// SampleSpan returns the number of consecutive steps one sample covers.
func (d *Dataset) SampleSpan() int { return d.window + d.delay + d.horizon }

// Len returns the number of samples.
func (d *Dataset) Len() int {
	free := d.NumSteps() - d.SampleSpan()
	if free < 0 {
		return 0
	}
	return free/d.stride + 1
}

// Indices returns 0..Len()-1.
func (d *Dataset) Indices() []int {
	idx := make([]int, d.Len())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Target returns the full target series.
func (d *Dataset) Target() *tensor.RawTensor { return d.target }

// Scaler returns the transform registered for key.
func (d *Dataset) Scaler(key string) (data.Transform, bool) {
	tr, ok := d.scalers[key]
	return tr, ok
}

// Get builds sample i. Input keys with a registered scaler are returned
// transformed; targets stay in raw units and carry their transform.
func (d *Dataset) Get(i int) (*data.Record, error) {
	if i < 0 || i >= d.Len() {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, d.Len())
	}
	start := i * d.stride
	yStart := start + d.window + d.delay

	x, err := tensor.Narrow(d.target, 0, start, d.window)
	if err != nil {
		return nil, err
	}
	y, err := tensor.Narrow(d.target, 0, yStart, d.horizon)
	if err != nil {
		return nil, err
	}

	inputs := []data.Entry{data.E(KeyInput, x)}
	patterns := map[string]string{KeyInput: TargetPattern, KeyTarget: TargetPattern}
	for _, c := range d.covariates {
		v := c.value.Clone()
		if c.timeDim >= 0 {
			if v, err = tensor.Narrow(c.value, c.timeDim, start, d.window); err != nil {
				return nil, fmt.Errorf("covariate %q: %w", c.name, err)
			}
		}
		inputs = append(inputs, data.E(c.name, v))
		patterns[c.name] = c.pattern
	}

	opts := []data.Option{
		data.WithInput(inputs...),
		data.WithTarget(data.E(KeyTarget, y)),
		data.WithPattern(patterns),
		data.WithTransform(d.scalers),
	}
	if d.mask != nil {
		m, err := tensor.Narrow(d.mask, 0, yStart, d.horizon)
		if err != nil {
			return nil, err
		}
		opts = append(opts, data.WithMask(m))
		patterns[data.KeyMask] = TargetPattern
	}
	if d.edgeIndex != nil {
		var ew *tensor.RawTensor
		if d.edgeWeight != nil {
			ew = d.edgeWeight.Clone()
		}
		opts = append(opts, data.WithConnectivity(d.edgeIndex.Clone(), ew))
	}

	rec, err := data.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", i, err)
	}
	for _, k := range rec.Input().KeyList() {
		if _, ok := d.scalers[k]; ok {
			if err := rec.TransformKey(k); err != nil {
				return nil, fmt.Errorf("sample %d: %w", i, err)
			}
		}
	}
	return rec, nil
}
