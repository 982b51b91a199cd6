package preprocessing

import (
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/tensor"
)

// MinMaxScaler maps values to [0, 1] using the range observed along Axes.
type MinMaxScaler struct {
	Axes []string

	params
}

// NewMinMaxScaler returns an unfitted scaler reducing over axes.
func NewMinMaxScaler(axes ...string) *MinMaxScaler {
	return &MinMaxScaler{Axes: axes}
}

// Fit computes the per-position minimum and range of x, whose dimensions are
// labeled by p.
func (s *MinMaxScaler) Fit(x *tensor.RawTensor, p string) error {
	return s.FitMasked(x, nil, p)
}

// FitMasked is Fit ignoring positions where mask is zero.
func (s *MinMaxScaler) FitMasked(x, mask *tensor.RawTensor, p string) error {
	vals, weights, pshape, norm, err := rows(x, mask, p, s.Axes)
	if err != nil {
		return err
	}
	lo := make([]float64, len(vals))
	span := make([]float64, len(vals))
	for i, row := range vals {
		if weights != nil {
			row = keep(row, weights[i])
		}
		if len(row) == 0 {
			lo[i], span[i] = 0, 1
			continue
		}
		lo[i] = floats.Min(row)
		span[i] = floats.Max(row) - lo[i]
	}
	fitted, err := newParams(norm, pshape, lo, span)
	if err != nil {
		return err
	}
	s.params = fitted
	return nil
}

// Pattern returns the pattern the parameters broadcast against, or "" before
// fitting.
func (s *MinMaxScaler) Pattern() string { return s.pattern }

// Min returns the fitted minimum, or nil.
func (s *MinMaxScaler) Min() *tensor.RawTensor { return s.bias }

// Range returns the fitted max - min, or nil.
func (s *MinMaxScaler) Range() *tensor.RawTensor { return s.scale }

// Transform returns (x - min) / range.
func (s *MinMaxScaler) Transform(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return s.transform(x)
}

// Inverse returns x*range + min.
func (s *MinMaxScaler) Inverse(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return s.inverse(x)
}

// Rearrange returns a copy whose parameters broadcast against data with
// pattern dst.
func (s *MinMaxScaler) Rearrange(dst string) (data.Transform, error) {
	p, err := s.rearrange(dst)
	if err != nil {
		return nil, err
	}
	return &MinMaxScaler{Axes: s.Axes, params: p}, nil
}

// Tile returns a copy whose parameters cover data joined from times parts
// along axis, as in a union of graphs along the node axis.
func (s *MinMaxScaler) Tile(axis string, times int) (data.Transform, error) {
	p, err := s.tile(axis, times)
	if err != nil {
		return nil, err
	}
	return &MinMaxScaler{Axes: s.Axes, params: p}, nil
}
