package preprocessing

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/tensor"
)

// StandardScaler removes the mean and scales to unit variance along Axes.
type StandardScaler struct {
	// Axes are the pattern axes statistics are reduced over, e.g. ["t"]
	// for one mean per node and channel.
	Axes []string

	params
}

// NewStandardScaler returns an unfitted scaler reducing over axes.
func NewStandardScaler(axes ...string) *StandardScaler {
	return &StandardScaler{Axes: axes}
}

// Fit computes the per-position mean and population standard deviation of x,
// whose dimensions are labeled by p.
func (s *StandardScaler) Fit(x *tensor.RawTensor, p string) error {
	return s.FitMasked(x, nil, p)
}

// FitMasked is Fit counting only the positions where mask is non-zero.
// A nil mask counts every position.
func (s *StandardScaler) FitMasked(x, mask *tensor.RawTensor, p string) error {
	vals, weights, pshape, norm, err := rows(x, mask, p, s.Axes)
	if err != nil {
		return err
	}
	mean := make([]float64, len(vals))
	std := make([]float64, len(vals))
	for i, row := range vals {
		var w []float64
		if weights != nil {
			w = weights[i]
		}
		if len(row) == 0 || (w != nil && floats.Sum(w) == 0) {
			mean[i], std[i] = 0, 1
			continue
		}
		mean[i], std[i] = stat.PopMeanStdDev(row, w)
	}
	fitted, err := newParams(norm, pshape, mean, std)
	if err != nil {
		return err
	}
	s.params = fitted
	return nil
}

// Pattern returns the pattern the parameters broadcast against, or "" before
// fitting.
func (s *StandardScaler) Pattern() string { return s.pattern }

// Mean returns the fitted mean, or nil.
func (s *StandardScaler) Mean() *tensor.RawTensor { return s.bias }

// Std returns the fitted standard deviation, or nil.
func (s *StandardScaler) Std() *tensor.RawTensor { return s.scale }

// Transform returns (x - mean) / std.
func (s *StandardScaler) Transform(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return s.transform(x)
}

// Inverse returns x*std + mean.
func (s *StandardScaler) Inverse(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return s.inverse(x)
}

// Rearrange returns a copy whose parameters broadcast against data with
// pattern dst.
func (s *StandardScaler) Rearrange(dst string) (data.Transform, error) {
	p, err := s.rearrange(dst)
	if err != nil {
		return nil, err
	}
	return &StandardScaler{Axes: s.Axes, params: p}, nil
}

// Tile returns a copy whose parameters cover data joined from times parts
// along axis, as in a union of graphs along the node axis.
func (s *StandardScaler) Tile(axis string, times int) (data.Transform, error) {
	p, err := s.tile(axis, times)
	if err != nil {
		return nil, err
	}
	return &StandardScaler{Axes: s.Axes, params: p}, nil
}
