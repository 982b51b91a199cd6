// Package preprocessing provides per-key normalization transforms whose
// parameters follow the axis pattern of the data they scale.
package preprocessing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/pattern"
	"github.com/born-ml/stgraph/internal/tensor"
)

// Common errors.
var (
	ErrNotFitted   = errors.New("scaler is not fitted")
	ErrUnknownAxis = errors.New("axis not in pattern")
	ErrShape       = errors.New("data does not broadcast with scaler parameters")
)

// minScale replaces scales at or below it to avoid dividing by ~0.
const minScale = 1e-12

// params holds the affine parameters shared by all scalers:
// transform(x) = (x - bias) / scale.
//
// bias and scale have the rank of the data they were fitted on, with size 1
// on every reduced axis.
type params struct {
	pattern string
	bias    *tensor.RawTensor
	scale   *tensor.RawTensor
}

func (p *params) fitted() bool {
	return p.bias != nil && p.scale != nil
}

func (p *params) transform(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return p.affine(x, func(v, b, s float64) float64 { return (v - b) / s })
}

func (p *params) inverse(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return p.affine(x, func(v, b, s float64) float64 { return v*s + b })
}

func (p *params) affine(x *tensor.RawTensor, fn func(v, b, s float64) float64) (*tensor.RawTensor, error) {
	if !p.fitted() {
		return nil, ErrNotFitted
	}
	shape := x.Shape()
	pshape := p.bias.Shape()
	if len(shape) != len(pshape) {
		return nil, fmt.Errorf("%w: data %v, parameters %v", ErrShape, shape, pshape)
	}
	for i := range shape {
		if pshape[i] != 1 && pshape[i] != shape[i] {
			return nil, fmt.Errorf("%w: data %v, parameters %v", ErrShape, shape, pshape)
		}
	}

	// Parameter stride per data dimension; 0 on broadcast dimensions.
	pstrides := pshape.ComputeStrides()
	for i := range pstrides {
		if pshape[i] == 1 {
			pstrides[i] = 0
		}
	}
	strides := shape.ComputeStrides()

	vals := x.Float64s()
	bias, scale := p.bias.AsFloat64(), p.scale.AsFloat64()
	for i := range vals {
		idx, pi := i, 0
		for d := range strides {
			pi += (idx / strides[d]) * pstrides[d]
			idx %= strides[d]
		}
		vals[i] = fn(vals[i], bias[pi], scale[pi])
	}

	dtype := x.DType()
	if !dtype.IsFloat() {
		dtype = tensor.Float64
	}
	out, err := tensor.FromFloat64s(vals, shape, dtype)
	if err != nil {
		return nil, err
	}
	return out.To(x.Device()), nil
}

func (p *params) rearrange(dst string) (params, error) {
	if !p.fitted() {
		return params{}, ErrNotFitted
	}
	dst, err := pattern.Check(dst, -1)
	if err != nil {
		return params{}, err
	}
	bias, err := pattern.RearrangeParams(p.bias, p.pattern, dst)
	if err != nil {
		return params{}, fmt.Errorf("bias: %w", err)
	}
	scale, err := pattern.RearrangeParams(p.scale, p.pattern, dst)
	if err != nil {
		return params{}, fmt.Errorf("scale: %w", err)
	}
	return params{pattern: dst, bias: bias, scale: scale}, nil
}

// tile repeats the parameters times along axis, so that they cover data
// concatenated along axis from times parts shaped like the fitted data.
// The returned params share tensors with p when nothing needs repeating.
func (p *params) tile(axis string, times int) (params, error) {
	if !p.fitted() {
		return params{}, ErrNotFitted
	}
	if times < 1 {
		return params{}, fmt.Errorf("%w: cannot tile %d times", ErrShape, times)
	}
	dim, ok := pattern.Index(p.pattern, axis)
	if !ok {
		return params{}, fmt.Errorf("%w: %q in %q", ErrUnknownAxis, axis, p.pattern)
	}
	// A size-1 axis already broadcasts over any number of parts.
	if p.bias.Shape()[dim] == 1 {
		return *p, nil
	}
	repeat := func(t *tensor.RawTensor) (*tensor.RawTensor, error) {
		parts := make([]*tensor.RawTensor, times)
		for i := range parts {
			parts[i] = t
		}
		return tensor.Cat(parts, dim)
	}
	bias, err := repeat(p.bias)
	if err != nil {
		return params{}, fmt.Errorf("bias: %w", err)
	}
	scale, err := repeat(p.scale)
	if err != nil {
		return params{}, fmt.Errorf("scale: %w", err)
	}
	return params{pattern: p.pattern, bias: bias, scale: scale}, nil
}

// rows groups the values of x by the kept (non-reduced) positions. It
// returns one slice per kept position, the matching per-row mask weights
// (nil without mask) and the parameter shape.
func rows(x, mask *tensor.RawTensor, p string, axes []string) ([][]float64, [][]float64, tensor.Shape, string, error) {
	norm, err := pattern.Check(p, x.NDim())
	if err != nil {
		return nil, nil, nil, "", err
	}
	if mask != nil && !mask.Shape().Equal(x.Shape()) {
		return nil, nil, nil, "", fmt.Errorf("%w: mask %v, data %v", ErrShape, mask.Shape(), x.Shape())
	}

	reduced := make([]int, 0, len(axes))
	for _, a := range axes {
		dim, ok := pattern.Index(norm, a)
		if !ok {
			return nil, nil, nil, "", fmt.Errorf("%w: %q in %q", ErrUnknownAxis, a, norm)
		}
		reduced = append(reduced, dim)
	}

	var kept []int
	pshape := x.Shape().Clone()
	for d := range pshape {
		if slices.Contains(reduced, d) {
			pshape[d] = 1
		} else {
			kept = append(kept, d)
		}
	}

	// Kept dimensions first, then reduced ones: each row is contiguous.
	perm := append(slices.Clone(kept), reduced...)
	nrows := pshape.NumElements()
	ncols := 1
	for _, d := range reduced {
		ncols *= x.Shape()[d]
	}

	split := func(t *tensor.RawTensor) [][]float64 {
		vals := tensor.Permute(t, perm...).Float64s()
		out := make([][]float64, nrows)
		for r := range out {
			out[r] = vals[r*ncols : (r+1)*ncols]
		}
		return out
	}

	var weights [][]float64
	if mask != nil {
		weights = split(mask)
	}
	return split(x), weights, pshape, norm, nil
}

func newParams(p string, pshape tensor.Shape, bias, scale []float64) (params, error) {
	for i, s := range scale {
		if s <= minScale {
			scale[i] = 1
		}
	}
	b, err := tensor.FromFloat64s(bias, pshape, tensor.Float64)
	if err != nil {
		return params{}, err
	}
	s, err := tensor.FromFloat64s(scale, pshape, tensor.Float64)
	if err != nil {
		return params{}, err
	}
	return params{pattern: p, bias: b, scale: s}, nil
}

var (
	_ data.Transform = (*StandardScaler)(nil)
	_ data.Transform = (*MinMaxScaler)(nil)
)

func keep(row, w []float64) []float64 {
	out := make([]float64, 0, len(row))
	for i, v := range row {
		if w[i] != 0 {
			out = append(out, v)
		}
	}
	return out
}
