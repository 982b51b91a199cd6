package tensor

import (
	"bytes"
	"fmt"
	"math"
)

// FromSlice creates a CPU tensor holding a copy of data.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}

	var dummy T
	raw := mustRaw(shape, inferDataType(dummy), CPU)
	switch src := any(data).(type) {
	case []float32:
		copy(raw.AsFloat32(), src)
	case []float64:
		copy(raw.AsFloat64(), src)
	case []int32:
		copy(raw.AsInt32(), src)
	case []int64:
		copy(raw.AsInt64(), src)
	case []uint8:
		copy(raw.AsUint8(), src)
	case []bool:
		copy(raw.AsBool(), src)
	}
	return raw, nil
}

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	raw, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return raw
}

// Zeros creates a zero-filled CPU tensor.
func Zeros(shape Shape, dtype DataType) *RawTensor {
	return mustRaw(shape, dtype, CPU)
}

// Full creates a CPU tensor filled with value.
func Full(shape Shape, dtype DataType, value float64) *RawTensor {
	vals := make([]float64, shape.NumElements())
	for i := range vals {
		vals[i] = value
	}
	raw, err := FromFloat64s(vals, shape, dtype)
	if err != nil {
		panic(err)
	}
	return raw
}

// Arange creates a tensor whose elements are 0, 1, ..., n-1 in row-major order.
func Arange(shape Shape, dtype DataType) *RawTensor {
	vals := make([]float64, shape.NumElements())
	for i := range vals {
		vals[i] = float64(i)
	}
	raw, err := FromFloat64s(vals, shape, dtype)
	if err != nil {
		panic(err)
	}
	return raw
}

// Float64s returns a float64 copy of the tensor's elements in row-major order.
// Booleans map to 0 and 1.
func (r *RawTensor) Float64s() []float64 {
	out := make([]float64, r.NumElements())
	switch r.dtype {
	case Float32:
		for i, v := range r.AsFloat32() {
			out[i] = float64(v)
		}
	case Float64:
		copy(out, r.AsFloat64())
	case Int32:
		for i, v := range r.AsInt32() {
			out[i] = float64(v)
		}
	case Int64:
		for i, v := range r.AsInt64() {
			out[i] = float64(v)
		}
	case Uint8:
		for i, v := range r.AsUint8() {
			out[i] = float64(v)
		}
	case Bool:
		for i, v := range r.AsBool() {
			if v {
				out[i] = 1
			}
		}
	}
	return out
}

// FromFloat64s creates a CPU tensor of dtype from float64 values.
// Integer targets truncate toward zero; Bool is true for non-zero values.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(values) != shape.NumElements() {
		return nil, fmt.Errorf("values length %d does not match shape %v", len(values), shape)
	}

	raw := mustRaw(shape, dtype, CPU)
	switch dtype {
	case Float32:
		dst := raw.AsFloat32()
		for i, v := range values {
			dst[i] = float32(v)
		}
	case Float64:
		copy(raw.AsFloat64(), values)
	case Int32:
		dst := raw.AsInt32()
		for i, v := range values {
			dst[i] = int32(v)
		}
	case Int64:
		dst := raw.AsInt64()
		for i, v := range values {
			dst[i] = int64(v)
		}
	case Uint8:
		dst := raw.AsUint8()
		for i, v := range values {
			dst[i] = uint8(v)
		}
	case Bool:
		dst := raw.AsBool()
		for i, v := range values {
			dst[i] = v != 0
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %v", dtype)
	}
	return raw, nil
}

// Cast converts x to dtype. It is a no-op when the dtype already matches.
// Integer conversions go through float64 and are exact up to 2^53.
func Cast(x *RawTensor, dtype DataType) *RawTensor {
	if x.dtype == dtype {
		return x
	}
	out, err := FromFloat64s(x.Float64s(), x.shape, dtype)
	if err != nil {
		panic(fmt.Sprintf("cast: %v", err))
	}
	out.device = x.device
	out.requiresGrad = x.requiresGrad && dtype.IsFloat()
	return out
}

// Permute reorders the dimensions of x: result dim i is source dim axes[i].
// With no axes the dimensions are reversed.
func Permute(x *RawTensor, axes ...int) *RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("permute: axes length %d != ndim %d", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("permute: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("permute: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result := mustRaw(newShape, x.dtype, x.device)
	result.requiresGrad = x.requiresGrad

	n := shape.NumElements()
	if n == 0 {
		return result
	}

	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()
	// Destination stride of every source dimension.
	mapped := make([]int, ndim)
	for dstDim, srcDim := range axes {
		mapped[srcDim] = dstStrides[dstDim]
	}

	size := x.dtype.Size()
	src, dst := x.Data(), result.Data()
	for i := 0; i < n; i++ {
		idx, dstIdx := i, 0
		for dim := 0; dim < ndim; dim++ {
			dstIdx += (idx / srcStrides[dim]) * mapped[dim]
			idx %= srcStrides[dim]
		}
		copy(dst[dstIdx*size:(dstIdx+1)*size], src[i*size:(i+1)*size])
	}
	return result
}

// Transpose swaps two dimensions of x.
func Transpose(x *RawTensor, dim0, dim1 int) *RawTensor {
	axes := make([]int, x.NDim())
	for i := range axes {
		axes[i] = i
	}
	axes[dim0], axes[dim1] = axes[dim1], axes[dim0]
	return Permute(x, axes...)
}

// Reshape returns a view of x with a new shape. The buffer is shared.
// One dimension may be -1 and is inferred from the element count.
func Reshape(x *RawTensor, shape Shape) (*RawTensor, error) {
	target := shape.Clone()
	infer := -1
	known := 1
	for i, dim := range target {
		switch {
		case dim == -1 && infer >= 0:
			return nil, fmt.Errorf("reshape: more than one inferred dimension in %v", shape)
		case dim == -1:
			infer = i
		case dim < 0:
			return nil, fmt.Errorf("reshape: invalid dimension %d in %v", dim, shape)
		default:
			known *= dim
		}
	}
	if infer >= 0 {
		if known == 0 || x.NumElements()%known != 0 {
			return nil, fmt.Errorf("reshape: cannot infer dimension for %v -> %v", x.Shape(), shape)
		}
		target[infer] = x.NumElements() / known
	}

	if target.NumElements() != x.NumElements() {
		return nil, fmt.Errorf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			x.Shape(), shape)
	}

	view := x.Clone()
	view.shape = target
	return view, nil
}

// Unsqueeze returns a view of x with a size-1 dimension inserted at dim.
func Unsqueeze(x *RawTensor, dim int) *RawTensor {
	d, err := NormalizeDim(dim, x.NDim()+1)
	if err != nil {
		panic(fmt.Sprintf("unsqueeze: %v", err))
	}
	shape := make(Shape, 0, x.NDim()+1)
	shape = append(shape, x.shape[:d]...)
	shape = append(shape, 1)
	shape = append(shape, x.shape[d:]...)
	view := x.Clone()
	view.shape = shape
	return view
}

// Cat concatenates tensors along dim. All tensors must share dtype and every
// dimension except dim.
func Cat(xs []*RawTensor, dim int) (*RawTensor, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("cat: no tensors")
	}
	first := xs[0]
	d, err := NormalizeDim(dim, first.NDim())
	if err != nil {
		return nil, fmt.Errorf("cat: %w", err)
	}

	outShape := first.shape.Clone()
	outShape[d] = 0
	for i, x := range xs {
		if x.dtype != first.dtype {
			return nil, fmt.Errorf("cat: tensor %d has dtype %s, want %s", i, x.dtype, first.dtype)
		}
		if x.NDim() != first.NDim() {
			return nil, fmt.Errorf("cat: tensor %d has %d dims, want %d", i, x.NDim(), first.NDim())
		}
		for j := range x.shape {
			if j != d && x.shape[j] != first.shape[j] {
				return nil, fmt.Errorf("cat: tensor %d shape %v incompatible with %v on dim %d",
					i, x.shape, first.shape, j)
			}
		}
		outShape[d] += x.shape[d]
	}

	result := mustRaw(outShape, first.dtype, first.device)
	outer := Shape(first.shape[:d]).NumElements()
	size := first.dtype.Size()
	dst := result.Data()
	pos := 0
	for o := 0; o < outer; o++ {
		for _, x := range xs {
			chunk := Shape(x.shape[d:]).NumElements() * size
			copy(dst[pos:pos+chunk], x.Data()[o*chunk:(o+1)*chunk])
			pos += chunk
		}
	}
	return result, nil
}

// Stack joins tensors of identical shape along a new dimension dim.
func Stack(xs []*RawTensor, dim int) (*RawTensor, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("stack: no tensors")
	}
	views := make([]*RawTensor, len(xs))
	for i, x := range xs {
		if !x.shape.Equal(xs[0].shape) {
			return nil, fmt.Errorf("stack: tensor %d shape %v differs from %v", i, x.shape, xs[0].shape)
		}
		views[i] = Unsqueeze(x, dim)
	}
	return Cat(views, dim)
}

// Narrow copies the slice [start, start+length) of x along dim.
func Narrow(x *RawTensor, dim, start, length int) (*RawTensor, error) {
	d, err := NormalizeDim(dim, x.NDim())
	if err != nil {
		return nil, fmt.Errorf("narrow: %w", err)
	}
	if start < 0 || length < 0 || start+length > x.shape[d] {
		return nil, fmt.Errorf("narrow: range [%d, %d) out of bounds for dim %d of size %d",
			start, start+length, d, x.shape[d])
	}

	outShape := x.shape.Clone()
	outShape[d] = length
	result := mustRaw(outShape, x.dtype, x.device)
	result.requiresGrad = x.requiresGrad

	outer := Shape(x.shape[:d]).NumElements()
	inner := Shape(x.shape[d+1:]).NumElements() * x.dtype.Size()
	src, dst := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		from := (o*x.shape[d] + start) * inner
		to := o * length * inner
		copy(dst[to:to+length*inner], src[from:from+length*inner])
	}
	return result, nil
}

// Equal reports whether a and b have the same dtype, shape and bytes.
func Equal(a, b *RawTensor) bool {
	return a.dtype == b.dtype && a.shape.Equal(b.shape) && bytes.Equal(a.Data(), b.Data())
}

// AllClose reports whether a and b have the same shape and element-wise
// differences within tol. NaNs compare equal to NaNs.
func AllClose(a, b *RawTensor, tol float64) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	av, bv := a.Float64s(), b.Float64s()
	for i := range av {
		if math.IsNaN(av[i]) && math.IsNaN(bv[i]) {
			continue
		}
		if math.Abs(av[i]-bv[i]) > tol {
			return false
		}
	}
	return true
}
