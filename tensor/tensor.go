// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types used by stgraph records.
//
// The package defines:
//   - RawTensor: a shaped, typed, reference-counted byte buffer
//   - Shape, DataType, Device: core type definitions
//   - constructors and the layout operations records rely on
//
// Example:
//
//	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	y := tensor.Transpose(x, 0, 1) // shape [3, 2]
package tensor

import (
	"github.com/born-ml/stgraph/internal/tensor"
)

// DType is a constraint for tensor element types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Device records where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{12, 5, 2} is 12 steps of 5 nodes with 2 channels.
type Shape = tensor.Shape

// RawTensor is the value type stored in records.
type RawTensor = tensor.RawTensor

// NewRaw allocates a zeroed tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice creates a CPU tensor holding a copy of data.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice[T DType](data []T, shape Shape) *RawTensor {
	return tensor.MustFromSlice(data, shape)
}

// FromFloat64s creates a CPU tensor of dtype from float64 values.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.FromFloat64s(values, shape, dtype)
}

// Zeros creates a zero-filled CPU tensor.
func Zeros(shape Shape, dtype DataType) *RawTensor {
	return tensor.Zeros(shape, dtype)
}

// Full creates a CPU tensor filled with value.
func Full(shape Shape, dtype DataType, value float64) *RawTensor {
	return tensor.Full(shape, dtype, value)
}

// Arange creates a tensor holding 0, 1, ..., n-1 in row-major order.
func Arange(shape Shape, dtype DataType) *RawTensor {
	return tensor.Arange(shape, dtype)
}

// Cast converts x to dtype.
func Cast(x *RawTensor, dtype DataType) *RawTensor {
	return tensor.Cast(x, dtype)
}

// Transpose swaps two dimensions.
func Transpose(x *RawTensor, dim0, dim1 int) *RawTensor {
	return tensor.Transpose(x, dim0, dim1)
}

// Permute reorders dimensions.
func Permute(x *RawTensor, axes ...int) *RawTensor {
	return tensor.Permute(x, axes...)
}

// Reshape returns x with a new shape; one dimension may be -1.
func Reshape(x *RawTensor, shape Shape) (*RawTensor, error) {
	return tensor.Reshape(x, shape)
}

// Cat concatenates tensors along dim.
func Cat(xs []*RawTensor, dim int) (*RawTensor, error) {
	return tensor.Cat(xs, dim)
}

// Stack joins tensors of identical shape along a new dimension.
func Stack(xs []*RawTensor, dim int) (*RawTensor, error) {
	return tensor.Stack(xs, dim)
}

// Narrow copies [start, start+length) of x along dim.
func Narrow(x *RawTensor, dim, start, length int) (*RawTensor, error) {
	return tensor.Narrow(x, dim, start, length)
}

// Equal reports whether a and b have the same dtype, shape and bytes.
func Equal(a, b *RawTensor) bool {
	return tensor.Equal(a, b)
}

// AllClose reports whether a and b agree element-wise within tol.
func AllClose(a, b *RawTensor, tol float64) bool {
	return tensor.AllClose(a, b, tol)
}
