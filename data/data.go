// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data provides the public API for spatiotemporal graph records.
//
// A Record keeps every attribute in one keyed Store and exposes the model
// inputs and prediction targets as Views over it. Each key may carry an axis
// pattern such as "t n f" and a Transform whose parameters follow that
// pattern when the key is rearranged.
//
// Example:
//
//	rec, err := data.New(
//	    data.WithInput(data.E("x", x)),   // [12, 5, 2]
//	    data.WithTarget(data.E("y", y)),  // [3, 5, 2]
//	    data.WithPattern(map[string]string{"x": "t n f", "y": "t n f"}),
//	)
//	err = rec.RearrangeKey("x", "t n f -> n t f")
package data

import (
	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/pattern"
	"github.com/born-ml/stgraph/internal/storage"
	"github.com/born-ml/stgraph/tensor"
)

// Record is a spatiotemporal graph sample or batch.
type Record = data.Record

// Store is the ordered keyed tensor storage behind a record.
type Store = storage.Store

// View is a filtered live window onto a Store.
type View = storage.View

// ApplyFunc maps one tensor to another.
type ApplyFunc = storage.ApplyFunc

// Transform is a per-key normalization that follows the key's pattern.
type Transform = data.Transform

// KeyMeta is the pattern and transform recorded for one key.
type KeyMeta = data.KeyMeta

// PatternError reports a pattern that disagrees with the recorded one.
type PatternError = data.PatternError

// Entry is one named tensor of an ordered mapping.
type Entry = data.Entry

// PatternEntry pairs a key with a rearrangement expression.
type PatternEntry = data.PatternEntry

// Option configures a Record at construction.
type Option = data.Option

// Length fixes the size of an axis that cannot be inferred from a shape.
type Length = pattern.Length

// Well-known attribute keys.
const (
	KeyMask       = data.KeyMask
	KeyEdgeIndex  = data.KeyEdgeIndex
	KeyEdgeWeight = data.KeyEdgeWeight
	KeyBatch      = data.KeyBatch
)

// Errors.
var (
	ErrKeyNotFound       = data.ErrKeyNotFound
	ErrPatternMismatch   = data.ErrPatternMismatch
	ErrMissingPattern    = data.ErrMissingPattern
	ErrMissingTransform  = data.ErrMissingTransform
	ErrInvalidPattern    = pattern.ErrInvalidPattern
	ErrShapeMismatch     = pattern.ErrShapeMismatch
	ErrBroadcast         = pattern.ErrBroadcast
	ErrInvalidAttributes = data.ErrInvalidAttributes
)

// New builds a record.
func New(opts ...Option) (*Record, error) {
	return data.New(opts...)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return storage.NewStore()
}

// NewView returns a view of store covering keys.
func NewView(store *Store, keys ...string) *View {
	return storage.NewView(store, keys...)
}

// E is shorthand for Entry{key, value}.
func E(key string, value *tensor.RawTensor) Entry {
	return data.E(key, value)
}

// WithInput adds model-input tensors, in order.
func WithInput(entries ...Entry) Option {
	return data.WithInput(entries...)
}

// WithInputMap adds model-input tensors ordered by key.
func WithInputMap(m map[string]*tensor.RawTensor) Option {
	return data.WithInputMap(m)
}

// WithTarget adds prediction-target tensors, in order.
func WithTarget(entries ...Entry) Option {
	return data.WithTarget(entries...)
}

// WithTargetMap adds prediction-target tensors ordered by key.
func WithTargetMap(m map[string]*tensor.RawTensor) Option {
	return data.WithTargetMap(m)
}

// WithMask sets the validity mask.
func WithMask(mask *tensor.RawTensor) Option {
	return data.WithMask(mask)
}

// WithAttr adds an attribute outside the input and target roles.
func WithAttr(key string, value *tensor.RawTensor) Option {
	return data.WithAttr(key, value)
}

// WithConnectivity sets the edge index and optional edge weights.
func WithConnectivity(edgeIndex, edgeWeight *tensor.RawTensor) Option {
	return data.WithConnectivity(edgeIndex, edgeWeight)
}

// WithTransform registers per-key transforms.
func WithTransform(m map[string]Transform) Option {
	return data.WithTransform(m)
}

// WithPattern records per-key axis patterns.
func WithPattern(m map[string]string) Option {
	return data.WithPattern(m)
}

// Rearrange applies an einops-style expression such as "t n f -> n (t f)".
func Rearrange(x *tensor.RawTensor, expr string, lengths ...Length) (*tensor.RawTensor, error) {
	return pattern.Rearrange(x, expr, lengths...)
}

// L is shorthand for Length{axis, size}.
func L(axis string, size int) Length {
	return pattern.L(axis, size)
}

// InferPattern labels the dimensions of shape by matching the step, node and
// edge counts; zero disables a label.
func InferPattern(shape tensor.Shape, steps, nodes, edges int) (string, error) {
	return pattern.Infer(shape, steps, nodes, edges)
}
