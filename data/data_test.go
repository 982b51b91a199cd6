// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package data_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stgraph/data"
	"github.com/born-ml/stgraph/tensor"
)

func TestPublicRecord(t *testing.T) {
	x := tensor.Arange(tensor.Shape{12, 5, 2}, tensor.Float32)
	y := tensor.Arange(tensor.Shape{3, 5, 2}, tensor.Float32)

	s := data.NewStandardScaler("t")
	require.NoError(t, s.Fit(y, "t n f"))

	rec, err := data.New(
		data.WithInput(data.E("x", x)),
		data.WithTarget(data.E("y", y)),
		data.WithMask(tensor.Full(tensor.Shape{3, 5, 2}, tensor.Bool, 1)),
		data.WithPattern(map[string]string{"x": "t n f", "y": "t n f"}),
		data.WithTransform(map[string]data.Transform{"y": s}),
	)
	require.NoError(t, err)
	assert.Equal(t, "Record(input:{x=[12, 5, 2]}, target:{y=[3, 5, 2]}, has_mask=true, transform=[y])", rec.String())

	require.NoError(t, rec.RearrangeKey("y", "t n f -> n t f"))
	tr, ok := rec.Transform("y")
	require.True(t, ok)
	assert.Equal(t, "n t f", tr.Pattern())

	err = rec.RearrangeKey("x", "n t f -> t n f")
	require.ErrorIs(t, err, data.ErrPatternMismatch)

	flat, err := data.Rearrange(x, "t n f -> n (t f)")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 24}, flat.Shape())

	p, err := data.InferPattern(x.Shape(), 12, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "t n f", p)
}

func TestPublicView(t *testing.T) {
	store := data.NewStore()
	store.Set("a", tensor.Zeros(tensor.Shape{1}, tensor.Float32))
	v := data.NewView(store, "a", "b")
	assert.Equal(t, []string{"a"}, v.KeyList())
	store.Set("b", tensor.Zeros(tensor.Shape{2}, tensor.Float32))
	assert.Equal(t, []string{"a", "b"}, v.KeyList())
}
