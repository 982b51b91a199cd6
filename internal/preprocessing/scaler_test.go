package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/pattern"
	"github.com/born-ml/stgraph/internal/tensor"
)

// series returns a (4, 2, 1) "t n f" tensor: node 0 counts 1..4, node 1 is
// constant 10.
func series() *tensor.RawTensor {
	return tensor.MustFromSlice([]float32{1, 10, 2, 10, 3, 10, 4, 10}, tensor.Shape{4, 2, 1})
}

func TestStandardScalerFit(t *testing.T) {
	s := NewStandardScaler(pattern.AxisTime)
	require.NoError(t, s.Fit(series(), "t n f"))

	assert.Equal(t, "t n f", s.Pattern())
	assert.Equal(t, tensor.Shape{1, 2, 1}, s.Mean().Shape())
	assert.InDeltaSlice(t, []float64{2.5, 10}, s.Mean().AsFloat64(), 1e-9)
	// Constant series get a unit scale.
	assert.InDeltaSlice(t, []float64{math.Sqrt(1.25), 1}, s.Std().AsFloat64(), 1e-9)
}

func TestStandardScalerRoundTrip(t *testing.T) {
	x := series()
	s := NewStandardScaler(pattern.AxisTime)
	require.NoError(t, s.Fit(x, "t n f"))

	z, err := s.Transform(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, z.DType())
	assert.InDelta(t, -1.5/math.Sqrt(1.25), z.Float64s()[0], 1e-6)
	assert.InDelta(t, 0, z.Float64s()[1], 1e-6)

	back, err := s.Inverse(z)
	require.NoError(t, err)
	assert.True(t, tensor.AllClose(x, back, 1e-5))
}

func TestMinMaxScaler(t *testing.T) {
	x := series()
	s := NewMinMaxScaler(pattern.AxisTime)
	require.NoError(t, s.Fit(x, "t n f"))

	assert.InDeltaSlice(t, []float64{1, 10}, s.Min().AsFloat64(), 1e-9)
	assert.InDeltaSlice(t, []float64{3, 1}, s.Range().AsFloat64(), 1e-9)

	z, err := s.Transform(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 1.0 / 3, 0, 2.0 / 3, 0, 1, 0}, z.Float64s(), 1e-6)

	back, err := s.Inverse(z)
	require.NoError(t, err)
	assert.True(t, tensor.AllClose(x, back, 1e-5))
}

func TestFitMasked(t *testing.T) {
	x := series()
	// Drop the last step of node 0.
	mask := tensor.MustFromSlice([]bool{true, true, true, true, true, true, false, true}, tensor.Shape{4, 2, 1})

	std := NewStandardScaler(pattern.AxisTime)
	require.NoError(t, std.FitMasked(x, mask, "t n f"))
	assert.InDeltaSlice(t, []float64{2, 10}, std.Mean().AsFloat64(), 1e-9)

	mm := NewMinMaxScaler(pattern.AxisTime)
	require.NoError(t, mm.FitMasked(x, mask, "t n f"))
	assert.InDeltaSlice(t, []float64{2, 1}, mm.Range().AsFloat64(), 1e-9)

	bad := tensor.Zeros(tensor.Shape{4, 2}, tensor.Bool)
	require.ErrorIs(t, std.FitMasked(x, bad, "t n f"), ErrShape)
}

func TestScalerRearrange(t *testing.T) {
	x := series()
	s := NewStandardScaler(pattern.AxisTime)
	require.NoError(t, s.Fit(x, "t n f"))

	moved, err := s.Rearrange("n t f")
	require.NoError(t, err)
	assert.Equal(t, "n t f", moved.Pattern())
	assert.Equal(t, tensor.Shape{2, 1, 1}, moved.(*StandardScaler).Mean().Shape())
	// The original is untouched.
	assert.Equal(t, "t n f", s.Pattern())

	want, err := s.Transform(x)
	require.NoError(t, err)
	want, err = pattern.Rearrange(want, "t n f -> n t f")
	require.NoError(t, err)

	xt, err := pattern.Rearrange(x, "t n f -> n t f")
	require.NoError(t, err)
	got, err := moved.Transform(xt)
	require.NoError(t, err)
	assert.True(t, tensor.AllClose(want, got, 1e-6))

	// A fitted node axis cannot be merged with the time axis it broadcasts over.
	_, err = s.Rearrange("(t n) f")
	require.ErrorIs(t, err, pattern.ErrBroadcast)

	// Reduced axes can be merged freely.
	pooled := NewStandardScaler(pattern.AxisTime, pattern.AxisNodes)
	require.NoError(t, pooled.Fit(x, "t n f"))
	flat, err := pooled.Rearrange("(t n) f")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1}, flat.(*StandardScaler).Mean().Shape())
}

func TestScalerTile(t *testing.T) {
	x := series()
	joined, err := tensor.Cat([]*tensor.RawTensor{x, x, x}, 1)
	require.NoError(t, err)

	for _, s := range []interface {
		data.Transform
		Fit(*tensor.RawTensor, string) error
		Tile(string, int) (data.Transform, error)
	}{NewStandardScaler(pattern.AxisTime), NewMinMaxScaler(pattern.AxisTime)} {
		require.NoError(t, s.Fit(x, "t n f"))
		tiled, err := s.Tile(pattern.AxisNodes, 3)
		require.NoError(t, err)
		assert.Equal(t, "t n f", tiled.Pattern())

		part, err := s.Transform(x)
		require.NoError(t, err)
		want, err := tensor.Cat([]*tensor.RawTensor{part, part, part}, 1)
		require.NoError(t, err)
		got, err := tiled.Transform(joined)
		require.NoError(t, err)
		assert.True(t, tensor.AllClose(want, got, 1e-6))

		back, err := tiled.Inverse(got)
		require.NoError(t, err)
		assert.True(t, tensor.AllClose(joined, back, 1e-5))

		_, err = s.Transform(joined)
		require.ErrorIs(t, err, ErrShape, "untiled parameters do not cover the union")
	}

	pooled := NewStandardScaler(pattern.AxisTime, pattern.AxisNodes)
	require.NoError(t, pooled.Fit(x, "t n f"))
	tiled, err := pooled.Tile(pattern.AxisNodes, 3)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 1}, tiled.(*StandardScaler).Mean().Shape())

	s := NewStandardScaler(pattern.AxisTime)
	_, err = s.Tile(pattern.AxisNodes, 2)
	require.ErrorIs(t, err, ErrNotFitted)
	require.NoError(t, s.Fit(x, "t n f"))
	_, err = s.Tile(pattern.AxisBatch, 2)
	require.ErrorIs(t, err, ErrUnknownAxis)
	_, err = s.Tile(pattern.AxisNodes, 0)
	require.ErrorIs(t, err, ErrShape)
}

func TestScalerErrors(t *testing.T) {
	x := series()

	t.Run("NotFitted", func(t *testing.T) {
		s := NewStandardScaler(pattern.AxisTime)
		_, err := s.Transform(x)
		require.ErrorIs(t, err, ErrNotFitted)
		_, err = s.Inverse(x)
		require.ErrorIs(t, err, ErrNotFitted)
		_, err = s.Rearrange("n t f")
		require.ErrorIs(t, err, ErrNotFitted)
		assert.Empty(t, s.Pattern())
	})

	t.Run("UnknownAxis", func(t *testing.T) {
		require.ErrorIs(t, NewMinMaxScaler("b").Fit(x, "t n f"), ErrUnknownAxis)
	})

	t.Run("PatternRank", func(t *testing.T) {
		require.ErrorIs(t, NewStandardScaler("t").Fit(x, "t n"), pattern.ErrShapeMismatch)
	})

	t.Run("Broadcast", func(t *testing.T) {
		s := NewStandardScaler(pattern.AxisTime)
		require.NoError(t, s.Fit(x, "t n f"))
		_, err := s.Transform(tensor.Zeros(tensor.Shape{4, 3, 1}, tensor.Float32))
		require.ErrorIs(t, err, ErrShape)
		_, err = s.Transform(tensor.Zeros(tensor.Shape{4, 2}, tensor.Float32))
		require.ErrorIs(t, err, ErrShape)
	})
}

func TestScalerInRecord(t *testing.T) {
	y := series()
	s := NewStandardScaler(pattern.AxisTime)
	require.NoError(t, s.Fit(y, "t n f"))

	r, err := data.New(
		data.WithTarget(data.E("y", y)),
		data.WithPattern(map[string]string{"y": "t n f"}),
		data.WithTransform(map[string]data.Transform{"y": s}),
	)
	require.NoError(t, err)

	require.NoError(t, r.RearrangeKey("y", "n f t"))
	tr, ok := r.Transform("y")
	require.True(t, ok)
	assert.Equal(t, "n f t", tr.Pattern())

	require.NoError(t, r.TransformKey("y"))
	require.NoError(t, r.InverseTransformKey("y"))
	got, _ := r.Get("y")
	want, err := pattern.Rearrange(y, "t n f -> n f t")
	require.NoError(t, err)
	assert.True(t, tensor.AllClose(want, got, 1e-5))
}
