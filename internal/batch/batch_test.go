package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/dataset"
	"github.com/born-ml/stgraph/internal/preprocessing"
	"github.com/born-ml/stgraph/internal/tensor"
)

func samples(t *testing.T, n int) []*data.Record {
	t.Helper()
	target := tensor.Arange(tensor.Shape{10, 3, 2}, tensor.Float32)
	s := preprocessing.NewStandardScaler("t")
	require.NoError(t, s.Fit(target, dataset.TargetPattern))

	d, err := dataset.New(target,
		dataset.WithWindow(4), dataset.WithHorizon(2),
		dataset.WithMask(tensor.Full(tensor.Shape{10, 3, 2}, tensor.Bool, 1)),
		dataset.WithConnectivity(
			tensor.MustFromSlice([]int64{0, 1, 1, 2}, tensor.Shape{2, 2}),
			tensor.MustFromSlice([]float32{0.5, 1}, tensor.Shape{2}),
		),
		dataset.WithScaler(dataset.KeyTarget, s),
	)
	require.NoError(t, err)

	out := make([]*data.Record, n)
	for i := range out {
		out[i], err = d.Get(i)
		require.NoError(t, err)
	}
	return out
}

func TestStack(t *testing.T) {
	recs := samples(t, 3)
	b, err := Stack(recs)
	require.NoError(t, err)

	x, _ := b.Get("x")
	assert.Equal(t, tensor.Shape{3, 4, 3, 2}, x.Shape())
	y, _ := b.Get("y")
	assert.Equal(t, tensor.Shape{3, 2, 3, 2}, y.Shape())
	assert.Equal(t, tensor.Shape{3, 2, 3, 2}, b.Mask().Shape())

	// Record 1 starts one step after record 0.
	assert.Equal(t, float32(6), x.AsFloat32()[4*3*2])

	p, _ := b.Pattern("x")
	assert.Equal(t, "b t n f", p)
	p, _ = b.Pattern("mask")
	assert.Equal(t, "b t n f", p)

	assert.Equal(t, []string{"x"}, b.Input().KeyList())
	assert.Equal(t, []string{"y"}, b.Target().KeyList())
	assert.Equal(t, []int64{0, 1, 1, 2}, b.EdgeIndex().AsInt64())
	assert.Equal(t, 3, b.NumNodes())

	tr, ok := b.Transform("y")
	require.True(t, ok)
	assert.Equal(t, "b t n f", tr.Pattern())
	require.NoError(t, b.TransformKey("y"))
	require.NoError(t, b.InverseTransformKey("y"))
	back, _ := b.Get("y")
	assert.True(t, tensor.AllClose(y, back, 1e-4))
}

func TestStackErrors(t *testing.T) {
	_, err := Stack(nil)
	require.ErrorIs(t, err, ErrEmpty)

	recs := samples(t, 2)
	recs[1].SetConnectivity(tensor.MustFromSlice([]int64{0, 2}, tensor.Shape{2, 1}), nil)
	_, err = Stack(recs)
	require.ErrorIs(t, err, ErrConnectivityMismatch)

	recs = samples(t, 2)
	recs[1].Delete("x")
	_, err = Stack(recs)
	require.ErrorIs(t, err, ErrKeyMismatch)

	recs = samples(t, 2)
	recs[1].Set("z", tensor.Zeros(tensor.Shape{1}, tensor.Float32))
	_, err = Stack(recs)
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestUnion(t *testing.T) {
	recs := samples(t, 2)
	u, err := Union(recs)
	require.NoError(t, err)

	x, _ := u.Get("x")
	assert.Equal(t, tensor.Shape{4, 6, 2}, x.Shape())
	assert.Equal(t, tensor.Shape{2, 6, 2}, u.Mask().Shape())
	assert.Equal(t, []int64{0, 1, 3, 4, 1, 2, 4, 5}, u.EdgeIndex().AsInt64())
	assert.Equal(t, []float32{0.5, 1, 0.5, 1}, u.EdgeWeight().AsFloat32())

	batchIdx, ok := u.Get(data.KeyBatch)
	require.True(t, ok)
	assert.Equal(t, []int64{0, 0, 0, 1, 1, 1}, batchIdx.AsInt64())
	p, _ := u.Pattern(data.KeyBatch)
	assert.Equal(t, "n", p)

	assert.Equal(t, 6, u.NumNodes())
	assert.Equal(t, []string{"y"}, u.Target().KeyList())

	// Both records share the dataset scaler, so its parameters are tiled
	// over the joined nodes.
	tr, ok := u.Transform("y")
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{1, 6, 2}, tr.(*preprocessing.StandardScaler).Mean().Shape())
	y, _ := u.Get("y")
	require.NoError(t, u.TransformKey("y"))
	parts := make([]*tensor.RawTensor, len(recs))
	for i, r := range recs {
		require.NoError(t, r.TransformKey("y"))
		parts[i], _ = r.Get("y")
	}
	want, err := tensor.Cat(parts, 1)
	require.NoError(t, err)
	scaled, _ := u.Get("y")
	assert.True(t, tensor.AllClose(want, scaled, 1e-5))

	require.NoError(t, u.InverseTransformKey("y"))
	back, _ := u.Get("y")
	assert.True(t, tensor.AllClose(y, back, 1e-4))
}

func TestUnionTransformRequiresSharedInstance(t *testing.T) {
	recs := samples(t, 2)
	own := preprocessing.NewStandardScaler("t")
	y, _ := recs[1].Get("y")
	require.NoError(t, own.Fit(y, dataset.TargetPattern))
	require.NoError(t, recs[1].SetTransform("y", own))

	u, err := Union(recs)
	require.NoError(t, err)
	assert.False(t, u.HasTransform())
}

func TestUnionStaticAttribute(t *testing.T) {
	mk := func(v float32) *data.Record {
		r, err := data.New(
			data.WithInput(data.E("x", tensor.Zeros(tensor.Shape{2, 1}, tensor.Float32))),
			data.WithAttr("scale", tensor.MustFromSlice([]float32{v}, tensor.Shape{1})),
			data.WithPattern(map[string]string{"x": "n f", "scale": "f"}),
		)
		require.NoError(t, err)
		return r
	}

	u, err := Union([]*data.Record{mk(1), mk(1)})
	require.NoError(t, err)
	scale, _ := u.Get("scale")
	assert.Equal(t, []float32{1}, scale.AsFloat32())
	assert.Nil(t, u.EdgeIndex())
	batchIdx, _ := u.Get(data.KeyBatch)
	assert.Equal(t, []int64{0, 0, 1, 1}, batchIdx.AsInt64())

	_, err = Union([]*data.Record{mk(1), mk(2)})
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestUnionConnectivityMismatch(t *testing.T) {
	recs := samples(t, 2)
	recs[1].SetConnectivity(recs[1].EdgeIndex(), nil)
	_, err := Union(recs)
	require.ErrorIs(t, err, ErrConnectivityMismatch)
}
