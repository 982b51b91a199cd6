package connectivity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stgraph/internal/tensor"
)

func TestDenseRoundTrip(t *testing.T) {
	adj := mat.NewDense(3, 3, []float64{
		0.5, 1, 0,
		0, 0, 2,
		3, 0, 0,
	})

	ei, ew := FromDense(adj, false)
	assert.Equal(t, tensor.Shape{2, 3}, ei.Shape())
	assert.Equal(t, tensor.Int64, ei.DType())
	assert.Equal(t, []int64{0, 1, 2, 1, 2, 0}, ei.AsInt64())
	assert.Equal(t, []float32{1, 2, 3}, ew.AsFloat32())
	assert.Equal(t, 3, NumEdges(ei))

	withLoops, _ := FromDense(adj, true)
	assert.Equal(t, 4, NumEdges(withLoops))

	back, err := ToDense(ei, ew, 3)
	require.NoError(t, err)
	want := mat.NewDense(3, 3, []float64{0, 1, 0, 0, 0, 2, 3, 0, 0})
	assert.True(t, mat.Equal(want, back))

	unweighted, err := ToDense(ei, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, unweighted.At(1, 2))
}

func TestFromDenseEmpty(t *testing.T) {
	ei, ew := FromDense(mat.NewDense(2, 2, nil), true)
	assert.Equal(t, tensor.Shape{2, 0}, ei.Shape())
	assert.Equal(t, 0, ew.NumElements())
	assert.Equal(t, 0, NumEdges(ei))
	assert.Equal(t, 0, NumEdges(nil))
}

func TestGaussianKernel(t *testing.T) {
	dist := mat.NewDense(2, 2, []float64{0, 1, 2, math.Inf(1)})

	w := GaussianKernel(dist, 1, 0.1)
	assert.InDelta(t, 1, w.At(0, 0), 1e-12)
	assert.InDelta(t, math.Exp(-1), w.At(0, 1), 1e-12)
	// exp(-4) is below the threshold.
	assert.Equal(t, 0.0, w.At(1, 0))
	assert.Equal(t, 0.0, w.At(1, 1))

	// Theta defaults to the population std of the finite distances.
	auto := GaussianKernel(dist, 0, 0)
	theta := math.Sqrt(2.0 / 3)
	assert.InDelta(t, math.Exp(-(1/theta)*(1/theta)), auto.At(0, 1), 1e-12)
}

func TestSymmetrize(t *testing.T) {
	adj := mat.NewDense(2, 2, []float64{0, 1, 3, 0})
	sym, err := Symmetrize(adj)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{0, 3, 3, 0}), sym))

	_, err = Symmetrize(mat.NewDense(2, 3, nil))
	require.ErrorIs(t, err, ErrNotSquare)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		ei   *tensor.RawTensor
		ok   bool
	}{
		{"valid", tensor.MustFromSlice([]int64{0, 1, 1, 2}, tensor.Shape{2, 2}), true},
		{"int32", tensor.MustFromSlice([]int32{0, 1}, tensor.Shape{2, 1}), true},
		{"nil", nil, false},
		{"rank", tensor.MustFromSlice([]int64{0, 1}, tensor.Shape{2}), false},
		{"rows", tensor.MustFromSlice([]int64{0, 1, 2}, tensor.Shape{3, 1}), false},
		{"float", tensor.MustFromSlice([]float32{0, 1}, tensor.Shape{2, 1}), false},
		{"range", tensor.MustFromSlice([]int64{0, 3}, tensor.Shape{2, 1}), false},
		{"negative", tensor.MustFromSlice([]int64{-1, 0}, tensor.Shape{2, 1}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.ei, 3)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidEdgeIndex)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	ei := tensor.MustFromSlice([]int64{0, 1, 1, 0}, tensor.Shape{2, 2})
	moved := Offset(ei, 5)
	assert.Equal(t, []int64{5, 6, 6, 5}, moved.AsInt64())
	assert.Equal(t, []int64{0, 1, 1, 0}, ei.AsInt64())
}

func TestToGraphAndDegree(t *testing.T) {
	// 0->1, 1->2, 2->2 (self loop), node 3 isolated.
	ei := tensor.MustFromSlice([]int64{0, 1, 2, 1, 2, 2}, tensor.Shape{2, 3})
	ew := tensor.MustFromSlice([]float32{0.5, 2, 1}, tensor.Shape{3})

	g, err := ToGraph(ei, ew, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Nodes().Len())
	assert.Equal(t, 2, g.Edges().Len())
	w, ok := g.Weight(1, 2)
	require.True(t, ok)
	assert.Equal(t, 2.0, w)
	assert.Equal(t, 0, g.From(3).Len())

	deg, err := InDegree(ei, ew, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 3, 0}, deg)

	_, err = ToGraph(ei, tensor.Zeros(tensor.Shape{2}, tensor.Float32), 4)
	require.ErrorIs(t, err, ErrInvalidEdgeIndex)
}
