// Package connectivity converts between dense adjacency matrices and the
// (2, E) edge-index plus (E,) edge-weight form stored in records.
package connectivity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/stgraph/internal/tensor"
)

// Common errors.
var (
	ErrInvalidEdgeIndex = errors.New("invalid edge index")
	ErrNotSquare        = errors.New("adjacency matrix is not square")
)

// FromDense returns the non-zero entries of adj as an int64 (2, E) edge index
// (row = source, column = target) and float32 (E,) weights, in row-major
// order. Diagonal entries are kept only when selfLoops is set.
func FromDense(adj *mat.Dense, selfLoops bool) (edgeIndex, edgeWeight *tensor.RawTensor) {
	rows, cols := adj.Dims()
	var src, dst []int64
	var w []float32
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := adj.At(i, j)
			if v == 0 || (i == j && !selfLoops) {
				continue
			}
			src = append(src, int64(i))
			dst = append(dst, int64(j))
			w = append(w, float32(v))
		}
	}
	return tensor.MustFromSlice(append(src, dst...), tensor.Shape{2, len(src)}),
		tensor.MustFromSlice(w, tensor.Shape{len(w)})
}

// ToDense scatters the edges into a numNodes x numNodes matrix. A nil
// edgeWeight gives every edge weight 1. Duplicate edges keep the last weight.
func ToDense(edgeIndex, edgeWeight *tensor.RawTensor, numNodes int) (*mat.Dense, error) {
	if err := Validate(edgeIndex, numNodes); err != nil {
		return nil, err
	}
	src, dst := endpoints(edgeIndex)
	weights, err := weightsOf(edgeWeight, len(src))
	if err != nil {
		return nil, err
	}
	if numNodes == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(numNodes, numNodes, nil)
	for e := range src {
		out.Set(src[e], dst[e], weights[e])
	}
	return out, nil
}

// GaussianKernel maps distances to weights exp(-(d/theta)^2) and zeroes
// weights below threshold. A theta <= 0 uses the standard deviation of the
// finite distances. Infinite distances give weight 0.
func GaussianKernel(dist *mat.Dense, theta, threshold float64) *mat.Dense {
	if theta <= 0 {
		var finite []float64
		r, c := dist.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := dist.At(i, j); !math.IsInf(v, 0) && !math.IsNaN(v) {
					finite = append(finite, v)
				}
			}
		}
		if len(finite) > 0 {
			theta = stat.PopStdDev(finite, nil)
		}
		if theta <= 0 {
			theta = 1
		}
	}

	var out mat.Dense
	out.Apply(func(_, _ int, d float64) float64 {
		w := math.Exp(-(d / theta) * (d / theta))
		if math.IsNaN(w) || w < threshold {
			return 0
		}
		return w
	}, dist)
	return &out
}

// Symmetrize returns max(adj, adjᵀ) element-wise.
func Symmetrize(adj *mat.Dense) (*mat.Dense, error) {
	r, c := adj.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %dx%d", ErrNotSquare, r, c)
	}
	var out mat.Dense
	out.Apply(func(i, j int, v float64) float64 {
		return math.Max(v, adj.At(j, i))
	}, adj)
	return &out, nil
}

// NumEdges returns the number of columns of a (2, E) edge index, or 0 for nil.
func NumEdges(edgeIndex *tensor.RawTensor) int {
	if edgeIndex == nil || edgeIndex.NDim() != 2 {
		return 0
	}
	return edgeIndex.Shape()[1]
}

// Validate checks that edgeIndex is an integer (2, E) tensor whose node ids
// are in [0, numNodes).
func Validate(edgeIndex *tensor.RawTensor, numNodes int) error {
	if edgeIndex == nil {
		return fmt.Errorf("%w: nil", ErrInvalidEdgeIndex)
	}
	if edgeIndex.NDim() != 2 || edgeIndex.Shape()[0] != 2 {
		return fmt.Errorf("%w: shape %v, want [2, E]", ErrInvalidEdgeIndex, edgeIndex.Shape())
	}
	if edgeIndex.DType().IsFloat() || edgeIndex.DType() == tensor.Bool {
		return fmt.Errorf("%w: dtype %s, want an integer type", ErrInvalidEdgeIndex, edgeIndex.DType())
	}
	for i, id := range edgeIndex.Float64s() {
		if id < 0 || int(id) >= numNodes {
			return fmt.Errorf("%w: node id %d at position %d outside [0, %d)",
				ErrInvalidEdgeIndex, int(id), i, numNodes)
		}
	}
	return nil
}

// Offset returns a copy of edgeIndex with every node id shifted by delta.
func Offset(edgeIndex *tensor.RawTensor, delta int) *tensor.RawTensor {
	vals := edgeIndex.Float64s()
	for i := range vals {
		vals[i] += float64(delta)
	}
	out, err := tensor.FromFloat64s(vals, edgeIndex.Shape(), edgeIndex.DType())
	if err != nil {
		panic(fmt.Sprintf("offset: %v", err))
	}
	return out.To(edgeIndex.Device())
}

// ToGraph builds a weighted directed graph with nodes 0..numNodes-1. Self
// loops are skipped because simple graphs cannot hold them.
func ToGraph(edgeIndex, edgeWeight *tensor.RawTensor, numNodes int) (*simple.WeightedDirectedGraph, error) {
	if err := Validate(edgeIndex, numNodes); err != nil {
		return nil, err
	}
	src, dst := endpoints(edgeIndex)
	weights, err := weightsOf(edgeWeight, len(src))
	if err != nil {
		return nil, err
	}

	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for id := 0; id < numNodes; id++ {
		g.AddNode(simple.Node(id))
	}
	for e := range src {
		if src[e] == dst[e] {
			continue
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(src[e]), simple.Node(dst[e]), weights[e]))
	}
	return g, nil
}

// InDegree returns the summed weight of the edges entering each node.
func InDegree(edgeIndex, edgeWeight *tensor.RawTensor, numNodes int) ([]float64, error) {
	if err := Validate(edgeIndex, numNodes); err != nil {
		return nil, err
	}
	_, dst := endpoints(edgeIndex)
	weights, err := weightsOf(edgeWeight, len(dst))
	if err != nil {
		return nil, err
	}
	deg := make([]float64, numNodes)
	for e, v := range dst {
		deg[v] += weights[e]
	}
	return deg, nil
}

func endpoints(edgeIndex *tensor.RawTensor) (src, dst []int) {
	ids := edgeIndex.Float64s()
	n := len(ids) / 2
	src, dst = make([]int, n), make([]int, n)
	for e := 0; e < n; e++ {
		src[e], dst[e] = int(ids[e]), int(ids[n+e])
	}
	return src, dst
}

func weightsOf(edgeWeight *tensor.RawTensor, numEdges int) ([]float64, error) {
	if edgeWeight == nil {
		w := make([]float64, numEdges)
		for i := range w {
			w[i] = 1
		}
		return w, nil
	}
	if edgeWeight.NumElements() != numEdges {
		return nil, fmt.Errorf("%w: %d weights for %d edges", ErrInvalidEdgeIndex, edgeWeight.NumElements(), numEdges)
	}
	return edgeWeight.Float64s(), nil
}
