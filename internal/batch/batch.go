// Package batch collates records into batches, either stacked along a new
// leading batch axis or joined as a disjoint union of graphs.
package batch

import (
	"errors"
	"fmt"

	"github.com/born-ml/stgraph/internal/connectivity"
	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/pattern"
	"github.com/born-ml/stgraph/internal/tensor"
)

// Common errors.
var (
	ErrEmpty                = errors.New("no records to batch")
	ErrKeyMismatch          = errors.New("records hold different keys")
	ErrConnectivityMismatch = errors.New("records have different connectivity")
)

// Stack joins records along a new leading axis "b". Every record must hold
// the same keys. Patterns gain the "b" axis and the first record's transforms
// are rearranged to match. Connectivity must be identical in all records and
// is kept once. Input and target roles follow the first record.
func Stack(records []*data.Record) (*data.Record, error) {
	first, keys, err := prepare(records)
	if err != nil {
		return nil, err
	}
	if err := sameConnectivity(records); err != nil {
		return nil, err
	}

	opts := make([]data.Option, 0, len(keys)+3)
	patterns := make(map[string]string)
	for _, k := range keys {
		vals := make([]*tensor.RawTensor, len(records))
		for i, r := range records {
			vals[i], _ = r.Get(k)
		}
		stacked, err := tensor.Stack(vals, 0)
		if err != nil {
			return nil, fmt.Errorf("stack %q: %w", k, err)
		}
		opts = append(opts, data.WithAttr(k, stacked))
		if p, ok := first.Pattern(k); ok {
			patterns[k] = pattern.Prepend(pattern.AxisBatch, p)
		}
	}

	transforms := make(map[string]data.Transform)
	for k, tr := range first.Transforms() {
		p, ok := patterns[k]
		if !ok {
			continue
		}
		moved, err := tr.Rearrange(p)
		if err != nil {
			return nil, fmt.Errorf("stack transform of %q: %w", k, err)
		}
		transforms[k] = moved
	}

	if ei := first.EdgeIndex(); ei != nil {
		var ew *tensor.RawTensor
		if w := first.EdgeWeight(); w != nil {
			ew = w.Clone()
		}
		opts = append(opts, data.WithConnectivity(ei.Clone(), ew))
	}
	opts = append(opts, data.WithPattern(patterns), data.WithTransform(transforms))

	out, err := data.New(opts...)
	if err != nil {
		return nil, err
	}
	return out.StoresAs(first), nil
}

// Union joins records into one graph whose node set is the disjoint union of
// the records' nodes. Attributes whose pattern has a node axis are
// concatenated along it; other attributes must be identical in every record.
// Edge indices are shifted by the cumulative node count, and the int64
// "batch" attribute maps each node to the position of its record.
// A transform is carried over when every record holds the same instance
// for the key. On keys with a node axis it must also be able to tile its
// parameters along that axis; otherwise it is dropped.
func Union(records []*data.Record) (*data.Record, error) {
	first, keys, err := prepare(records)
	if err != nil {
		return nil, err
	}

	opts := make([]data.Option, 0, len(keys)+3)
	patterns := make(map[string]string)
	for _, k := range keys {
		p, hasPattern := first.Pattern(k)
		dim, hasNodes := pattern.Index(p, pattern.AxisNodes)
		vals := make([]*tensor.RawTensor, len(records))
		for i, r := range records {
			vals[i], _ = r.Get(k)
		}

		if !hasPattern || !hasNodes {
			for i, v := range vals[1:] {
				if !tensor.Equal(vals[0], v) {
					return nil, fmt.Errorf("%w: %q of record %d differs and has no node axis", ErrKeyMismatch, k, i+1)
				}
			}
			opts = append(opts, data.WithAttr(k, vals[0].Clone()))
		} else {
			joined, err := tensor.Cat(vals, dim)
			if err != nil {
				return nil, fmt.Errorf("union %q: %w", k, err)
			}
			opts = append(opts, data.WithAttr(k, joined))
		}
		if hasPattern {
			patterns[k] = p
		}
	}

	transforms := make(map[string]data.Transform)
	for k, tr := range first.Transforms() {
		p, ok := patterns[k]
		if !ok || !sharedTransform(records, k, tr) {
			continue
		}
		if _, hasNodes := pattern.Index(p, pattern.AxisNodes); !hasNodes {
			transforms[k] = tr
			continue
		}
		t, ok := tr.(tiler)
		if !ok {
			continue
		}
		tiled, err := t.Tile(pattern.AxisNodes, len(records))
		if err != nil {
			return nil, fmt.Errorf("union transform of %q: %w", k, err)
		}
		transforms[k] = tiled
	}

	ei, ew, batchIdx, err := unionConnectivity(records)
	if err != nil {
		return nil, err
	}
	if ei != nil {
		opts = append(opts, data.WithConnectivity(ei, ew))
	}
	opts = append(opts, data.WithAttr(data.KeyBatch, batchIdx))
	patterns[data.KeyBatch] = pattern.AxisNodes
	opts = append(opts, data.WithPattern(patterns), data.WithTransform(transforms))

	out, err := data.New(opts...)
	if err != nil {
		return nil, err
	}
	return out.StoresAs(first), nil
}

// tiler is implemented by transforms whose parameters can be repeated along
// an axis.
type tiler interface {
	Tile(axis string, times int) (data.Transform, error)
}

// sharedTransform reports whether every record holds tr for key.
func sharedTransform(records []*data.Record, key string, tr data.Transform) bool {
	for _, r := range records[1:] {
		if other, ok := r.Transform(key); !ok || other != tr {
			return false
		}
	}
	return true
}

// prepare checks that records share their keys and returns the first record
// and its keys, excluding connectivity.
func prepare(records []*data.Record) (*data.Record, []string, error) {
	if len(records) == 0 {
		return nil, nil, ErrEmpty
	}
	first := records[0]
	var keys []string
	for _, k := range first.Keys() {
		if k != data.KeyEdgeIndex && k != data.KeyEdgeWeight {
			keys = append(keys, k)
		}
	}
	for i, r := range records[1:] {
		n := 0
		for _, k := range r.Keys() {
			if k != data.KeyEdgeIndex && k != data.KeyEdgeWeight {
				n++
			}
		}
		if n != len(keys) {
			return nil, nil, fmt.Errorf("%w: record %d has %d keys, want %d", ErrKeyMismatch, i+1, n, len(keys))
		}
		for _, k := range keys {
			if !r.Has(k) {
				return nil, nil, fmt.Errorf("%w: record %d lacks %q", ErrKeyMismatch, i+1, k)
			}
		}
	}
	return first, keys, nil
}

func sameConnectivity(records []*data.Record) error {
	first := records[0]
	for i, r := range records[1:] {
		if !sameTensor(first.EdgeIndex(), r.EdgeIndex()) || !sameTensor(first.EdgeWeight(), r.EdgeWeight()) {
			return fmt.Errorf("%w: record %d", ErrConnectivityMismatch, i+1)
		}
	}
	return nil
}

func sameTensor(a, b *tensor.RawTensor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return tensor.Equal(a, b)
}

func unionConnectivity(records []*data.Record) (ei, ew, batchIdx *tensor.RawTensor, err error) {
	hasGraph := records[0].EdgeIndex() != nil
	hasWeight := records[0].EdgeWeight() != nil

	var (
		indices, weights []*tensor.RawTensor
		owner            []int64
		offset           int
	)
	for i, r := range records {
		if (r.EdgeIndex() != nil) != hasGraph || (r.EdgeWeight() != nil) != hasWeight {
			return nil, nil, nil, fmt.Errorf("%w: record %d", ErrConnectivityMismatch, i)
		}
		n := r.NumNodes()
		if hasGraph {
			indices = append(indices, connectivity.Offset(r.EdgeIndex(), offset))
		}
		if hasWeight {
			weights = append(weights, r.EdgeWeight())
		}
		for range n {
			owner = append(owner, int64(i))
		}
		offset += n
	}

	batchIdx = tensor.MustFromSlice(owner, tensor.Shape{len(owner)})
	if !hasGraph {
		return nil, nil, batchIdx, nil
	}
	if ei, err = tensor.Cat(indices, 1); err != nil {
		return nil, nil, nil, fmt.Errorf("union edge index: %w", err)
	}
	if hasWeight {
		if ew, err = tensor.Cat(weights, 0); err != nil {
			return nil, nil, nil, fmt.Errorf("union edge weight: %w", err)
		}
	}
	return ei, ew, batchIdx, nil
}
