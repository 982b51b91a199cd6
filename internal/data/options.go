package data

import (
	"slices"

	"github.com/born-ml/stgraph/internal/tensor"
)

// Entry is one named tensor of an ordered mapping.
type Entry struct {
	Key   string
	Value *tensor.RawTensor
}

// E is shorthand for Entry{key, value}.
func E(key string, value *tensor.RawTensor) Entry {
	return Entry{Key: key, Value: value}
}

// Entries orders a plain map by key.
func Entries(m map[string]*tensor.RawTensor) []Entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Key: k, Value: m[k]}
	}
	return out
}

type options struct {
	input      []Entry
	target     []Entry
	attrs      []Entry
	mask       *tensor.RawTensor
	transforms map[string]Transform
	patterns   map[string]string
}

// Option configures a Record at construction.
type Option func(*options)

// WithInput adds model-input tensors, in order.
func WithInput(entries ...Entry) Option {
	return func(o *options) { o.input = append(o.input, entries...) }
}

// WithInputMap adds model-input tensors ordered by key.
func WithInputMap(m map[string]*tensor.RawTensor) Option {
	return WithInput(Entries(m)...)
}

// WithTarget adds prediction-target tensors, in order.
func WithTarget(entries ...Entry) Option {
	return func(o *options) { o.target = append(o.target, entries...) }
}

// WithTargetMap adds prediction-target tensors ordered by key.
func WithTargetMap(m map[string]*tensor.RawTensor) Option {
	return WithTarget(Entries(m)...)
}

// WithMask sets the validity mask. A nil mask means no mask.
func WithMask(mask *tensor.RawTensor) Option {
	return func(o *options) { o.mask = mask }
}

// WithAttr adds an attribute outside the input and target roles.
func WithAttr(key string, value *tensor.RawTensor) Option {
	return func(o *options) { o.attrs = append(o.attrs, Entry{Key: key, Value: value}) }
}

// WithConnectivity sets the edge index and optional edge weights. A nil edge
// index means no graph.
func WithConnectivity(edgeIndex, edgeWeight *tensor.RawTensor) Option {
	return func(o *options) {
		if edgeIndex == nil {
			return
		}
		o.attrs = append(o.attrs, Entry{Key: KeyEdgeIndex, Value: edgeIndex})
		if edgeWeight != nil {
			o.attrs = append(o.attrs, Entry{Key: KeyEdgeWeight, Value: edgeWeight})
		}
	}
}

// WithTransform registers per-key transforms.
func WithTransform(m map[string]Transform) Option {
	return func(o *options) {
		if o.transforms == nil {
			o.transforms = make(map[string]Transform, len(m))
		}
		for k, tr := range m {
			o.transforms[k] = tr
		}
	}
}

// WithPattern records per-key axis patterns.
func WithPattern(m map[string]string) Option {
	return func(o *options) {
		if o.patterns == nil {
			o.patterns = make(map[string]string, len(m))
		}
		for k, p := range m {
			o.patterns[k] = p
		}
	}
}
