// Package data implements the spatiotemporal graph record: a keyed tensor
// store exposed through input and target views, with a validity mask and
// per-key pattern and transform metadata kept consistent under rearrangement.
package data

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/born-ml/stgraph/internal/pattern"
	"github.com/born-ml/stgraph/internal/storage"
	"github.com/born-ml/stgraph/internal/tensor"
)

// Well-known attribute keys.
const (
	KeyMask       = "mask"
	KeyEdgeIndex  = "edge_index"
	KeyEdgeWeight = "edge_weight"
	KeyBatch      = "batch"
)

// Transform is a per-key normalization whose parameters follow the axis
// pattern of the data they apply to.
type Transform interface {
	// Pattern returns the pattern of the data the parameters broadcast against.
	Pattern() string
	// Transform maps raw values to normalized values.
	Transform(x *tensor.RawTensor) (*tensor.RawTensor, error)
	// Inverse maps normalized values back to raw values.
	Inverse(x *tensor.RawTensor) (*tensor.RawTensor, error)
	// Rearrange returns a transform aligned to data with the given pattern.
	Rearrange(pattern string) (Transform, error)
}

// KeyMeta is the metadata recorded for one key.
type KeyMeta struct {
	Pattern   string
	Transform Transform
}

// Record is a spatiotemporal graph sample or batch.
//
// All attributes live in one Store; Input and Target are views over it.
// A Record is single-owner and performs no locking.
type Record struct {
	store  *storage.Store
	input  *storage.View
	target *storage.View
	meta   map[string]*KeyMeta
}

// New builds a record. The store holds the union of input, target and extra
// attributes; the input and target views cover the keys given for each role.
// An entry with an empty key or a nil value fails with ErrInvalidAttributes.
func New(opts ...Option) (*Record, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &Record{
		store: storage.NewStore(),
		meta:  make(map[string]*KeyMeta),
	}

	for _, group := range [][]Entry{o.input, o.target, o.attrs} {
		for _, e := range group {
			if e.Key == "" || e.Value == nil {
				return nil, fmt.Errorf("%w: key %q has no value", ErrInvalidAttributes, e.Key)
			}
		}
	}

	inputKeys := make([]string, 0, len(o.input))
	for _, e := range o.input {
		r.store.Set(e.Key, e.Value)
		inputKeys = append(inputKeys, e.Key)
	}
	targetKeys := make([]string, 0, len(o.target))
	for _, e := range o.target {
		r.store.Set(e.Key, e.Value)
		targetKeys = append(targetKeys, e.Key)
	}
	for _, e := range o.attrs {
		r.store.Set(e.Key, e.Value)
	}
	r.input = storage.NewView(r.store, inputKeys...)
	r.target = storage.NewView(r.store, targetKeys...)
	if o.mask != nil {
		r.SetMask(o.mask)
	}

	for _, k := range sortedKeys(o.patterns) {
		if err := r.SetPattern(k, o.patterns[k]); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedKeys(o.transforms) {
		if err := r.SetTransform(k, o.transforms[k]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Store returns the backing store.
func (r *Record) Store() *storage.Store {
	return r.store
}

// Input returns the view of model-input attributes.
func (r *Record) Input() *storage.View {
	return r.input
}

// Target returns the view of prediction-target attributes.
func (r *Record) Target() *storage.View {
	return r.target
}

// Get returns the attribute stored at key.
func (r *Record) Get(key string) (*tensor.RawTensor, bool) {
	return r.store.Get(key)
}

// Set stores an attribute outside the views' active keys. A nil value
// deletes it. Recorded metadata is dropped when value has a different number
// of dimensions than the recorded pattern describes.
func (r *Record) Set(key string, value *tensor.RawTensor) {
	if value == nil {
		r.Delete(key)
		return
	}
	if m, ok := r.meta[key]; ok && m.Pattern != "" {
		if _, err := pattern.Check(m.Pattern, value.NDim()); err != nil {
			delete(r.meta, key)
		}
	}
	r.store.Set(key, value)
}

// Delete removes an attribute from the store, and therefore from every view,
// together with its pattern and transform.
func (r *Record) Delete(key string) {
	r.store.Delete(key)
	delete(r.meta, key)
}

// Has reports whether key is stored.
func (r *Record) Has(key string) bool {
	return r.store.Has(key)
}

// Keys returns every stored key in insertion order.
func (r *Record) Keys() []string {
	return r.store.Select()
}

// StoresAs copies the input and target key sets of other onto r. Store
// contents are not copied. Returns r.
func (r *Record) StoresAs(other *Record) *Record {
	r.input.SetKeys(other.input.KeyList()...)
	r.target.SetKeys(other.target.KeyList()...)
	return r
}

// HasMask reports whether a mask is present.
func (r *Record) HasMask() bool {
	return r.store.Has(KeyMask)
}

// Mask returns the mask, or nil.
func (r *Record) Mask() *tensor.RawTensor {
	m, _ := r.store.Get(KeyMask)
	return m
}

// SetMask sets the mask. A nil mask removes it.
func (r *Record) SetMask(mask *tensor.RawTensor) {
	r.Set(KeyMask, mask)
}

// EdgeIndex returns the (2, E) edge index, or nil.
func (r *Record) EdgeIndex() *tensor.RawTensor {
	v, _ := r.store.Get(KeyEdgeIndex)
	return v
}

// EdgeWeight returns the (E,) edge weights, or nil.
func (r *Record) EdgeWeight() *tensor.RawTensor {
	v, _ := r.store.Get(KeyEdgeWeight)
	return v
}

// SetConnectivity replaces the edge index and weights. Nil values remove them.
func (r *Record) SetConnectivity(edgeIndex, edgeWeight *tensor.RawTensor) {
	r.Set(KeyEdgeIndex, edgeIndex)
	r.Set(KeyEdgeWeight, edgeWeight)
}

// NumNodes returns the node count, read from the first attribute whose
// pattern has a node axis, else from the largest node id in the edge index.
func (r *Record) NumNodes() int {
	for _, k := range r.store.Select() {
		meta, ok := r.meta[k]
		if !ok {
			continue
		}
		if dim, ok := pattern.Index(meta.Pattern, pattern.AxisNodes); ok {
			v, _ := r.store.Get(k)
			return v.Shape()[dim]
		}
	}
	if ei := r.EdgeIndex(); ei != nil && ei.NumElements() > 0 {
		maxID := 0.0
		for _, id := range ei.Float64s() {
			maxID = max(maxID, id)
		}
		return int(maxID) + 1
	}
	return 0
}

// HasTransform reports whether any stored key has a transform.
func (r *Record) HasTransform() bool {
	for k, m := range r.meta {
		if m.Transform != nil && r.store.Has(k) {
			return true
		}
	}
	return false
}

// Pattern returns the pattern recorded for key.
func (r *Record) Pattern(key string) (string, bool) {
	m, ok := r.meta[key]
	if !ok || m.Pattern == "" {
		return "", false
	}
	return m.Pattern, true
}

// Patterns returns a copy of every recorded pattern.
func (r *Record) Patterns() map[string]string {
	out := make(map[string]string, len(r.meta))
	for k, m := range r.meta {
		if m.Pattern != "" {
			out[k] = m.Pattern
		}
	}
	return out
}

// SetPattern records the pattern of key. When key is stored, the pattern
// must describe exactly its number of dimensions. An empty pattern removes
// it, which is refused while the key has a transform.
func (r *Record) SetPattern(key, p string) error {
	if p == "" {
		if m, ok := r.meta[key]; ok {
			if m.Transform != nil {
				return fmt.Errorf("%w: cannot drop pattern of %q while it has a transform", ErrMissingPattern, key)
			}
			delete(r.meta, key)
		}
		return nil
	}

	ndim := -1
	if v, ok := r.store.Get(key); ok {
		ndim = v.NDim()
	}
	norm, err := pattern.Check(p, ndim)
	if err != nil {
		return fmt.Errorf("pattern of %q: %w", key, err)
	}
	r.metaFor(key).Pattern = norm
	return nil
}

// Transform returns the transform registered for key.
func (r *Record) Transform(key string) (Transform, bool) {
	m, ok := r.meta[key]
	if !ok || m.Transform == nil {
		return nil, false
	}
	return m.Transform, true
}

// Transforms returns a copy of the transforms registered for stored keys.
func (r *Record) Transforms() map[string]Transform {
	out := make(map[string]Transform)
	for k, m := range r.meta {
		if m.Transform != nil && r.store.Has(k) {
			out[k] = m.Transform
		}
	}
	return out
}

// SetTransform registers tr for key. The key must already have a pattern,
// and a transform reporting a pattern must agree with it. A nil tr removes
// the transform.
func (r *Record) SetTransform(key string, tr Transform) error {
	if tr == nil {
		if m, ok := r.meta[key]; ok {
			m.Transform = nil
		}
		return nil
	}
	p, ok := r.Pattern(key)
	if !ok {
		return fmt.Errorf("%w: %q needs a pattern to hold a transform", ErrMissingPattern, key)
	}
	if tp := tr.Pattern(); tp != "" && pattern.Normalize(tp) != p {
		return &PatternError{Key: key, Recorded: p, Given: tp}
	}
	r.meta[key].Transform = tr
	return nil
}

// Meta returns a copy of the metadata recorded for key.
func (r *Record) Meta(key string) (KeyMeta, bool) {
	m, ok := r.meta[key]
	if !ok {
		return KeyMeta{}, false
	}
	return *m, true
}

func (r *Record) metaFor(key string) *KeyMeta {
	m, ok := r.meta[key]
	if !ok {
		m = &KeyMeta{}
		r.meta[key] = m
	}
	return m
}

// Apply replaces each selected attribute with fn(value), in place. With no
// keys every attribute is selected. Returns r.
func (r *Record) Apply(fn storage.ApplyFunc, keys ...string) *Record {
	r.store.Apply(fn, keys...)
	return r
}

// ToPlainArrays replaces the selected attributes with detached host tensors.
func (r *Record) ToPlainArrays(keys ...string) *Record {
	return r.Apply((*tensor.RawTensor).Host, keys...)
}

// ToDevice moves the selected attributes to device.
func (r *Record) ToDevice(device tensor.Device, keys ...string) *Record {
	return r.Apply(func(x *tensor.RawTensor) *tensor.RawTensor { return x.To(device) }, keys...)
}

// Cast converts the selected attributes to dtype. With no keys only
// floating-point attributes are converted; index tensors keep their type.
func (r *Record) Cast(dtype tensor.DataType, keys ...string) *Record {
	explicit := len(keys) > 0
	return r.Apply(func(x *tensor.RawTensor) *tensor.RawTensor {
		if !explicit && !x.DType().IsFloat() {
			return x
		}
		return tensor.Cast(x, dtype)
	}, keys...)
}

// TransformKey applies the transform of key to its value, in place.
func (r *Record) TransformKey(key string) error {
	return r.mapTransform(key, Transform.Transform)
}

// InverseTransformKey undoes the transform of key on its value, in place.
func (r *Record) InverseTransformKey(key string) error {
	return r.mapTransform(key, Transform.Inverse)
}

func (r *Record) mapTransform(key string, fn func(Transform, *tensor.RawTensor) (*tensor.RawTensor, error)) error {
	tr, ok := r.Transform(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingTransform, key)
	}
	v, ok := r.store.Get(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	out, err := fn(tr, v)
	if err != nil {
		return fmt.Errorf("transform %q: %w", key, err)
	}
	r.store.Set(key, out)
	return nil
}

// String describes the record, e.g.
// "Record(input:{x=[12, 5, 2]}, target:{y=[3, 5, 2]}, has_mask=true, transform=[y])".
func (r *Record) String() string {
	inputs := make([]string, 0, r.input.Len())
	for k, v := range r.input.Items() {
		inputs = append(inputs, storage.SizeRepr(k, v))
	}
	targets := make([]string, 0, r.target.Len())
	for k, v := range r.target.Items() {
		targets = append(targets, storage.SizeRepr(k, v))
	}

	info := []string{
		"input:{" + strings.Join(inputs, ", ") + "}",
		"target:{" + strings.Join(targets, ", ") + "}",
		fmt.Sprintf("has_mask=%t", r.HasMask()),
	}
	if r.HasTransform() {
		keys := slices.Sorted(maps.Keys(r.Transforms()))
		info = append(info, "transform=["+strings.Join(keys, ", ")+"]")
	}
	return "Record(" + strings.Join(info, ", ") + ")"
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
