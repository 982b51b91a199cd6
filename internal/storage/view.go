package storage

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/born-ml/stgraph/internal/tensor"
)

// View is a key-filtered projection over a shared Store.
//
// The view owns only its list of active keys; values always live in the
// store. The effective keys are the active keys that are currently present
// in the store, recomputed on every access, so a key deleted from the store
// by anyone disappears from every view naming it.
type View struct {
	store *Store
	keys  []string
}

// NewView creates a view over store with the given active keys.
// Duplicates are dropped, first occurrence order is kept.
func NewView(store *Store, keys ...string) *View {
	v := &View{store: store}
	v.AddKeys(keys...)
	return v
}

// Store returns the backing store.
func (v *View) Store() *Store {
	return v.store
}

// Len returns the number of active keys, including keys that are no longer
// present in the store.
func (v *View) Len() int {
	return len(v.keys)
}

// ActiveKeys returns a copy of the active key list as recorded.
func (v *View) ActiveKeys() []string {
	return slices.Clone(v.keys)
}

// Has reports whether key is an effective key of the view.
func (v *View) Has(key string) bool {
	return slices.Contains(v.keys, key) && v.store.Has(key)
}

// Get returns the value of an effective key.
func (v *View) Get(key string) (*tensor.RawTensor, error) {
	if !v.Has(key) {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	value, _ := v.store.Get(key)
	return value, nil
}

// Set writes value into the store and adds key to the active keys.
// A nil value is the same as Delete.
func (v *View) Set(key string, value *tensor.RawTensor) {
	if value == nil {
		v.Delete(key)
		return
	}
	v.store.Set(key, value)
	v.AddKeys(key)
}

// Delete removes key from the store and from the active keys.
func (v *View) Delete(key string) {
	v.store.Delete(key)
	v.DelKeys(key)
}

// AddKeys appends keys not already active.
func (v *View) AddKeys(keys ...string) {
	for _, k := range keys {
		if !slices.Contains(v.keys, k) {
			v.keys = append(v.keys, k)
		}
	}
}

// DelKeys removes keys from the active keys. The store is not touched.
func (v *View) DelKeys(keys ...string) {
	v.keys = slices.DeleteFunc(v.keys, func(k string) bool {
		return slices.Contains(keys, k)
	})
}

// SetKeys replaces the active keys.
func (v *View) SetKeys(keys ...string) {
	v.keys = nil
	v.AddKeys(keys...)
}

// filter returns the effective keys, restricted to subset when given.
// Keys of subset outside the view are dropped silently.
func (v *View) filter(subset []string) []string {
	out := make([]string, 0, len(v.keys))
	if len(subset) == 0 {
		for _, k := range v.keys {
			if v.store.Has(k) {
				out = append(out, k)
			}
		}
		return out
	}
	for _, k := range subset {
		if v.Has(k) && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// Keys returns a sequence over the effective keys, optionally restricted to
// subset. The filter runs each time the sequence is iterated.
func (v *View) Keys(subset ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range v.filter(subset) {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns a sequence over the values of the effective keys.
func (v *View) Values(subset ...string) iter.Seq[*tensor.RawTensor] {
	return func(yield func(*tensor.RawTensor) bool) {
		for _, value := range v.Items(subset...) {
			if !yield(value) {
				return
			}
		}
	}
}

// Items returns a sequence over the effective key/value pairs.
func (v *View) Items(subset ...string) iter.Seq2[string, *tensor.RawTensor] {
	return func(yield func(string, *tensor.RawTensor) bool) {
		for _, k := range v.filter(subset) {
			value, ok := v.store.Get(k)
			if !ok {
				continue
			}
			if !yield(k, value) {
				return
			}
		}
	}
}

// KeyList collects the effective keys into a slice.
func (v *View) KeyList(subset ...string) []string {
	return v.filter(subset)
}

// Apply replaces each selected value in the store with fn(value). It is a
// no-op when no key is selected. Returns v for chaining.
func (v *View) Apply(fn ApplyFunc, subset ...string) *View {
	keys := v.filter(subset)
	if len(keys) == 0 {
		return v
	}
	v.store.Apply(fn, keys...)
	return v
}

// ToDict returns an independent map of the effective keys. Values are shared
// with the store.
func (v *View) ToDict() map[string]*tensor.RawTensor {
	return maps.Collect(v.Items())
}

// ToPlainArrays replaces the selected values with detached host tensors, in
// place.
func (v *View) ToPlainArrays(subset ...string) *View {
	return v.Apply((*tensor.RawTensor).Host, subset...)
}

// String lists the effective attributes with their shapes.
func (v *View) String() string {
	return "View(" + joinSizes(v.store, v.filter(nil)) + ")"
}
