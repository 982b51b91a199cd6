// Package storage implements the keyed tensor store that backs graph records
// and the filtered views exposed over it.
package storage

import (
	"iter"
	"slices"
	"strings"

	"github.com/born-ml/stgraph/internal/tensor"
)

// ApplyFunc transforms a stored value. Returning nil leaves the value as is.
type ApplyFunc func(*tensor.RawTensor) *tensor.RawTensor

// Store is an insertion-ordered mapping from attribute name to tensor.
//
// A Store is single-owner: it performs no locking.
type Store struct {
	keys   []string
	values map[string]*tensor.RawTensor
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]*tensor.RawTensor)}
}

// Len returns the number of stored attributes.
func (s *Store) Len() int {
	return len(s.keys)
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Get returns the value stored at key.
func (s *Store) Get(key string) (*tensor.RawTensor, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores value at key. Re-setting a key keeps its position; a nil value
// deletes the key.
func (s *Store) Set(key string, value *tensor.RawTensor) {
	if value == nil {
		s.Delete(key)
		return
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == key })
	return true
}

// Select returns the keys to operate on: every key in store order when keys
// is empty, otherwise the given keys that are present, in the given order.
func (s *Store) Select(keys ...string) []string {
	if len(keys) == 0 {
		return slices.Clone(s.keys)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if s.Has(k) && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

// Keys returns a sequence over the selected keys.
func (s *Store) Keys(keys ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range s.Select(keys...) {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns a sequence over the selected values.
func (s *Store) Values(keys ...string) iter.Seq[*tensor.RawTensor] {
	return func(yield func(*tensor.RawTensor) bool) {
		for _, k := range s.Select(keys...) {
			if !yield(s.values[k]) {
				return
			}
		}
	}
}

// Items returns a sequence over the selected key/value pairs.
func (s *Store) Items(keys ...string) iter.Seq2[string, *tensor.RawTensor] {
	return func(yield func(string, *tensor.RawTensor) bool) {
		for _, k := range s.Select(keys...) {
			v, ok := s.values[k]
			if !ok {
				continue // deleted during iteration
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Apply replaces each selected value with fn(value), in place.
func (s *Store) Apply(fn ApplyFunc, keys ...string) *Store {
	for _, k := range s.Select(keys...) {
		if out := fn(s.values[k]); out != nil {
			s.values[k] = out
		}
	}
	return s
}

// Size describes the attribute at key, e.g. "x=[12, 5, 2]".
func (s *Store) Size(key string) string {
	v, ok := s.values[key]
	if !ok {
		return key + "=<missing>"
	}
	return SizeRepr(key, v)
}

// String lists every attribute with its shape.
func (s *Store) String() string {
	return "Store(" + joinSizes(s, s.keys) + ")"
}

// SizeRepr formats a key and its value's shape.
func SizeRepr(key string, v *tensor.RawTensor) string {
	return key + "=" + v.Shape().String()
}

func joinSizes(s *Store, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			parts = append(parts, SizeRepr(k, v))
		}
	}
	return strings.Join(parts, ", ")
}
