package data

import (
	"fmt"

	"github.com/born-ml/stgraph/internal/pattern"
)

// PatternEntry pairs a key with a rearrangement expression.
type PatternEntry struct {
	Key  string
	Expr string
}

// RearrangeKey rearranges the value of key.
//
// expr is either "src -> dst" or only dst, in which case src is the pattern
// recorded for key. An explicit src must match the recorded pattern. On
// success the value, the recorded pattern and the key's transform all follow
// dst. On failure the record is unchanged.
func (r *Record) RearrangeKey(key, expr string, lengths ...pattern.Length) error {
	recorded, ok := r.Pattern(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingPattern, key)
	}
	value, ok := r.store.Get(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	src, dst, hasSrc := pattern.Split(expr)
	if hasSrc && pattern.Normalize(src) != recorded {
		return &PatternError{Key: key, Recorded: recorded, Given: src}
	}
	dst, err := pattern.Check(dst, -1)
	if err != nil {
		return fmt.Errorf("rearrange %q: %w", key, err)
	}

	out, err := pattern.Rearrange(value, recorded+" "+pattern.Arrow+" "+dst, lengths...)
	if err != nil {
		return fmt.Errorf("rearrange %q: %w", key, err)
	}

	meta := r.meta[key]
	tr := meta.Transform
	if tr != nil {
		if tr, err = tr.Rearrange(dst); err != nil {
			return fmt.Errorf("rearrange transform of %q: %w", key, err)
		}
	}

	r.store.Set(key, out)
	meta.Pattern = dst
	meta.Transform = tr
	return nil
}

// Rearrange applies RearrangeKey to every entry in order. It is not atomic:
// on error, keys before the failing one stay rearranged. Callers needing
// all-or-nothing behavior must validate the expressions first.
func (r *Record) Rearrange(entries ...PatternEntry) error {
	for _, e := range entries {
		if err := r.RearrangeKey(e.Key, e.Expr); err != nil {
			return err
		}
	}
	return nil
}

// RearrangeMap is Rearrange over a map, in key order.
func (r *Record) RearrangeMap(exprs map[string]string) error {
	entries := make([]PatternEntry, 0, len(exprs))
	for _, k := range sortedKeys(exprs) {
		entries = append(entries, PatternEntry{Key: k, Expr: exprs[k]})
	}
	return r.Rearrange(entries...)
}
