package data

import (
	"errors"
	"fmt"

	"github.com/born-ml/stgraph/internal/storage"
)

// Common errors.
var (
	ErrKeyNotFound       = storage.ErrKeyNotFound
	ErrPatternMismatch   = errors.New("pattern mismatch")
	ErrMissingPattern    = errors.New("key has no pattern")
	ErrMissingTransform  = errors.New("key has no transform")
	ErrInvalidAttributes = errors.New("invalid record attributes")
)

// PatternError reports a source pattern that disagrees with the pattern
// recorded for a key.
type PatternError struct {
	Key      string // Key being rearranged
	Recorded string // Pattern recorded on the record
	Given    string // Source pattern passed by the caller
}

// Error implements the error interface.
func (e *PatternError) Error() string {
	return fmt.Sprintf("%s: key %q: starting pattern %q does not match key pattern %q",
		ErrPatternMismatch, e.Key, e.Given, e.Recorded)
}

// Unwrap makes errors.Is(err, ErrPatternMismatch) hold.
func (e *PatternError) Unwrap() error {
	return ErrPatternMismatch
}
