package pattern

import "errors"

// Common errors.
var (
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrShapeMismatch  = errors.New("pattern does not match tensor shape")
	ErrBroadcast      = errors.New("parameters cannot follow rearrangement by broadcasting")
)
