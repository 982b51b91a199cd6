package dataset

import "errors"

// Common errors.
var (
	ErrInvalidTarget   = errors.New("invalid target")
	ErrInvalidWindow   = errors.New("invalid window configuration")
	ErrInvalidAttr     = errors.New("invalid dataset attribute")
	ErrIndexOutOfRange = errors.New("sample index out of range")
)
