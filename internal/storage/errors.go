package storage

import "errors"

// ErrKeyNotFound is returned when a key is not an effective key of a view.
var ErrKeyNotFound = errors.New("key not found")
