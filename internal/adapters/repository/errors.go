package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDecode       = errors.New("decode record")
	ErrPartialBatch = errors.New("some roster chunks failed")
)
