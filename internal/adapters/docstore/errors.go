package docstore

import "errors"

var (
	ErrNotFound      = errors.New("document not found")
	ErrBatchTooLarge = errors.New("batch exceeds write limit")
	ErrInvalidPath   = errors.New("invalid field path")
	ErrInvalidData   = errors.New("document data is not JSON compatible")
	ErrClosed        = errors.New("store closed")
	ErrNoCollection  = errors.New("collection is required")
)

// ErrBusy marks a write that lost a lock race in the database.
var ErrBusy = errors.New("database busy")
