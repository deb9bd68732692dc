package checkpoint

import "errors"

var (
	// ErrNotFound is returned when no active checkpoint has the requested order.
	ErrNotFound = errors.New("checkpoint not found")
	ErrSecret   = errors.New("generate checkpoint secret")
)
