package editbuf

import "errors"

var (
	// ErrConflict is returned when the persisted fingerprint moved since the
	// judge last read it.
	ErrConflict   = errors.New("field changed since it was read")
	ErrInvalidRef = errors.New("field reference needs team and field")
)
