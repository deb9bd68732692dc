package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("scan queue is full")
	ErrClosed = errors.New("scan queue is closed")
)
