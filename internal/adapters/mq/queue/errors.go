package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("recompute queue is full")
	ErrClosed = errors.New("recompute queue is closed")
)
