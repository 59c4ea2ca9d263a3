package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrBackpressure = errors.New("queue full")
	ErrClosed       = errors.New("queue closed")
)
