package service

import "errors"

var (
	// ErrNothingToExport is returned when there is no video or no clicks yet.
	ErrNothingToExport = errors.New("nothing to export: no video or no clicks")
	// ErrNotStarted is returned by operations that need the worker pool.
	ErrNotStarted = errors.New("service not started")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)
