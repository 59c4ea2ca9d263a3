package repository

import "errors"

// Sentinel kinds for document store errors.
var (
	ErrNotFound    = errors.New("score not found")
	ErrConflict    = errors.New("score already exists")
	ErrTransport   = errors.New("score store unavailable")
	ErrInvalidHash = errors.New("invalid score hash")
)
