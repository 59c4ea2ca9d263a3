package export

import "errors"

var (
	// ErrInvalidName is returned for file names that would escape the sink root.
	ErrInvalidName = errors.New("invalid export name")
	// ErrUpload wraps object storage failures.
	ErrUpload = errors.New("export upload failed")
)
