package config

import "errors"

// Sentinel errors returned by Load and Validate.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
	// ErrUnknownDriver is joined with ErrInvalidConfig when a store or
	// export driver name is not recognised.
	ErrUnknownDriver = errors.New("unknown driver")
)
