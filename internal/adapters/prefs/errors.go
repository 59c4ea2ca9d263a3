package prefs

import "errors"

var (
	// ErrLocked is returned when the preference file lock cannot be taken.
	ErrLocked = errors.New("preferences locked")
	// ErrCorrupt is returned when the preference file is not a JSON object.
	ErrCorrupt = errors.New("preferences corrupt")
)
