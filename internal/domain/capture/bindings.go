package capture

import "unicode/utf8"

// Default key bindings.
const (
	DefaultPositiveKey = "1"
	DefaultNegativeKey = "0"
)

// Bindings are the two single-character keys that score clicks.
type Bindings struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// DefaultBindings returns the stock "1"/"0" bindings.
func DefaultBindings() Bindings {
	return Bindings{Positive: DefaultPositiveKey, Negative: DefaultNegativeKey}
}

// Valid reports whether each key is exactly one character and they differ.
func (b Bindings) Valid() bool {
	return utf8.RuneCountInString(b.Positive) == 1 &&
		utf8.RuneCountInString(b.Negative) == 1 &&
		b.Positive != b.Negative
}

// OrDefault returns b when valid and the default bindings otherwise.
func (b Bindings) OrDefault() Bindings {
	if b.Valid() {
		return b
	}
	return DefaultBindings()
}

// DeltaFor maps a key to its click delta.
func (b Bindings) DeltaFor(key string) (int, bool) {
	switch key {
	case b.Positive:
		return 1, true
	case b.Negative:
		return -1, true
	}
	return 0, false
}
