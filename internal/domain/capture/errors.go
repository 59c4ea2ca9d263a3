package capture

import "errors"

// ErrInvalidBindings marks a key binding pair that is not two distinct single characters.
var ErrInvalidBindings = errors.New("invalid key bindings")
