package client

import "errors"

// ErrRejected reports a document the score server refused to store.
var ErrRejected = errors.New("score server rejected document")
