package ws

import "errors"

var (
	// ErrUnknownMessage is reported for inbound messages with an unknown type.
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrBadMessage is reported for inbound messages missing required fields.
	ErrBadMessage = errors.New("malformed message")
)
