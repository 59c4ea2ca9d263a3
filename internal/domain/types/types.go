// Package types contains common types used across the application
package types

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeInfo      NoticeKind = "info"
	NoticeFormat    NoticeKind = "format_error"
	NoticeLink      NoticeKind = "link_error"
	NoticeNotFound  NoticeKind = "not_found"
	NoticeConflict  NoticeKind = "conflict"
	NoticeTransport NoticeKind = "transport_error"
)

// Notice is a notification surfaced to the user instead of a failure.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	URL     string     `json:"url,omitempty"`
}

// Blocking reports whether the notice reports a failed action.
func (n Notice) Blocking() bool {
	return n.Kind != NoticeInfo && n.Kind != NoticeConflict
}

// Publish status messages.
const (
	StatusPublished        = "Score published! Find the score at:"
	StatusAlreadyPublished = "This score has already been published! Find the score at:"
	StatusPublishFailed    = "Error: score publish failed :["
)

// PublishResult is the outcome of a publish. URL is empty when it failed.
type PublishResult struct {
	URL    string `json:"url,omitempty"`
	Status string `json:"status"`
	Hash   string `json:"hash,omitempty"`
}
