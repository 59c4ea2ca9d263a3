// Package link extracts video identifiers from pasted video links.
package link

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrLinkParse marks input that matches none of the recognised link shapes.
var ErrLinkParse = errors.New("link parse error")

const idPattern = `([0-9A-Za-z_-]+)`

var linkRe = regexp.MustCompile(
	`youtube\.com/watch\?.*v=` + idPattern +
		`|youtube\.com/embed/` + idPattern +
		`|youtube\.com/shorts/` + idPattern +
		`|youtu\.be/` + idPattern,
)

var idRe = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

// Parse returns the video id in raw.
func Parse(raw string) (string, error) {
	m := linkRe.FindStringSubmatch(raw)
	for _, g := range m[min(1, len(m)):] {
		if g != "" {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrLinkParse, raw)
}

// ValidID reports whether id is a well-formed video id.
func ValidID(id string) bool { return idRe.MatchString(id) }

// WatchURL builds the canonical watch link for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
