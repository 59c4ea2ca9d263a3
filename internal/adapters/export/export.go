// Package export delivers exported score documents to a file directory or an
// S3-compatible bucket.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ContentType is the media type of exported documents.
const ContentType = "application/json"

// Sink stores an exported document under a file name.
type Sink interface {
	// Put stores data and returns where it landed.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Kind names the sink for metrics.
	Kind() string
}

// DirSink writes documents into a local directory.
type DirSink struct {
	dir string
}

// NewDirSink returns a sink rooted at dir.
func NewDirSink(dir string) *DirSink {
	if dir == "" {
		dir = "."
	}
	return &DirSink{dir: dir}
}

// Kind implements Sink.
func (s *DirSink) Kind() string { return "dir" }

// Put implements Sink.
func (s *DirSink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // exported documents are meant to be shared
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
