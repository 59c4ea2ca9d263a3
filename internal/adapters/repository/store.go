// Package repository stores published score documents keyed by content hash.
package repository

import (
	"context"

	"github.com/okian/clicker/internal/domain/document"
)

// Store provides read/write access to published documents.
type Store interface {
	// QueryByHash returns the single document stored under hash.
	// Returns ErrNotFound when there is no match, or more than one.
	QueryByHash(ctx context.Context, hash string) (document.Document, error)

	// Publish stores doc under doc.Hash.
	// Returns ErrConflict when the hash already exists.
	Publish(ctx context.Context, doc document.Document) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases the store's resources.
	Close() error
}
