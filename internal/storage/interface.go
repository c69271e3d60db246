package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the interface for the artifact store holding
// downloaded invoices, execution logs, diagnostic snapshots, and cached
// portal sessions.
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download downloads an object from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// EnsureBucket creates the backing bucket if it doesn't exist
	EnsureBucket(ctx context.Context) error

	// List returns the keys under a prefix, e.g. all execution logs of a day
	List(ctx context.Context, prefix string) ([]string, error)
}
