// internal/storage/archive/interface.go
package archive

import (
	"context"
	"time"
)

// Object describes a stored object
type Object struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// WriteOptions carries HTTP metadata for objects served to browsers
type WriteOptions struct {
	ContentType  string
	CacheControl string
}

// Storage defines the interface for object storage backends holding input
// records and published pages
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// WriteObject stores data with content metadata
	WriteObject(ctx context.Context, path string, data []byte, opts WriteOptions) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// ListObjects returns all objects matching the prefix with their metadata
	ListObjects(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns the address the object is served at
	URL(path string) string
}
