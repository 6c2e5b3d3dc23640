// Package archive provides the blob storage backends run artifacts
// are persisted to: a local directory for single-machine use and S3
// for shared or long-lived result archives.
package archive

import "context"

// Storage is a flat key/value blob store. Paths use forward slashes
// regardless of backend.
type Storage interface {
	// Write stores data at the given path, replacing any previous
	// content.
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}
