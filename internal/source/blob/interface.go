// Package blob reads workbook documents from local disk or S3-compatible
// object storage.
package blob

import "context"

// Store defines read access to workbook blobs
type Store interface {
	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}
