package port

import "context"

// BlobStore keeps raw bytes under a path. It is not transactional with the database.
type BlobStore interface {
	// Store writes data under subdir/fileName. contentType is kept as object metadata where the backend supports it.
	Store(ctx context.Context, subdir, fileName, contentType string, data []byte) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}
