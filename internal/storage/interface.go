package storage

import "context"

// Uploader is the object-store surface the handlers depend on.
// This interface allows for easy mocking in tests.
type Uploader interface {
	Store(ctx context.Context, data []byte, folder, ownerID, originalFilename string) (*StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// Ensure S3Store implements Uploader
var _ Uploader = (*S3Store)(nil)
