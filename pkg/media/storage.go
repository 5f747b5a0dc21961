package media

import (
	"context"
	"io"
)

// Storage defines the object storage collaborator used for attachments
type Storage interface {
	// Store writes the reader to bucket/path. When opts.Overwrite is false and
	// the object already exists, Store returns ErrObjectExists.
	Store(ctx context.Context, bucket, path string, reader io.Reader, opts StoreOptions) error

	// PublicURL returns the publicly reachable URL of bucket/path
	PublicURL(bucket, path string) string

	// Delete removes bucket/path, returning ErrObjectNotFound if absent
	Delete(ctx context.Context, bucket, path string) error
}

// StoreOptions contains parameters for storing an object
type StoreOptions struct {
	Overwrite   bool
	ContentType string
	Size        int64 // -1 when unknown
}
