package media

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeExceeded indicates the file is larger than the configured limit
	ErrSizeExceeded = errors.New("file size exceeded")

	// ErrUnsupportedType indicates the file MIME type is not accepted
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrStorageWriteFailed indicates the storage backend rejected an upload
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrStorageDeleteFailed indicates a superseded object could not be deleted
	ErrStorageDeleteFailed = errors.New("storage delete failed")

	// ErrAuthRequired indicates the caller has no valid session
	ErrAuthRequired = errors.New("authentication required")

	// ErrEmptyURL indicates an attachment URL was blank after trimming
	ErrEmptyURL = errors.New("attachment url is empty")

	// ErrObjectExists indicates a non-overwriting store hit an existing object
	ErrObjectExists = errors.New("object already exists")

	// ErrObjectNotFound indicates the object does not exist in the bucket
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidConstraints indicates an upload was configured without a bucket
	ErrInvalidConstraints = errors.New("invalid upload constraints")

	// ErrNoFile indicates a drop or form submission carried no file
	ErrNoFile = errors.New("no file provided")

	// ErrUploadSuperseded indicates a newer upload started before this one finished
	ErrUploadSuperseded = errors.New("upload superseded by a newer upload")
)

// StorageError represents a failed storage operation. It unwraps to both the
// operation sentinel (ErrStorageWriteFailed / ErrStorageDeleteFailed) and the
// backend cause.
type StorageError struct {
	Op     string
	Bucket string
	Path   string
	Kind   error
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for %s/%s: %v", e.Op, e.Bucket, e.Path, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
