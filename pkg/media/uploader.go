package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tendant/venue-admin/pkg/media/objectkey"
)

// sniffLen is how many leading bytes are inspected when a file has no declared type
const sniffLen = 3072

// File is a local file offered for upload. Size is -1 when unknown.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Result describes a stored attachment
type Result struct {
	URL    string `json:"url"`
	Path   string `json:"path"`
	Bucket string `json:"bucket"`
}

// Uploader validates files against Constraints and writes them to Storage
type Uploader struct {
	storage  Storage
	names    objectkey.Generator
	observer Observer
	logger   *slog.Logger
}

// NewUploader creates an uploader backed by storage
func NewUploader(storage Storage, opts ...Option) *Uploader {
	s := newSettings(opts)
	return &Uploader{
		storage:  storage,
		names:    s.names,
		observer: s.observer,
		logger:   s.logger,
	}
}

// Storage returns the backend the uploader writes to
func (u *Uploader) Storage() Storage {
	return u.storage
}

// Upload validates the file and stores it under a newly generated name. Storage
// failures are reported as ErrStorageWriteFailed; nothing is written when
// validation fails.
func (u *Uploader) Upload(ctx context.Context, file File, c Constraints) (Result, error) {
	prepared, err := u.Validate(file, c)
	if err != nil {
		return Result{}, err
	}
	return u.write(ctx, prepared, c)
}

// Validate checks size and type limits without touching storage. The returned
// File has its content type resolved and, for files of unknown size, its
// content buffered so the limit can be enforced.
func (u *Uploader) Validate(file File, c Constraints) (File, error) {
	if c.Bucket == "" {
		return File{}, fmt.Errorf("%w: bucket is required", ErrInvalidConstraints)
	}
	if file.Reader == nil {
		return File{}, ErrNoFile
	}

	max := c.MaxBytes()
	if file.Size < 0 {
		data, err := io.ReadAll(io.LimitReader(file.Reader, limitOrAll(max)))
		if err != nil {
			return File{}, fmt.Errorf("read upload: %w", err)
		}
		file.Size = int64(len(data))
		file.Reader = bytes.NewReader(data)
	}
	if max > 0 && file.Size > max {
		u.observer.RecordRejected("size")
		return File{}, fmt.Errorf("%w: %d bytes exceeds %d MB", ErrSizeExceeded, file.Size, c.MaxSizeInMB)
	}

	if file.ContentType == "" {
		br := bufio.NewReaderSize(file.Reader, sniffLen)
		head, _ := br.Peek(sniffLen)
		file.ContentType = mimetype.Detect(head).String()
		file.Reader = br
	}
	if !c.Accepts(file.ContentType) {
		u.observer.RecordRejected("type")
		return File{}, fmt.Errorf("%w: %s", ErrUnsupportedType, normalizeType(file.ContentType))
	}

	return file, nil
}

func (u *Uploader) write(ctx context.Context, file File, c Constraints) (Result, error) {
	path := c.ObjectPath(u.names.GenerateName(file.Name))

	start := time.Now()
	err := u.storage.Store(ctx, c.Bucket, path, file.Reader, StoreOptions{
		Overwrite:   false,
		ContentType: normalizeType(file.ContentType),
		Size:        file.Size,
	})
	u.observer.RecordUpload(time.Since(start), file.Size, err)
	if err != nil {
		u.logger.Error("Failed to store attachment", "bucket", c.Bucket, "path", path, "error", err)
		return Result{}, &StorageError{Op: "store", Bucket: c.Bucket, Path: path, Kind: ErrStorageWriteFailed, Err: err}
	}

	result := Result{
		URL:    u.storage.PublicURL(c.Bucket, path),
		Path:   path,
		Bucket: c.Bucket,
	}
	u.logger.Info("Attachment stored", "bucket", c.Bucket, "path", path, "size", file.Size)
	return result, nil
}

func limitOrAll(max int64) int64 {
	if max <= 0 {
		return 1<<63 - 1
	}
	return max + 1
}

// IsUserError reports whether err is a validation failure the user can fix, as
// opposed to a backend failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrSizeExceeded) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrEmptyURL)
}
