package media

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tendant/venue-admin/pkg/media/publicurl"
)

// Cleaner deletes superseded attachment objects in the background. Deletes are
// best-effort: failures are logged and never reported to the caller.
type Cleaner struct {
	storage  Storage
	urls     publicurl.Strategy
	observer Observer
	logger   *slog.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

// NewCleaner creates a cleaner that resolves attachment URLs with urls
func NewCleaner(storage Storage, urls publicurl.Strategy, opts ...Option) *Cleaner {
	s := newSettings(opts)
	return &Cleaner{
		storage:  storage,
		urls:     urls,
		observer: s.observer,
		logger:   s.logger,
		timeout:  s.deleteTimeout,
	}
}

// ReplaceOnSave is called by a form after its entity has been saved. When the
// previous URL was set and differs from the new one, the previous object is
// deleted in the background. It returns true if a delete was scheduled.
func (c *Cleaner) ReplaceOnSave(ctx context.Context, previousURL, newURL string) bool {
	return c.ReplaceOnSaveWithin(ctx, "", previousURL, newURL)
}

// ReplaceOnSaveWithin is ReplaceOnSave restricted to objects whose path lies
// under prefix. Objects outside it belong to someone else and are left alone.
func (c *Cleaner) ReplaceOnSaveWithin(ctx context.Context, prefix, previousURL, newURL string) bool {
	previousURL = strings.TrimSpace(previousURL)
	if previousURL == "" || previousURL == strings.TrimSpace(newURL) {
		return false
	}

	bucket, path, err := c.urls.Parse(previousURL)
	if err != nil {
		// Externally hosted images set by URL have nothing to clean up.
		c.logger.Debug("Skipping cleanup of unmanaged attachment", "url", previousURL, "error", err)
		return false
	}
	if prefix = strings.Trim(prefix, "/"); prefix != "" && !strings.HasPrefix(path, prefix+"/") {
		c.logger.Warn("Skipping cleanup of attachment outside scope", "bucket", bucket, "path", path, "scope", prefix)
		return false
	}

	c.Discard(ctx, bucket, path)
	return true
}

// Discard schedules a background delete of bucket/path
func (c *Cleaner) Discard(ctx context.Context, bucket, path string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.delete(context.WithoutCancel(ctx), bucket, path)
	}()
}

// Wait blocks until all scheduled deletes have finished
func (c *Cleaner) Wait() {
	c.wg.Wait()
}

func (c *Cleaner) delete(ctx context.Context, bucket, path string) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.storage.Delete(ctx, bucket, path)
	c.observer.RecordDelete(time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			c.logger.Warn("Superseded attachment already gone", "bucket", bucket, "path", path)
			return
		}
		serr := &StorageError{Op: "delete", Bucket: bucket, Path: path, Kind: ErrStorageDeleteFailed, Err: err}
		c.logger.Error("Failed to delete superseded attachment", "bucket", bucket, "path", path, "error", serr)
		return
	}
	c.logger.Info("Superseded attachment deleted", "bucket", bucket, "path", path)
}
