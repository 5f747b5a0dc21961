package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
)

// Backend is a filesystem implementation of the media.Storage interface.
// Buckets are top-level directories under BaseDir.
type Backend struct {
	baseDir string
	urls    publicurl.Strategy
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
	BaseURL string // URL prefix under which BaseDir is served

	// URLs overrides BaseURL, e.g. with a CDN in front of the file server
	URLs publicurl.Strategy
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	urls := config.URLs
	if urls == nil {
		if config.BaseURL == "" {
			return nil, errors.New("base URL is required")
		}
		urls = publicurl.NewPathStrategy(config.BaseURL)
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir: config.BaseDir,
		urls:    urls,
	}, nil
}

// Store writes content to <base>/<bucket>/<path>
func (b *Backend) Store(ctx context.Context, bucket, path string, reader io.Reader, opts media.StoreOptions) error {
	filePath, err := b.resolve(bucket, path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return media.ErrObjectExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(filePath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return file.Close()
}

// PublicURL returns the URL the file is served from
func (b *Backend) PublicURL(bucket, path string) string {
	return b.urls.PublicURL(bucket, path)
}

// Delete removes the file
func (b *Backend) Delete(ctx context.Context, bucket, path string) error {
	filePath, err := b.resolve(bucket, path)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return media.ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Handler serves the base directory
func (b *Backend) Handler() http.Handler {
	return http.FileServer(http.Dir(b.baseDir))
}

// resolve maps bucket/path to a file path, refusing anything that escapes the base directory
func (b *Backend) resolve(bucket, path string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket name: %q", bucket)
	}
	root := filepath.Join(b.baseDir, bucket)
	full := filepath.Join(root, filepath.FromSlash(path))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object path: %q", path)
	}
	return full, nil
}
