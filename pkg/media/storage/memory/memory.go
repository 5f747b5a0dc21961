package memory

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
)

type object struct {
	data        []byte
	contentType string
}

// Backend is an in-memory implementation of the media.Storage interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object // "bucket/path" -> object
	urls    publicurl.Strategy
}

// New creates a new in-memory storage backend whose public URLs start with baseURL
func New(baseURL string) *Backend {
	return NewWithStrategy(publicurl.NewPathStrategy(baseURL))
}

// NewWithStrategy creates an in-memory backend whose public URLs come from urls
func NewWithStrategy(urls publicurl.Strategy) *Backend {
	return &Backend{
		objects: make(map[string]object),
		urls:    urls,
	}
}

// Store stores content in memory
func (b *Backend) Store(ctx context.Context, bucket, path string, reader io.Reader, opts media.StoreOptions) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := objectKey(bucket, path)
	if _, exists := b.objects[key]; exists && !opts.Overwrite {
		return media.ErrObjectExists
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.objects[key] = object{data: data, contentType: contentType}
	return nil
}

// PublicURL returns the URL the object is served from
func (b *Backend) PublicURL(bucket, path string) string {
	return b.urls.PublicURL(bucket, path)
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, bucket, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := objectKey(bucket, path)
	if _, exists := b.objects[key]; !exists {
		return media.ErrObjectNotFound
	}

	delete(b.objects, key)
	return nil
}

// Get returns a copy of the stored bytes and their content type
func (b *Backend) Get(bucket, path string) ([]byte, string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey(bucket, path)]
	if !exists {
		return nil, "", media.ErrObjectNotFound
	}
	return bytes.Clone(obj.data), obj.contentType, nil
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// Handler serves objects at /<bucket>/<path> relative to where it is mounted
func (b *Backend) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, path, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		data, contentType, err := b.Get(bucket, path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	})
}

func objectKey(bucket, path string) string {
	return bucket + "/" + path
}
