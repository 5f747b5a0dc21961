package portal_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
	memorystorage "github.com/tendant/venue-admin/pkg/media/storage/memory"
	"github.com/tendant/venue-admin/pkg/portal"
	"github.com/tendant/venue-admin/pkg/portal/repo/memory"
)

const testBaseURL = "https://storage.example.com/public"

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

// trackingStorage records deletes issued against the memory backend
type trackingStorage struct {
	*memorystorage.Backend

	mu      sync.Mutex
	deleted []string
	stores  int

	// storeGate, when set, holds Store until it is closed
	storeGate chan struct{}
	// storeErr, when set, fails every Store
	storeErr error
}

func (s *trackingStorage) Store(ctx context.Context, bucket, path string, reader io.Reader, opts media.StoreOptions) error {
	s.mu.Lock()
	s.stores++
	gate, storeErr := s.storeGate, s.storeErr
	s.mu.Unlock()

	if storeErr != nil {
		return storeErr
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.Backend.Store(ctx, bucket, path, reader, opts)
}

func (s *trackingStorage) storeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stores
}

func (s *trackingStorage) Delete(ctx context.Context, bucket, path string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, bucket+"/"+path)
	s.mu.Unlock()
	return s.Backend.Delete(ctx, bucket, path)
}

func (s *trackingStorage) deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type fixture struct {
	storage     *trackingStorage
	uploader    *media.Uploader
	cleaner     *media.Cleaner
	repo        *memory.Repository
	service     *portal.Service
	invalidated []string
}

func newFixture(t *testing.T, opts ...portal.Option) *fixture {
	t.Helper()

	f := &fixture{
		storage: &trackingStorage{Backend: memorystorage.New(testBaseURL)},
		repo:    memory.New(),
	}
	f.uploader = media.NewUploader(f.storage)
	f.cleaner = media.NewCleaner(f.storage, publicurl.NewPathStrategy(testBaseURL))

	cache, err := portal.NewListCache(portal.CacheConfig{})
	require.NoError(t, err)

	base := []portal.Option{
		portal.WithRepository(f.repo),
		portal.WithSchemas(portal.BuiltinSchemas()...),
		portal.WithUploader(f.uploader),
		portal.WithCleaner(f.cleaner),
		portal.WithListCache(cache),
		portal.WithInvalidateFunc(func(tenantID, entity string) {
			f.invalidated = append(f.invalidated, tenantID+"/"+entity)
		}),
	}
	f.service, err = portal.New(append(base, opts...)...)
	require.NoError(t, err)
	return f
}

func asTenant(tenantID string) context.Context {
	return portal.WithSession(context.Background(), portal.Session{UserID: "admin-1", TenantID: tenantID})
}

func pngFile(name string, size int) media.File {
	data := make([]byte, size)
	copy(data, pngHeader)
	return media.File{Name: name, ContentType: "image/png", Size: int64(size), Reader: bytes.NewReader(data)}
}
