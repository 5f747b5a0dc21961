package media_test

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/tendant/venue-admin/pkg/media"
	memorystorage "github.com/tendant/venue-admin/pkg/media/storage/memory"
)

const testBaseURL = "https://storage.example.com/public"

type deleteCall struct {
	Bucket string
	Path   string
}

// recordingStorage wraps the memory backend and records every call
type recordingStorage struct {
	*memorystorage.Backend

	mu        sync.Mutex
	stores    int
	deletes   []deleteCall
	storeErr  error
	deleteErr error

	// storeGate, when set, is received from before each store completes
	storeGate chan struct{}
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{Backend: memorystorage.New(testBaseURL)}
}

func (s *recordingStorage) Store(ctx context.Context, bucket, path string, reader io.Reader, opts media.StoreOptions) error {
	s.mu.Lock()
	s.stores++
	gate, storeErr := s.storeGate, s.storeErr
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if storeErr != nil {
		return storeErr
	}
	return s.Backend.Store(ctx, bucket, path, reader, opts)
}

func (s *recordingStorage) Delete(ctx context.Context, bucket, path string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, deleteCall{Bucket: bucket, Path: path})
	deleteErr := s.deleteErr
	s.mu.Unlock()

	if deleteErr != nil {
		return deleteErr
	}
	return s.Backend.Delete(ctx, bucket, path)
}

func (s *recordingStorage) storeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stores
}

func (s *recordingStorage) deleteCalls() []deleteCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]deleteCall(nil), s.deletes...)
}

var errBackendDown = errors.New("backend unavailable")

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}
