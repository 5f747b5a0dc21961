package media_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
)

func TestCleaner_ReplaceOnSave(t *testing.T) {
	prev := testBaseURL + "/venues/clubs/old.png"
	next := testBaseURL + "/venues/clubs/new.png"

	tests := []struct {
		name      string
		previous  string
		next      string
		scheduled bool
		deletes   []deleteCall
	}{
		{"same url", prev, prev, false, nil},
		{"empty previous", "", next, false, nil},
		{"replaced", prev, next, true, []deleteCall{{Bucket: "venues", Path: "clubs/old.png"}}},
		{"removed", prev, "", true, []deleteCall{{Bucket: "venues", Path: "clubs/old.png"}}},
		{"external previous", "https://cdn.example.com/a.png", next, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStorage()
			require.NoError(t, store.Backend.Store(context.Background(), "venues", "clubs/old.png", strings.NewReader("x"), media.StoreOptions{}))
			cleaner := media.NewCleaner(store, publicurl.NewPathStrategy(testBaseURL))

			scheduled := cleaner.ReplaceOnSave(context.Background(), tt.previous, tt.next)
			cleaner.Wait()

			assert.Equal(t, tt.scheduled, scheduled)
			assert.Equal(t, tt.deletes, store.deleteCalls())
		})
	}
}

func TestCleaner_ReplaceOnSaveWithin(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		previous  string
		scheduled bool
	}{
		{"inside scope", "tenant-a", testBaseURL + "/venues/tenant-a/clubs/old.png", true},
		{"other scope", "tenant-a", testBaseURL + "/venues/tenant-b/clubs/old.png", false},
		{"shared name prefix", "tenant-a", testBaseURL + "/venues/tenant-ab/clubs/old.png", false},
		{"unscoped path", "tenant-a", testBaseURL + "/venues/clubs/old.png", false},
		{"no scope", "", testBaseURL + "/venues/tenant-b/clubs/old.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStorage()
			cleaner := media.NewCleaner(store, publicurl.NewPathStrategy(testBaseURL))

			scheduled := cleaner.ReplaceOnSaveWithin(context.Background(), tt.prefix, tt.previous, "")
			cleaner.Wait()

			assert.Equal(t, tt.scheduled, scheduled)
			if tt.scheduled {
				assert.Len(t, store.deleteCalls(), 1)
			} else {
				assert.Empty(t, store.deleteCalls())
			}
		})
	}
}

func TestCleaner_DeleteFailureIsSwallowed(t *testing.T) {
	store := newRecordingStorage()
	store.deleteErr = errBackendDown
	cleaner := media.NewCleaner(store, publicurl.NewPathStrategy(testBaseURL))

	assert.True(t, cleaner.ReplaceOnSave(context.Background(), testBaseURL+"/venues/a.png", ""))
	cleaner.Wait()
	assert.Len(t, store.deleteCalls(), 1)
}

// blockingStorage never finishes a delete until released
type blockingStorage struct {
	*recordingStorage
	release chan struct{}
}

func (s *blockingStorage) Delete(ctx context.Context, bucket, path string) error {
	<-s.release
	return s.recordingStorage.Delete(ctx, bucket, path)
}

func TestCleaner_DoesNotBlockCaller(t *testing.T) {
	store := &blockingStorage{recordingStorage: newRecordingStorage(), release: make(chan struct{})}
	cleaner := media.NewCleaner(store, publicurl.NewPathStrategy(testBaseURL))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		done <- cleaner.ReplaceOnSave(ctx, testBaseURL+"/venues/a.png", testBaseURL+"/venues/b.png")
	}()

	select {
	case scheduled := <-done:
		assert.True(t, scheduled)
	case <-time.After(time.Second):
		t.Fatal("ReplaceOnSave blocked on the delete")
	}

	// Cancelling the request context must not abort the cleanup.
	cancel()
	close(store.release)
	cleaner.Wait()
	assert.Equal(t, []deleteCall{{Bucket: "venues", Path: "a.png"}}, store.deleteCalls())
}
