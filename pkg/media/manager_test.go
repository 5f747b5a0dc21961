package media_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/media/publicurl"
)

type changeLog struct {
	mu      sync.Mutex
	changes []string
	removes int
}

func (c *changeLog) onChange(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, u)
}

func (c *changeLog) onRemove() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removes++
}

func (c *changeLog) snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.changes...), c.removes
}

func newTestManager(t *testing.T, value string) (*media.Manager, *recordingStorage, *media.Cleaner, *changeLog) {
	t.Helper()
	store := newRecordingStorage()
	uploader := media.NewUploader(store)
	cleaner := media.NewCleaner(store, publicurl.NewPathStrategy(testBaseURL))
	log := &changeLog{}
	m := media.NewManager(uploader, cleaner, media.ManagerConfig{
		Value:       value,
		Constraints: imageConstraints(),
		Placeholder: "Upload a logo",
		OnChange:    log.onChange,
		OnRemove:    log.onRemove,
	})
	return m, store, cleaner, log
}

func pngFile(name string) media.File {
	return media.File{Name: name, ContentType: "image/png", Size: int64(len(pngHeader)), Reader: bytes.NewReader(pngHeader)}
}

func TestManager_InitialState(t *testing.T) {
	m, _, _, _ := newTestManager(t, "")
	assert.Equal(t, media.StateEmpty, m.State())
	assert.Equal(t, "Upload a logo", m.Placeholder())

	m, _, _, _ = newTestManager(t, "https://cdn.example.com/a.png")
	assert.Equal(t, media.StateAttached, m.State())
	assert.Equal(t, "https://cdn.example.com/a.png", m.Value())
}

func TestManager_UploadAttaches(t *testing.T) {
	m, store, _, log := newTestManager(t, "")

	result, err := m.Upload(context.Background(), pngFile("logo.png"))
	require.NoError(t, err)

	assert.Equal(t, media.StateAttached, m.State())
	assert.Equal(t, result.URL, m.Value())
	assert.Equal(t, 1, store.storeCount())

	changes, _ := log.snapshot()
	assert.Equal(t, []string{result.URL}, changes)
}

func TestManager_UploadSizeExceededLeavesValue(t *testing.T) {
	m, store, _, log := newTestManager(t, "")

	_, err := m.Upload(context.Background(), media.File{
		Name: "huge.png", ContentType: "image/png", Size: 6 * media.MiB, Reader: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, media.ErrSizeExceeded)
	assert.Equal(t, media.StateEmpty, m.State())
	assert.Equal(t, "", m.Value())
	assert.Equal(t, 0, store.storeCount())

	changes, _ := log.snapshot()
	assert.Empty(t, changes)
}

func TestManager_UploadStorageFailureRestoresState(t *testing.T) {
	m, store, _, log := newTestManager(t, "https://cdn.example.com/old.png")
	store.storeErr = errBackendDown

	_, err := m.Upload(context.Background(), pngFile("logo.png"))
	assert.ErrorIs(t, err, media.ErrStorageWriteFailed)
	assert.Equal(t, media.StateAttached, m.State())
	assert.Equal(t, "https://cdn.example.com/old.png", m.Value())

	changes, _ := log.snapshot()
	assert.Empty(t, changes)
}

func TestManager_DropRejectsPDF(t *testing.T) {
	m, store, _, log := newTestManager(t, "")

	_, err := m.Drop(context.Background(), media.File{
		Name: "menu.pdf", ContentType: "application/pdf", Size: 10, Reader: strings.NewReader("%PDF-1.4"),
	})
	assert.ErrorIs(t, err, media.ErrUnsupportedType)
	assert.Equal(t, media.StateEmpty, m.State())
	assert.Equal(t, 0, store.storeCount())

	changes, _ := log.snapshot()
	assert.Empty(t, changes)
}

func TestManager_DropUploads(t *testing.T) {
	m, _, _, _ := newTestManager(t, "")

	_, err := m.Drop(context.Background())
	assert.ErrorIs(t, err, media.ErrNoFile)

	result, err := m.Drop(context.Background(), pngFile("a.png"), pngFile("b.png"))
	require.NoError(t, err)
	assert.Equal(t, result.URL, m.Value())
}

func TestManager_SetByURL(t *testing.T) {
	m, store, _, log := newTestManager(t, "")

	require.NoError(t, m.SetByURL("  https://cdn.example.com/a.png  "))
	assert.Equal(t, "https://cdn.example.com/a.png", m.Value())
	assert.Equal(t, media.StateAttached, m.State())
	assert.Equal(t, 0, store.storeCount())
	assert.Empty(t, store.deleteCalls())

	assert.ErrorIs(t, m.SetByURL("   "), media.ErrEmptyURL)
	assert.Equal(t, "https://cdn.example.com/a.png", m.Value())

	changes, _ := log.snapshot()
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, changes)
}

func TestManager_RemoveThenSetByURL(t *testing.T) {
	m, store, cleaner, log := newTestManager(t, testBaseURL+"/venues/clubs/old.png")

	m.Remove()
	assert.Equal(t, media.StateEmpty, m.State())
	assert.Equal(t, "", m.Value())

	require.NoError(t, m.SetByURL("https://cdn.example.com/a.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", m.Value())

	cleaner.Wait()
	assert.Empty(t, store.deleteCalls())

	changes, removes := log.snapshot()
	assert.Equal(t, []string{"", "https://cdn.example.com/a.png"}, changes)
	assert.Equal(t, 1, removes)
}

func TestManager_LastStartedUploadWins(t *testing.T) {
	m, store, cleaner, log := newTestManager(t, "")

	gate := make(chan struct{})
	store.mu.Lock()
	store.storeGate = gate
	store.mu.Unlock()

	first := make(chan error, 1)
	go func() {
		_, err := m.Upload(context.Background(), pngFile("first.png"))
		first <- err
	}()

	require.Eventually(t, func() bool { return store.storeCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, media.StateUploading, m.State())

	second := make(chan error, 1)
	go func() {
		_, err := m.Upload(context.Background(), pngFile("second.png"))
		second <- err
	}()
	require.Eventually(t, func() bool { return store.storeCount() == 2 }, time.Second, time.Millisecond)

	// Release both writes; whichever finishes, only the second may attach.
	gate <- struct{}{}
	gate <- struct{}{}

	errFirst, errSecond := <-first, <-second
	assert.ErrorIs(t, errFirst, media.ErrUploadSuperseded)
	require.NoError(t, errSecond)
	assert.Equal(t, media.StateAttached, m.State())

	changes, _ := log.snapshot()
	require.Len(t, changes, 1)
	assert.Equal(t, m.Value(), changes[0])

	// The superseded object is cleaned up.
	cleaner.Wait()
	assert.Len(t, store.deleteCalls(), 1)
	assert.Equal(t, 1, store.Len())
}

func TestManager_LaterActionSupersedesUpload(t *testing.T) {
	tests := []struct {
		name      string
		act       func(t *testing.T, m *media.Manager)
		wantValue string
		wantState media.State
	}{
		{
			name:      "set by url",
			act:       func(t *testing.T, m *media.Manager) { require.NoError(t, m.SetByURL("https://cdn.example.com/pasted.png")) },
			wantValue: "https://cdn.example.com/pasted.png",
			wantState: media.StateAttached,
		},
		{
			name:      "remove",
			act:       func(_ *testing.T, m *media.Manager) { m.Remove() },
			wantValue: "",
			wantState: media.StateEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store, cleaner, log := newTestManager(t, "")

			gate := make(chan struct{})
			store.mu.Lock()
			store.storeGate = gate
			store.mu.Unlock()

			done := make(chan error, 1)
			go func() {
				_, err := m.Upload(context.Background(), pngFile("slow.png"))
				done <- err
			}()
			require.Eventually(t, func() bool { return store.storeCount() == 1 }, time.Second, time.Millisecond)

			tt.act(t, m)
			close(gate)

			assert.ErrorIs(t, <-done, media.ErrUploadSuperseded)
			assert.Equal(t, tt.wantValue, m.Value())
			assert.Equal(t, tt.wantState, m.State())

			changes, _ := log.snapshot()
			assert.Equal(t, []string{tt.wantValue}, changes)

			cleaner.Wait()
			assert.Len(t, store.deleteCalls(), 1)
			assert.Zero(t, store.Len())
		})
	}
}
