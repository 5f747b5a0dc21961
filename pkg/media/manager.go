package media

import (
	"context"
	"strings"
	"sync"
)

// State is the attachment state of a single form field
type State int

const (
	StateEmpty State = iota
	StateUploading
	StateAttached
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateUploading:
		return "uploading"
	case StateAttached:
		return "attached"
	default:
		return "unknown"
	}
}

// ManagerConfig mirrors the props a form passes to its image field
type ManagerConfig struct {
	Value       string
	Constraints Constraints
	Placeholder string

	// OnChange receives the new URL, or "" on removal
	OnChange func(url string)

	// OnRemove is optional and runs after OnChange("") on removal
	OnRemove func()
}

// Manager holds the attachment state of one form field. Uploads can overlap;
// the most recent action wins. An upload that finishes after a newer upload,
// SetByURL or Remove is discarded.
type Manager struct {
	uploader *Uploader
	cleaner  *Cleaner
	cfg      ManagerConfig

	mu    sync.Mutex
	value string
	state State
	seq   uint64
}

// NewManager creates a manager for one field. cleaner may be nil, in which case
// objects from superseded uploads are left as orphans.
func NewManager(uploader *Uploader, cleaner *Cleaner, cfg ManagerConfig) *Manager {
	m := &Manager{
		uploader: uploader,
		cleaner:  cleaner,
		cfg:      cfg,
		value:    strings.TrimSpace(cfg.Value),
	}
	m.state = settledState(m.value)
	return m
}

// Value returns the current attachment URL ("" when empty)
func (m *Manager) Value() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// State returns the current state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Constraints returns the upload constraints of the field
func (m *Manager) Constraints() Constraints {
	return m.cfg.Constraints
}

// Placeholder returns the hint shown while the field is empty
func (m *Manager) Placeholder() string {
	return m.cfg.Placeholder
}

// SetByURL attaches an externally supplied URL. The URL is trusted as-is: no
// existence or content-type check is made.
func (m *Manager) SetByURL(rawURL string) error {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return ErrEmptyURL
	}

	m.mu.Lock()
	m.seq++
	m.value = u
	m.state = StateAttached
	m.mu.Unlock()

	m.notifyChange(u)
	return nil
}

// Remove clears the field. The stored object, if any, is left in place; it is
// cleaned up when the form is saved.
func (m *Manager) Remove() {
	m.mu.Lock()
	m.seq++
	m.value = ""
	m.state = StateEmpty
	m.mu.Unlock()

	m.notifyChange("")
	if m.cfg.OnRemove != nil {
		m.cfg.OnRemove()
	}
}

// Upload validates and stores file, then attaches its public URL. Validation
// failures cause no state change. On storage failure the field returns to the
// value it had before the upload.
func (m *Manager) Upload(ctx context.Context, file File) (Result, error) {
	prepared, err := m.uploader.Validate(file, m.cfg.Constraints)
	if err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.state = StateUploading
	m.mu.Unlock()

	result, err := m.uploader.write(ctx, prepared, m.cfg.Constraints)

	m.mu.Lock()
	if seq != m.seq {
		m.mu.Unlock()
		if err == nil && m.cleaner != nil {
			m.cleaner.Discard(ctx, result.Bucket, result.Path)
		}
		return Result{}, ErrUploadSuperseded
	}
	if err != nil {
		m.state = settledState(m.value)
		m.mu.Unlock()
		return Result{}, err
	}
	m.value = result.URL
	m.state = StateAttached
	m.mu.Unlock()

	m.notifyChange(result.URL)
	return result, nil
}

// Drop handles files dropped onto the field or chosen with a picker. Only the
// first file is used. A file whose declared type is not accepted is rejected
// before anything else happens.
func (m *Manager) Drop(ctx context.Context, files ...File) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrNoFile
	}
	file := files[0]
	if file.ContentType != "" && !m.cfg.Constraints.Accepts(file.ContentType) {
		m.uploader.observer.RecordRejected("type")
		return Result{}, ErrUnsupportedType
	}
	return m.Upload(ctx, file)
}

func (m *Manager) notifyChange(u string) {
	if m.cfg.OnChange != nil {
		m.cfg.OnChange(u)
	}
}

func settledState(value string) State {
	if value == "" {
		return StateEmpty
	}
	return StateAttached
}
