package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/venue-admin/pkg/media"
)

// Service is the entry point of the portal: it resolves the caller's session,
// persists records, cleans up replaced images and keeps list caches fresh.
type Service struct {
	repository Repository
	schemas    map[string]*Schema
	order      []string
	uploader   *media.Uploader
	cleaner    *media.Cleaner
	session    SessionFunc
	invalidate []InvalidateFunc
	cache      *ListCache
	events     EventSink
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*Service)

// WithRepository sets the record repository
func WithRepository(repo Repository) Option {
	return func(s *Service) {
		s.repository = repo
	}
}

// WithSchemas registers entity schemas. Later registrations of the same entity
// replace earlier ones.
func WithSchemas(schemas ...*Schema) Option {
	return func(s *Service) {
		for _, schema := range schemas {
			if _, exists := s.schemas[schema.Entity]; !exists {
				s.order = append(s.order, schema.Entity)
			}
			s.schemas[schema.Entity] = schema
		}
	}
}

// WithUploader sets the attachment uploader
func WithUploader(u *media.Uploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

// WithCleaner sets the cleaner used for replaced attachments
func WithCleaner(c *media.Cleaner) Option {
	return func(s *Service) {
		s.cleaner = c
	}
}

// WithSessionFunc sets how the caller's session is resolved
func WithSessionFunc(fn SessionFunc) Option {
	return func(s *Service) {
		s.session = fn
	}
}

// WithInvalidateFunc adds a hook run after every successful write
func WithInvalidateFunc(fn InvalidateFunc) Option {
	return func(s *Service) {
		s.invalidate = append(s.invalidate, fn)
	}
}

// WithListCache caches list pages and invalidates them on writes
func WithListCache(c *ListCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithEventSink sets the sink for record lifecycle events
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		s.events = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a service. A repository and an uploader are required.
func New(options ...Option) (*Service, error) {
	s := &Service{
		schemas: make(map[string]*Schema),
		session: ContextSession,
		events:  NoopEventSink{},
		logger:  slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if s.cache != nil {
		s.invalidate = append([]InvalidateFunc{s.cache.Invalidate}, s.invalidate...)
	}

	return s, nil
}

// Entities returns the registered schemas in registration order
func (s *Service) Entities(ctx context.Context) ([]*Schema, error) {
	if _, err := s.session(ctx); err != nil {
		return nil, err
	}
	out := make([]*Schema, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.schemas[name])
	}
	return out, nil
}

// Schema returns the schema registered for entity
func (s *Service) Schema(entity string) (*Schema, error) {
	schema, ok := s.schemas[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return schema, nil
}

func (s *Service) resolve(ctx context.Context, entity string) (Session, *Schema, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return Session{}, nil, err
	}
	schema, err := s.Schema(entity)
	if err != nil {
		return Session{}, nil, err
	}
	return sess, schema, nil
}

// List returns one page of records of entity for the caller's tenant
func (s *Service) List(ctx context.Context, entity string, q Query) (Page, error) {
	sess, schema, err := s.resolve(ctx, entity)
	if err != nil {
		return Page{}, err
	}
	lq, err := q.Normalize(schema)
	if err != nil {
		return Page{}, err
	}

	if s.cache != nil {
		if page, ok := s.cache.Get(sess.TenantID, entity, lq); ok {
			return page, nil
		}
	}

	page, err := s.repository.List(ctx, schema, sess.TenantID, lq)
	if err != nil {
		return Page{}, fmt.Errorf("failed to list %s: %w", entity, err)
	}
	if s.cache != nil {
		s.cache.Put(sess.TenantID, entity, lq, page)
	}
	return page, nil
}

// Get returns one record of the caller's tenant
func (s *Service) Get(ctx context.Context, entity, id string) (Record, error) {
	sess, schema, err := s.resolve(ctx, entity)
	if err != nil {
		return nil, err
	}
	r, err := s.repository.Get(ctx, schema, sess.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", entity, id, err)
	}
	return r, nil
}

// Edit opens an editor. An empty id starts a new record.
func (s *Service) Edit(ctx context.Context, entity, id string) (*Editor, error) {
	sess, schema, err := s.resolve(ctx, entity)
	if err != nil {
		return nil, err
	}
	var original Record
	if id != "" {
		original, err = s.repository.Get(ctx, schema, sess.TenantID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s %s: %w", entity, id, err)
		}
	}
	return NewEditor(schema, original, s.uploader, s.cleaner, ForTenant(sess.TenantID)), nil
}

// Save validates and persists the editor's values. It fails with
// ErrUploadInProgress while an attachment is still uploading. For an existing
// record the save completes first; previously stored images of changed
// attachment fields in the tenant's folder are then deleted in the background.
func (s *Service) Save(ctx context.Context, ed *Editor) (Record, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	schema := ed.Schema()
	if ed.Uploading() {
		return nil, ErrUploadInProgress
	}
	if err := ed.Validate(); err != nil {
		return nil, err
	}
	values := ed.Values()

	if ed.IsNew() {
		saved, err := s.repository.Insert(ctx, schema, sess.TenantID, values)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", schema.Entity, err)
		}
		s.afterWrite(sess.TenantID, schema.Entity)
		if err := s.events.RecordCreated(ctx, schema.Entity, saved); err != nil {
			s.logger.Warn("Event sink failed", "entity", schema.Entity, "error", err)
		}
		return saved, nil
	}

	if orig := ed.Original(); orig.TenantID() != "" && orig.TenantID() != sess.TenantID {
		return nil, fmt.Errorf("failed to update %s %s: %w", schema.Entity, ed.ID(), ErrNotFound)
	}

	saved, err := s.repository.Update(ctx, schema, sess.TenantID, ed.ID(), values)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", schema.Entity, ed.ID(), err)
	}

	if s.cleaner != nil {
		for _, change := range ed.AttachmentChanges() {
			s.cleaner.ReplaceOnSaveWithin(ctx, TenantFolder(sess.TenantID), change.Previous, change.Current)
		}
	}
	s.afterWrite(sess.TenantID, schema.Entity)
	if err := s.events.RecordUpdated(ctx, schema.Entity, saved); err != nil {
		s.logger.Warn("Event sink failed", "entity", schema.Entity, "error", err)
	}
	return saved, nil
}

// Create inserts a record from raw field values
func (s *Service) Create(ctx context.Context, entity string, raw map[string]any) (Record, error) {
	ed, err := s.Edit(ctx, entity, "")
	if err != nil {
		return nil, err
	}
	if err := ed.Apply(raw); err != nil {
		return nil, err
	}
	return s.Save(ctx, ed)
}

// Update applies raw field values to an existing record. Fields absent from
// raw keep their persisted value.
func (s *Service) Update(ctx context.Context, entity, id string, raw map[string]any) (Record, error) {
	ed, err := s.Edit(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	if err := ed.Apply(raw); err != nil {
		return nil, err
	}
	return s.Save(ctx, ed)
}

// Delete removes a record. Its stored images are left in place.
func (s *Service) Delete(ctx context.Context, entity, id string) error {
	sess, schema, err := s.resolve(ctx, entity)
	if err != nil {
		return err
	}
	if err := s.repository.Delete(ctx, schema, sess.TenantID, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", entity, id, err)
	}
	s.afterWrite(sess.TenantID, entity)
	if err := s.events.RecordDeleted(ctx, entity, sess.TenantID, id); err != nil {
		s.logger.Warn("Event sink failed", "entity", entity, "error", err)
	}
	return nil
}

// UploadAttachment stores a file with the constraints of an attachment field,
// inside the caller's tenant folder, and returns its public URL. The record
// itself is not modified; the client submits the URL with its next save.
func (s *Service) UploadAttachment(ctx context.Context, entity, field string, file media.File) (media.Result, error) {
	sess, schema, err := s.resolve(ctx, entity)
	if err != nil {
		return media.Result{}, err
	}
	f, ok := schema.Field(field)
	if !ok {
		return media.Result{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if f.Kind != KindAttachment {
		return media.Result{}, fmt.Errorf("%w: %s is %s", ErrFieldKind, field, f.Kind)
	}

	return s.uploader.Upload(ctx, file, tenantConstraints(sess.TenantID, *f.Attachment))
}

func (s *Service) afterWrite(tenantID, entity string) {
	for _, fn := range s.invalidate {
		fn(tenantID, entity)
	}
}

// IsNotFound reports whether err means the record or entity does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnknownEntity)
}
