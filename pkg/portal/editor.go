package portal

import (
	"fmt"
	"sync"

	"github.com/tendant/venue-admin/pkg/media"
)

// AttachmentChange is an attachment field whose value differs from the
// persisted record
type AttachmentChange struct {
	Field    string
	Previous string
	Current  string
}

// Editor holds the form state of one record of any schema. Tag fields are
// edited through ChipSets and attachment fields through media.Managers whose
// changes are written back into the editor values.
type Editor struct {
	schema   *Schema
	original Record

	mu          sync.Mutex
	values      Record
	chips       map[string]*ChipSet
	attachments map[string]*media.Manager
}

// EditorOption configures an Editor
type EditorOption func(*editorOptions)

type editorOptions struct {
	tenantID string
}

// ForTenant stores the editor's uploads inside the tenant's folder
func ForTenant(tenantID string) EditorOption {
	return func(o *editorOptions) {
		o.tenantID = tenantID
	}
}

// NewEditor creates an editor for s. original is the persisted record, or nil
// when creating a new one.
func NewEditor(s *Schema, original Record, uploader *media.Uploader, cleaner *media.Cleaner, opts ...EditorOption) *Editor {
	var o editorOptions
	for _, opt := range opts {
		opt(&o)
	}

	e := &Editor{
		schema:      s,
		values:      make(Record, len(s.Fields)),
		chips:       make(map[string]*ChipSet),
		attachments: make(map[string]*media.Manager),
	}
	if original != nil {
		e.original = original.Clone()
	}

	for _, f := range s.Fields {
		var current any = f.Zero()
		if original != nil {
			if v, err := f.Coerce(original[f.Name]); err == nil {
				current = v
			}
		}

		switch f.Kind {
		case KindTags:
			tags, _ := current.([]string)
			e.chips[f.Name] = NewChipSet(tags...)
		case KindAttachment:
			name := f.Name
			value, _ := current.(string)
			e.values[name] = value
			constraints := *f.Attachment
			if o.tenantID != "" {
				constraints = tenantConstraints(o.tenantID, constraints)
			}
			e.attachments[name] = media.NewManager(uploader, cleaner, media.ManagerConfig{
				Value:       value,
				Constraints: constraints,
				Placeholder: f.Placeholder,
				OnChange: func(url string) {
					e.mu.Lock()
					e.values[name] = url
					e.mu.Unlock()
				},
			})
		default:
			e.values[f.Name] = current
		}
	}
	return e
}

// Schema returns the schema being edited
func (e *Editor) Schema() *Schema {
	return e.schema
}

// IsNew reports whether the editor creates a record rather than updating one
func (e *Editor) IsNew() bool {
	return e.original == nil
}

// ID returns the id of the persisted record, "" for a new one
func (e *Editor) ID() string {
	if e.original == nil {
		return ""
	}
	return e.original.ID()
}

// Original returns a copy of the persisted record
func (e *Editor) Original() Record {
	if e.original == nil {
		return nil
	}
	return e.original.Clone()
}

// Set assigns a field value. Tag values replace the chip list; attachment
// values go through the field's manager, with "" removing the attachment.
func (e *Editor) Set(name string, value any) error {
	f, ok := e.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	v, err := f.Coerce(value)
	if err != nil {
		verr := &ValidationError{Entity: e.schema.Entity}
		verr.add(name, err.Error())
		return verr
	}

	switch f.Kind {
	case KindTags:
		e.chips[name].Reset(v.([]string)...)
	case KindAttachment:
		m := e.attachments[name]
		if url := v.(string); url == "" {
			if m.Value() != "" {
				m.Remove()
			}
		} else {
			return m.SetByURL(url)
		}
	default:
		e.mu.Lock()
		e.values[name] = v
		e.mu.Unlock()
	}
	return nil
}

// SetString assigns a string or text field
func (e *Editor) SetString(name, value string) error {
	return e.Set(name, value)
}

// SetNumber assigns a number field
func (e *Editor) SetNumber(name string, value float64) error {
	return e.Set(name, value)
}

// SetBool assigns a bool field
func (e *Editor) SetBool(name string, value bool) error {
	return e.Set(name, value)
}

// Apply sets every field present in patch. Nothing is changed when any value
// fails to coerce.
func (e *Editor) Apply(patch map[string]any) error {
	coerced, err := e.schema.Coerce(patch, true)
	if err != nil {
		return err
	}
	for _, f := range e.schema.Fields {
		v, ok := coerced[f.Name]
		if !ok {
			continue
		}
		if err := e.Set(f.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// Chips returns the chip set of a tags field
func (e *Editor) Chips(name string) (*ChipSet, error) {
	f, ok := e.schema.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind != KindTags {
		return nil, fmt.Errorf("%w: %s is %s", ErrFieldKind, name, f.Kind)
	}
	return e.chips[name], nil
}

// Attachment returns the media manager of an attachment field
func (e *Editor) Attachment(name string) (*media.Manager, error) {
	f, ok := e.schema.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Kind != KindAttachment {
		return nil, fmt.Errorf("%w: %s is %s", ErrFieldKind, name, f.Kind)
	}
	return e.attachments[name], nil
}

// Uploading reports whether any attachment field has an upload in flight. The
// form cannot be saved until it settles.
func (e *Editor) Uploading() bool {
	for _, m := range e.attachments {
		if m.State() == media.StateUploading {
			return true
		}
	}
	return false
}

// Values returns the current form values of all schema fields
func (e *Editor) Values() Record {
	e.mu.Lock()
	out := e.values.Clone()
	e.mu.Unlock()

	for name, chips := range e.chips {
		out[name] = chips.Values()
	}
	return out
}

// Validate checks the current values against the schema
func (e *Editor) Validate() error {
	return e.schema.Validate(e.Values())
}

// AttachmentChanges lists attachment fields whose value differs from the
// persisted record, in schema order. A new record has no changes.
func (e *Editor) AttachmentChanges() []AttachmentChange {
	if e.original == nil {
		return nil
	}
	values := e.Values()
	var changes []AttachmentChange
	for _, f := range e.schema.FieldsOfKind(KindAttachment) {
		prev := e.original.String(f.Name)
		cur := values.String(f.Name)
		if prev != cur {
			changes = append(changes, AttachmentChange{Field: f.Name, Previous: prev, Current: cur})
		}
	}
	return changes
}
