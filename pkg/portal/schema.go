package portal

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tendant/venue-admin/pkg/media"
)

// FieldKind is the value type of a schema field
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindText       FieldKind = "text"
	KindNumber     FieldKind = "number"
	KindBool       FieldKind = "bool"
	KindTags       FieldKind = "tags"
	KindAttachment FieldKind = "attachment"
)

// Field describes one editable column of an entity
type Field struct {
	Name        string             `json:"name"`
	Kind        FieldKind          `json:"kind"`
	Label       string             `json:"label,omitempty"`
	Placeholder string             `json:"placeholder,omitempty"`
	Required    bool               `json:"required,omitempty"`
	MaxLen      int                `json:"max_len,omitempty"`
	Min         *float64           `json:"min,omitempty"`
	OneOf       []string           `json:"one_of,omitempty"`
	Searchable  bool               `json:"searchable,omitempty"`
	Filterable  bool               `json:"filterable,omitempty"`
	Attachment  *media.Constraints `json:"attachment,omitempty"`
}

// FieldOption configures a field while building a schema
type FieldOption func(*Field)

// Required marks the field as mandatory
func Required() FieldOption {
	return func(f *Field) { f.Required = true }
}

// MaxLen limits string length in characters
func MaxLen(n int) FieldOption {
	return func(f *Field) { f.MaxLen = n }
}

// Min sets a lower bound for number fields
func Min(v float64) FieldOption {
	return func(f *Field) { f.Min = &v }
}

// OneOf restricts a string field to the given values
func OneOf(values ...string) FieldOption {
	return func(f *Field) { f.OneOf = values }
}

// Searchable includes the field in free-text search
func Searchable() FieldOption {
	return func(f *Field) { f.Searchable = true }
}

// Filterable allows equality filters on the field
func Filterable() FieldOption {
	return func(f *Field) { f.Filterable = true }
}

// Label sets the display label
func Label(label string) FieldOption {
	return func(f *Field) { f.Label = label }
}

// Placeholder sets the hint shown for an empty field
func Placeholder(text string) FieldOption {
	return func(f *Field) { f.Placeholder = text }
}

// Schema describes an entity table and its editable fields
type Schema struct {
	Entity string  `json:"entity"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`

	index map[string]int
}

// SchemaBuilder assembles a Schema field by field
type SchemaBuilder struct {
	schema Schema
	errs   []string
}

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reserved names are managed by the repository
var reserved = map[string]bool{
	FieldID:        true,
	FieldTenantID:  true,
	FieldCreatedAt: true,
	FieldUpdatedAt: true,
}

// NewSchema starts a schema for the named entity (also its table name)
func NewSchema(entity string) *SchemaBuilder {
	b := &SchemaBuilder{schema: Schema{Entity: entity, Label: entity, index: make(map[string]int)}}
	if !identPattern.MatchString(entity) {
		b.errs = append(b.errs, fmt.Sprintf("invalid entity name %q", entity))
	}
	return b
}

// Label sets the display label of the entity
func (b *SchemaBuilder) Label(label string) *SchemaBuilder {
	b.schema.Label = label
	return b
}

func (b *SchemaBuilder) add(name string, kind FieldKind, opts []FieldOption) *Field {
	f := Field{Name: name, Kind: kind, Label: name}
	for _, opt := range opts {
		opt(&f)
	}

	switch {
	case !identPattern.MatchString(name):
		b.errs = append(b.errs, fmt.Sprintf("invalid field name %q", name))
	case reserved[name]:
		b.errs = append(b.errs, fmt.Sprintf("field name %q is reserved", name))
	default:
		if _, dup := b.schema.index[name]; dup {
			b.errs = append(b.errs, fmt.Sprintf("duplicate field %q", name))
		}
	}

	b.schema.index[name] = len(b.schema.Fields)
	b.schema.Fields = append(b.schema.Fields, f)
	return &b.schema.Fields[len(b.schema.Fields)-1]
}

// String adds a single-line text field
func (b *SchemaBuilder) String(name string, opts ...FieldOption) *SchemaBuilder {
	b.add(name, KindString, opts)
	return b
}

// Text adds a multi-line text field
func (b *SchemaBuilder) Text(name string, opts ...FieldOption) *SchemaBuilder {
	b.add(name, KindText, opts)
	return b
}

// Number adds a numeric field
func (b *SchemaBuilder) Number(name string, opts ...FieldOption) *SchemaBuilder {
	b.add(name, KindNumber, opts)
	return b
}

// Bool adds a switch field
func (b *SchemaBuilder) Bool(name string, opts ...FieldOption) *SchemaBuilder {
	b.add(name, KindBool, opts)
	return b
}

// Tags adds an ordered string list edited as chips
func (b *SchemaBuilder) Tags(name string, opts ...FieldOption) *SchemaBuilder {
	b.add(name, KindTags, opts)
	return b
}

// Attachment adds an image URL field with upload constraints
func (b *SchemaBuilder) Attachment(name string, c media.Constraints, opts ...FieldOption) *SchemaBuilder {
	f := b.add(name, KindAttachment, opts)
	if c.Bucket == "" {
		b.errs = append(b.errs, fmt.Sprintf("attachment %q has no bucket", name))
	}
	f.Attachment = &c
	return b
}

// Build validates and returns the schema
func (b *SchemaBuilder) Build() (*Schema, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("schema %s: %s", b.schema.Entity, strings.Join(b.errs, "; "))
	}
	s := b.schema
	return &s, nil
}

// MustBuild is like Build but panics on error; intended for package-level schemas
func (b *SchemaBuilder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Field returns the named field
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// FieldsOfKind returns the fields with the given kind in declaration order
func (s *Schema) FieldsOfKind(kind FieldKind) []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Coerce converts a decoded JSON value (or a Go value) to the field's type
func (f Field) Coerce(value any) (any, error) {
	if value == nil {
		return f.Zero(), nil
	}

	switch f.Kind {
	case KindString, KindText, KindAttachment:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string")
		}
		return strings.TrimSpace(s), nil

	case KindNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case json.Number:
			return v.Float64()
		case string:
			if strings.TrimSpace(v) == "" {
				return float64(0), nil
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number")
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected number")

	case KindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expected boolean")
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected boolean")

	case KindTags:
		var items []string
		switch v := value.(type) {
		case []string:
			items = v
		case []any:
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected list of strings")
				}
				items = append(items, s)
			}
		default:
			return nil, fmt.Errorf("expected list of strings")
		}
		return NewChipSet(items...).Values(), nil
	}

	return nil, fmt.Errorf("unsupported field kind %s", f.Kind)
}

// Zero returns the empty value of the field's type
func (f Field) Zero() any {
	switch f.Kind {
	case KindNumber:
		return float64(0)
	case KindBool:
		return false
	case KindTags:
		return []string{}
	default:
		return ""
	}
}

// validate checks a coerced value against the field rules
func (f Field) validate(value any, verr *ValidationError) {
	switch f.Kind {
	case KindString, KindText, KindAttachment:
		s, _ := value.(string)
		if f.Required && s == "" {
			verr.add(f.Name, "is required")
			return
		}
		if f.MaxLen > 0 && len([]rune(s)) > f.MaxLen {
			verr.add(f.Name, fmt.Sprintf("must be at most %d characters", f.MaxLen))
		}
		if len(f.OneOf) > 0 && s != "" && !contains(f.OneOf, s) {
			verr.add(f.Name, fmt.Sprintf("must be one of %s", strings.Join(f.OneOf, ", ")))
		}

	case KindNumber:
		n, _ := value.(float64)
		if math.IsNaN(n) || math.IsInf(n, 0) {
			verr.add(f.Name, "must be a finite number")
			return
		}
		if f.Min != nil && n < *f.Min {
			verr.add(f.Name, fmt.Sprintf("must be at least %v", *f.Min))
		}

	case KindTags:
		tags, _ := value.([]string)
		if f.Required && len(tags) == 0 {
			verr.add(f.Name, "needs at least one entry")
		}
	}
}

// FilterValue parses a query-string filter value for the field
func (f Field) FilterValue(raw string) (any, error) {
	switch f.Kind {
	case KindTags:
		return strings.TrimSpace(raw), nil
	default:
		return f.Coerce(raw)
	}
}

func contains(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
