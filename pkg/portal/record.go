package portal

import (
	"time"
)

// System columns maintained by the repository
const (
	FieldID        = "id"
	FieldTenantID  = "tenant_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Record is one row of an entity: schema fields plus system columns
type Record map[string]any

// ID returns the record id
func (r Record) ID() string {
	return r.String(FieldID)
}

// TenantID returns the owning tenant
func (r Record) TenantID() string {
	return r.String(FieldTenantID)
}

// String returns a string value, "" when missing
func (r Record) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// Number returns a numeric value, 0 when missing
func (r Record) Number(name string) float64 {
	switch v := r[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns a boolean value, false when missing
func (r Record) Bool(name string) bool {
	b, _ := r[name].(bool)
	return b
}

// Tags returns a string list value
func (r Record) Tags(name string) []string {
	switch v := r[name].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Time returns a timestamp value
func (r Record) Time(name string) time.Time {
	t, _ := r[name].(time.Time)
	return t
}

// Clone returns a copy safe to modify. Tag slices are copied.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if tags, ok := v.([]string); ok {
			cp := make([]string, len(tags))
			copy(cp, tags)
			v = cp
		}
		out[k] = v
	}
	return out
}

// Coerce converts raw input (typically decoded JSON) into a Record containing
// only schema fields. System columns in the input are ignored. When partial is
// false, missing fields are set to their zero value.
func (s *Schema) Coerce(raw map[string]any, partial bool) (Record, error) {
	verr := &ValidationError{Entity: s.Entity}
	out := make(Record, len(s.Fields))

	for name, value := range raw {
		if reserved[name] {
			continue
		}
		f, ok := s.Field(name)
		if !ok {
			verr.add(name, ErrUnknownField.Error())
			continue
		}
		v, err := f.Coerce(value)
		if err != nil {
			verr.add(name, err.Error())
			continue
		}
		out[name] = v
	}

	if !partial {
		for _, f := range s.Fields {
			if _, ok := out[f.Name]; !ok {
				out[f.Name] = f.Zero()
			}
		}
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks every schema field of r against its rules
func (s *Schema) Validate(r Record) error {
	verr := &ValidationError{Entity: s.Entity}
	for _, f := range s.Fields {
		v, ok := r[f.Name]
		if !ok {
			v = f.Zero()
		}
		f.validate(v, verr)
	}
	return verr.orNil()
}
