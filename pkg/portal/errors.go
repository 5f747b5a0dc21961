package portal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates a record does not exist for the tenant
	ErrNotFound = errors.New("record not found")

	// ErrUnknownEntity indicates no schema is registered under the name
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownField indicates the schema has no such field
	ErrUnknownField = errors.New("unknown field")

	// ErrFieldKind indicates an operation does not apply to the field's kind
	ErrFieldKind = errors.New("operation not supported for field kind")

	// ErrUploadInProgress indicates a form was saved while an attachment was still uploading
	ErrUploadInProgress = errors.New("attachment upload in progress")
)

// ValidationError collects per-field validation messages
type ValidationError struct {
	Entity string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
