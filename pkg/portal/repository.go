package portal

import "context"

// Repository persists records of any schema. Every call is scoped to a tenant;
// records of other tenants behave as if they do not exist.
type Repository interface {
	// Insert stores a new record. ID and timestamps are assigned by the
	// repository and returned in the stored record.
	Insert(ctx context.Context, s *Schema, tenantID string, values Record) (Record, error)

	// Update replaces the given schema fields and bumps updated_at.
	// Returns ErrNotFound when the record does not exist.
	Update(ctx context.Context, s *Schema, tenantID, id string, values Record) (Record, error)

	// Get returns ErrNotFound when the record does not exist
	Get(ctx context.Context, s *Schema, tenantID, id string) (Record, error)

	// Delete returns ErrNotFound when the record does not exist
	Delete(ctx context.Context, s *Schema, tenantID, id string) error

	// List returns one page of matching records and the total match count
	List(ctx context.Context, s *Schema, tenantID string, q ListQuery) (Page, error)
}
