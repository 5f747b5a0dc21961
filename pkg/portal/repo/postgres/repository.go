package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/venue-admin/pkg/portal"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements portal.Repository using PostgreSQL. Each entity is
// stored in its own table named after the entity.
type Repository struct {
	db     DBTX
	schema string
	now    func() time.Time
}

// Option configures the repository
type Option func(*Repository)

// WithSchemaName places entity tables in a PostgreSQL schema other than public
func WithSchemaName(name string) Option {
	return func(r *Repository) {
		if name != "" {
			r.schema = name
		}
	}
}

// New creates a new PostgreSQL repository
func New(db DBTX, opts ...Option) *Repository {
	r := &Repository{
		db:     db,
		schema: "public",
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool, opts ...Option) *Repository {
	return New(pool, opts...)
}

func (r *Repository) table(s *portal.Schema) string {
	return pgx.Identifier{r.schema, s.Entity}.Sanitize()
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return portal.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		case "42703": // undefined_column
			return fmt.Errorf("column %s does not exist - database migration required", pgErr.ColumnName)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) Insert(ctx context.Context, s *portal.Schema, tenantID string, values portal.Record) (portal.Record, error) {
	now := r.now()
	cols := []string{portal.FieldID, portal.FieldTenantID, portal.FieldCreatedAt, portal.FieldUpdatedAt}
	args := []any{uuid.NewString(), tenantID, now, now}
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			v = f.Zero()
		}
		cols = append(cols, f.Name)
		args = append(args, toColumn(f, v))
	}

	rows, err := r.db.Query(ctx, insertSQL(r.table(s), cols), args...)
	if err != nil {
		return nil, r.handlePostgresError("insert "+s.Entity, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, r.handlePostgresError("insert "+s.Entity, err)
	}
	return fromRow(s, m), nil
}

func (r *Repository) Update(ctx context.Context, s *portal.Schema, tenantID, id string, values portal.Record) (portal.Record, error) {
	var cols []string
	var args []any
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.Name)
		args = append(args, toColumn(f, v))
	}
	args = append(args, r.now(), tenantID, id)

	rows, err := r.db.Query(ctx, updateSQL(r.table(s), cols), args...)
	if err != nil {
		return nil, r.handlePostgresError("update "+s.Entity, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, r.handlePostgresError("update "+s.Entity, err)
	}
	return fromRow(s, m), nil
}

func (r *Repository) Get(ctx context.Context, s *portal.Schema, tenantID, id string) (portal.Record, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE tenant_id = $1 AND id = $2`, r.table(s))

	rows, err := r.db.Query(ctx, query, tenantID, id)
	if err != nil {
		return nil, r.handlePostgresError("get "+s.Entity, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, r.handlePostgresError("get "+s.Entity, err)
	}
	return fromRow(s, m), nil
}

func (r *Repository) Delete(ctx context.Context, s *portal.Schema, tenantID, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND id = $2`, r.table(s))

	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return r.handlePostgresError("delete "+s.Entity, err)
	}
	if tag.RowsAffected() == 0 {
		return portal.ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, s *portal.Schema, tenantID string, q portal.ListQuery) (portal.Page, error) {
	stmt := buildList(r.table(s), tenantID, q)

	var total int
	if err := r.db.QueryRow(ctx, stmt.count, stmt.args...).Scan(&total); err != nil {
		return portal.Page{}, r.handlePostgresError("count "+s.Entity, err)
	}

	rows, err := r.db.Query(ctx, stmt.query, append(stmt.args, q.Limit, q.Offset)...)
	if err != nil {
		return portal.Page{}, r.handlePostgresError("list "+s.Entity, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return portal.Page{}, r.handlePostgresError("list "+s.Entity, err)
	}

	page := portal.Page{Items: make([]portal.Record, 0, len(maps)), Total: total, Limit: q.Limit, Offset: q.Offset}
	for _, m := range maps {
		page.Items = append(page.Items, fromRow(s, m))
	}
	return page, nil
}

// toColumn converts a record value to its column representation. Empty
// attachments are stored as NULL.
func toColumn(f portal.Field, v any) any {
	switch f.Kind {
	case portal.KindAttachment:
		if s, _ := v.(string); s == "" {
			return nil
		}
	case portal.KindTags:
		if v == nil {
			return []string{}
		}
	}
	return v
}

// fromRow converts a scanned row to a record with schema-typed values
func fromRow(s *portal.Schema, m map[string]any) portal.Record {
	rec := portal.Record(m)
	for _, f := range s.Fields {
		v, err := f.Coerce(m[f.Name])
		if err != nil {
			v = f.Zero()
		}
		rec[f.Name] = v
	}
	if t, ok := m[portal.FieldCreatedAt].(time.Time); ok {
		rec[portal.FieldCreatedAt] = t.UTC()
	}
	if t, ok := m[portal.FieldUpdatedAt].(time.Time); ok {
		rec[portal.FieldUpdatedAt] = t.UTC()
	}
	return rec
}

func insertSQL(table string, cols []string) string {
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		names[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING *`,
		table, strings.Join(names, ", "), strings.Join(params, ", "))
}

// updateSQL expects args: column values, updated_at, tenant_id, id
func updateSQL(table string, cols []string) string {
	sets := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1))
	}
	n := len(cols)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", n+1))
	return fmt.Sprintf(`UPDATE %s SET %s WHERE tenant_id = $%d AND id = $%d RETURNING *`,
		table, strings.Join(sets, ", "), n+2, n+3)
}

type listStatement struct {
	query string
	count string
	args  []any
}

// buildList expects limit and offset to be appended to args for the page query
func buildList(table, tenantID string, q portal.ListQuery) listStatement {
	args := []any{tenantID}
	where := []string{"tenant_id = $1"}

	if q.Search != "" && len(q.SearchFields) > 0 {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := len(args)
		ors := make([]string, len(q.SearchFields))
		for i, name := range q.SearchFields {
			ors[i] = fmt.Sprintf("%s ILIKE $%d", pgx.Identifier{name}.Sanitize(), n)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	for _, c := range q.Conditions {
		args = append(args, c.Value)
		col := pgx.Identifier{c.Field}.Sanitize()
		if c.Kind == portal.KindTags {
			where = append(where, fmt.Sprintf("$%d = ANY(%s)", len(args), col))
		} else {
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = portal.FieldCreatedAt
	}

	cond := strings.Join(where, " AND ")
	return listStatement{
		query: fmt.Sprintf(`SELECT * FROM %s WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
			table, cond, pgx.Identifier{orderBy}.Sanitize(), dir, dir, len(args)+1, len(args)+2),
		count: fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`, table, cond),
		args:  args,
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
