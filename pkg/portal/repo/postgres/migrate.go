package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/tendant/venue-admin/pkg/portal"
)

func columnType(f portal.Field) string {
	switch f.Kind {
	case portal.KindNumber:
		return "DOUBLE PRECISION NOT NULL DEFAULT 0"
	case portal.KindBool:
		return "BOOLEAN NOT NULL DEFAULT FALSE"
	case portal.KindTags:
		return "TEXT[] NOT NULL DEFAULT '{}'"
	case portal.KindAttachment:
		return "TEXT"
	default:
		return "TEXT NOT NULL DEFAULT ''"
	}
}

// CreateTableSQL returns the statements creating the table of s and its
// indexes. Existing tables gain missing columns; nothing is dropped.
func (r *Repository) CreateTableSQL(s *portal.Schema) []string {
	table := r.table(s)

	cols := []string{
		"id TEXT PRIMARY KEY",
		"tenant_id TEXT NOT NULL",
		"created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		"updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
	}
	for _, f := range s.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", pgx.Identifier{f.Name}.Sanitize(), columnType(f)))
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t")),
	}
	for _, f := range s.Fields {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			table, pgx.Identifier{f.Name}.Sanitize(), columnType(f)))
	}
	stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (tenant_id, created_at DESC)",
		pgx.Identifier{"idx_" + s.Entity + "_tenant_created"}.Sanitize(), table))
	return stmts
}

// Migrate creates or extends the tables of the given schemas
func (r *Repository) Migrate(ctx context.Context, schemas ...*portal.Schema) error {
	if r.schema != "public" {
		if _, err := r.db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{r.schema}.Sanitize()); err != nil {
			return r.handlePostgresError("create schema", err)
		}
	}
	for _, s := range schemas {
		for _, stmt := range r.CreateTableSQL(s) {
			if _, err := r.db.Exec(ctx, stmt); err != nil {
				return r.handlePostgresError("migrate "+s.Entity, err)
			}
		}
	}
	return nil
}
