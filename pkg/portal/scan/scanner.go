package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/venue-admin/pkg/portal"
)

const defaultBatchSize = 100

// Scanner walks every record of a tenant in batches and hands each to a processor.
type Scanner struct {
	repo    portal.Repository
	schemas []*portal.Schema
	logger  *slog.Logger
}

// New creates a Scanner over the given schemas.
func New(repo portal.Repository, schemas ...*portal.Schema) *Scanner {
	return &Scanner{repo: repo, schemas: schemas, logger: slog.Default()}
}

// Options configures the scan operation.
type Options struct {
	// TenantID limits the scan to one tenant (required)
	TenantID string

	// Entities restricts the scan; empty means every schema
	Entities []string

	// Processor defines the processing logic (required unless DryRun is true)
	Processor RecordProcessor

	// BatchSize controls how many records to query at once (default: 100)
	BatchSize int

	// DryRun counts records without processing them
	DryRun bool

	// OnProgress is called after each batch is processed (optional)
	OnProgress func(entity string, processed, total int)
}

// Result contains statistics about the scan operation.
type Result struct {
	TotalFound     int
	TotalProcessed int
	TotalFailed    int

	// FailedIDs holds "<entity>/<id>" of records that failed processing
	FailedIDs []string
}

// Scan lists records oldest first and processes each one. A record that fails
// processing is recorded and the scan continues.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	if opts.TenantID == "" {
		return result, fmt.Errorf("tenant ID is required")
	}
	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	schemas, err := s.selectSchemas(opts.Entities)
	if err != nil {
		return result, err
	}

	for _, schema := range schemas {
		if err := s.scanEntity(ctx, schema, opts, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Scanner) scanEntity(ctx context.Context, schema *portal.Schema, opts Options, result *Result) error {
	offset := 0
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.repo.List(ctx, schema, opts.TenantID, portal.ListQuery{
			Limit:   opts.BatchSize,
			Offset:  offset,
			OrderBy: portal.FieldCreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", schema.Entity, err)
		}
		if len(page.Items) == 0 {
			return nil
		}

		result.TotalFound += len(page.Items)
		for _, rec := range page.Items {
			processed++
			if opts.DryRun {
				result.TotalProcessed++
				continue
			}
			if err := opts.Processor.Process(ctx, schema, rec); err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, schema.Entity+"/"+rec.ID())
				s.logger.Warn("Failed to process record", "entity", schema.Entity, "id", rec.ID(), "error", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(schema.Entity, processed, page.Total)
		}

		offset += len(page.Items)
		if offset >= page.Total {
			return nil
		}
	}
}

func (s *Scanner) selectSchemas(entities []string) ([]*portal.Schema, error) {
	if len(entities) == 0 {
		return s.schemas, nil
	}
	var out []*portal.Schema
	for _, name := range entities {
		found := false
		for _, schema := range s.schemas {
			if schema.Entity == name {
				out = append(out, schema)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", portal.ErrUnknownEntity, name)
		}
	}
	return out, nil
}

// ForEach processes every record of the tenant with fn.
func (s *Scanner) ForEach(ctx context.Context, tenantID string, fn ProcessorFunc) (*Result, error) {
	return s.Scan(ctx, Options{TenantID: tenantID, Processor: fn})
}
