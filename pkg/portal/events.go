package portal

import (
	"context"
	"log/slog"
)

// EventSink receives record lifecycle events after they are persisted
type EventSink interface {
	RecordCreated(ctx context.Context, entity string, r Record) error
	RecordUpdated(ctx context.Context, entity string, r Record) error
	RecordDeleted(ctx context.Context, entity, tenantID, id string) error
}

// NoopEventSink ignores all events
type NoopEventSink struct{}

func (NoopEventSink) RecordCreated(context.Context, string, Record) error { return nil }

func (NoopEventSink) RecordUpdated(context.Context, string, Record) error { return nil }

func (NoopEventSink) RecordDeleted(context.Context, string, string, string) error { return nil }

// LoggingEventSink writes an audit line per event
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a sink logging at info level
func NewLoggingEventSink(logger *slog.Logger) *LoggingEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) RecordCreated(ctx context.Context, entity string, r Record) error {
	l.logger.InfoContext(ctx, "Record created", "entity", entity, "id", r.ID(), "tenant_id", r.TenantID())
	return nil
}

func (l *LoggingEventSink) RecordUpdated(ctx context.Context, entity string, r Record) error {
	l.logger.InfoContext(ctx, "Record updated", "entity", entity, "id", r.ID(), "tenant_id", r.TenantID())
	return nil
}

func (l *LoggingEventSink) RecordDeleted(ctx context.Context, entity, tenantID, id string) error {
	l.logger.InfoContext(ctx, "Record deleted", "entity", entity, "id", id, "tenant_id", tenantID)
	return nil
}
