package scan

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/venue-admin/pkg/media/publicurl"
	"github.com/tendant/venue-admin/pkg/portal"
)

// RecordProcessor processes individual records.
// Return an error to mark the record as failed; the scan continues.
type RecordProcessor interface {
	Process(ctx context.Context, schema *portal.Schema, rec portal.Record) error
}

// ProcessorFunc adapts a function to RecordProcessor
type ProcessorFunc func(ctx context.Context, schema *portal.Schema, rec portal.Record) error

func (f ProcessorFunc) Process(ctx context.Context, schema *portal.Schema, rec portal.Record) error {
	return f(ctx, schema, rec)
}

// ChainProcessor calls each processor in sequence and stops at the first error.
type ChainProcessor []RecordProcessor

func (c ChainProcessor) Process(ctx context.Context, schema *portal.Schema, rec portal.Record) error {
	for _, p := range c {
		if err := p.Process(ctx, schema, rec); err != nil {
			return err
		}
	}
	return nil
}

// Attachment is one non-empty attachment field value
type Attachment struct {
	Entity   string `json:"entity"`
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	URL      string `json:"url"`
	Bucket   string `json:"bucket,omitempty"`
	Path     string `json:"path,omitempty"`
	Managed  bool   `json:"managed"`
}

// AttachmentAudit collects attachment references. A URL is managed when the
// strategy resolves it to a stored object; anything else was pasted from
// elsewhere and is never cleaned up.
type AttachmentAudit struct {
	urls publicurl.Strategy

	mu          sync.Mutex
	attachments []Attachment
	empty       int
}

// NewAttachmentAudit creates an audit resolving URLs with urls
func NewAttachmentAudit(urls publicurl.Strategy) *AttachmentAudit {
	return &AttachmentAudit{urls: urls}
}

func (a *AttachmentAudit) Process(ctx context.Context, schema *portal.Schema, rec portal.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, f := range schema.FieldsOfKind(portal.KindAttachment) {
		url := rec.String(f.Name)
		if url == "" {
			a.empty++
			continue
		}
		att := Attachment{Entity: schema.Entity, RecordID: rec.ID(), Field: f.Name, URL: url}
		if bucket, path, err := a.urls.Parse(url); err == nil {
			att.Bucket, att.Path, att.Managed = bucket, path, true
		}
		a.attachments = append(a.attachments, att)
	}
	return nil
}

// Attachments returns the collected references ordered by entity, record and field
func (a *AttachmentAudit) Attachments() []Attachment {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := append([]Attachment(nil), a.attachments...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		if out[i].RecordID != out[j].RecordID {
			return out[i].RecordID < out[j].RecordID
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Summary counts managed, external and empty attachment fields
type Summary struct {
	Managed  int            `json:"managed"`
	External int            `json:"external"`
	Empty    int            `json:"empty"`
	ByBucket map[string]int `json:"by_bucket"`
}

// Summary aggregates what has been processed so far
func (a *AttachmentAudit) Summary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{Empty: a.empty, ByBucket: make(map[string]int)}
	for _, att := range a.attachments {
		if !att.Managed {
			s.External++
			continue
		}
		s.Managed++
		s.ByBucket[att.Bucket]++
	}
	return s
}
