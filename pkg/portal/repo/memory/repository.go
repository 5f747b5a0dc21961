package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/venue-admin/pkg/portal"
)

type row struct {
	seq    uint64
	record portal.Record
}

// Repository implements portal.Repository using in-memory storage
type Repository struct {
	mu     sync.RWMutex
	tables map[string]map[string]*row // entity -> id -> row
	seq    uint64
	now    func() time.Time
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		tables: make(map[string]map[string]*row),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *Repository) table(entity string) map[string]*row {
	t, ok := r.tables[entity]
	if !ok {
		t = make(map[string]*row)
		r.tables[entity] = t
	}
	return t
}

// lookup returns the row only when it belongs to tenantID
func (r *Repository) lookup(entity, tenantID, id string) (*row, bool) {
	t, ok := r.tables[entity]
	if !ok {
		return nil, false
	}
	rw, ok := t[id]
	if !ok || rw.record.TenantID() != tenantID {
		return nil, false
	}
	return rw, true
}

func (r *Repository) Insert(ctx context.Context, s *portal.Schema, tenantID string, values portal.Record) (portal.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec := fieldValues(s, values)
	rec[portal.FieldID] = uuid.NewString()
	rec[portal.FieldTenantID] = tenantID
	rec[portal.FieldCreatedAt] = now
	rec[portal.FieldUpdatedAt] = now

	r.seq++
	r.table(s.Entity)[rec.ID()] = &row{seq: r.seq, record: rec}
	return rec.Clone(), nil
}

func (r *Repository) Update(ctx context.Context, s *portal.Schema, tenantID, id string, values portal.Record) (portal.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rw, ok := r.lookup(s.Entity, tenantID, id)
	if !ok {
		return nil, portal.ErrNotFound
	}

	rec := rw.record.Clone()
	for name, v := range fieldValues(s, values) {
		rec[name] = v
	}
	rec[portal.FieldUpdatedAt] = r.now()
	rw.record = rec
	return rec.Clone(), nil
}

func (r *Repository) Get(ctx context.Context, s *portal.Schema, tenantID, id string) (portal.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rw, ok := r.lookup(s.Entity, tenantID, id)
	if !ok {
		return nil, portal.ErrNotFound
	}
	return rw.record.Clone(), nil
}

func (r *Repository) Delete(ctx context.Context, s *portal.Schema, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(s.Entity, tenantID, id); !ok {
		return portal.ErrNotFound
	}
	delete(r.tables[s.Entity], id)
	return nil
}

func (r *Repository) List(ctx context.Context, s *portal.Schema, tenantID string, q portal.ListQuery) (portal.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*row
	for _, rw := range r.tables[s.Entity] {
		if rw.record.TenantID() != tenantID {
			continue
		}
		if !matchesSearch(rw.record, q) || !matchesConditions(rw.record, q.Conditions) {
			continue
		}
		matches = append(matches, rw)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		c := compare(matches[i].record[q.OrderBy], matches[j].record[q.OrderBy])
		if c == 0 {
			c = compareSeq(matches[i].seq, matches[j].seq)
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	page := portal.Page{Items: []portal.Record{}, Total: len(matches), Limit: q.Limit, Offset: q.Offset}
	if q.Offset >= len(matches) {
		return page, nil
	}
	end := q.Offset + q.Limit
	if end > len(matches) {
		end = len(matches)
	}
	for _, rw := range matches[q.Offset:end] {
		page.Items = append(page.Items, rw.record.Clone())
	}
	return page, nil
}

// Len returns the number of stored records of entity across all tenants
func (r *Repository) Len(entity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables[entity])
}

// fieldValues keeps only schema fields so system columns cannot be overwritten
func fieldValues(s *portal.Schema, values portal.Record) portal.Record {
	out := make(portal.Record, len(s.Fields)+4)
	for _, f := range s.Fields {
		if v, ok := values[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out.Clone()
}

// matchesSearch mirrors ILIKE '%term%' over the searchable fields
func matchesSearch(rec portal.Record, q portal.ListQuery) bool {
	if q.Search == "" {
		return true
	}
	term := strings.ToLower(q.Search)
	for _, name := range q.SearchFields {
		if strings.Contains(strings.ToLower(rec.String(name)), term) {
			return true
		}
	}
	return false
}

func matchesConditions(rec portal.Record, conds []portal.Condition) bool {
	for _, c := range conds {
		if c.Kind == portal.KindTags {
			want, _ := c.Value.(string)
			found := false
			for _, tag := range rec.Tags(c.Field) {
				if tag == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if compare(rec[c.Field], c.Value) != 0 {
			return false
		}
	}
	return true
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case nil:
		if b == nil {
			return 0
		}
		return -1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
