package portal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is the list request as received from a client
type Query struct {
	Search  string            `json:"q,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Offset  int               `json:"offset,omitempty"`
	OrderBy string            `json:"order_by,omitempty"`
	Desc    bool              `json:"desc,omitempty"`
}

// Condition is an equality filter on one field. For tag fields it matches
// records whose list contains Value.
type Condition struct {
	Field string
	Kind  FieldKind
	Value any
}

// ListQuery is a Query checked against a schema, ready for a repository
type ListQuery struct {
	Search       string
	SearchFields []string
	Conditions   []Condition
	Limit        int
	Offset       int
	OrderBy      string
	Desc         bool
}

// Page is one page of list results
type Page struct {
	Items  []Record `json:"items"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// Normalize resolves q against s: limits are clamped, filters are parsed to
// the field type and ordering defaults to newest first. A leading "-" on
// OrderBy sorts descending.
func (q Query) Normalize(s *Schema) (ListQuery, error) {
	lq := ListQuery{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
		Offset: q.Offset,
		Desc:   q.Desc,
	}

	switch {
	case lq.Limit <= 0:
		lq.Limit = DefaultLimit
	case lq.Limit > MaxLimit:
		lq.Limit = MaxLimit
	}
	if lq.Offset < 0 {
		lq.Offset = 0
	}

	for _, f := range s.Fields {
		if f.Searchable {
			lq.SearchFields = append(lq.SearchFields, f.Name)
		}
	}

	verr := &ValidationError{Entity: s.Entity}
	names := make([]string, 0, len(q.Filters))
	for name := range q.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, ok := s.Field(name)
		if !ok || !f.Filterable {
			verr.add(name, "is not filterable")
			continue
		}
		v, err := f.FilterValue(q.Filters[name])
		if err != nil {
			verr.add(name, err.Error())
			continue
		}
		lq.Conditions = append(lq.Conditions, Condition{Field: name, Kind: f.Kind, Value: v})
	}

	orderBy := strings.TrimSpace(q.OrderBy)
	if rest, ok := strings.CutPrefix(orderBy, "-"); ok {
		orderBy = rest
		lq.Desc = true
	}
	switch orderBy {
	case "":
		if q.OrderBy != "" {
			verr.add("order_by", fmt.Sprintf("cannot order by %q", q.OrderBy))
		}
		lq.OrderBy = FieldCreatedAt
		lq.Desc = true
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		lq.OrderBy = orderBy
	default:
		f, ok := s.Field(orderBy)
		if !ok || f.Kind == KindTags {
			verr.add("order_by", fmt.Sprintf("cannot order by %q", q.OrderBy))
		}
		lq.OrderBy = orderBy
	}

	if err := verr.orNil(); err != nil {
		return ListQuery{}, err
	}
	return lq, nil
}

// Key returns a stable representation used as a cache key
func (lq ListQuery) Key() string {
	var b strings.Builder
	b.WriteString("q=")
	b.WriteString(strconv.Quote(lq.Search))
	for _, c := range lq.Conditions {
		fmt.Fprintf(&b, "&%s=%v", c.Field, c.Value)
	}
	fmt.Fprintf(&b, "&limit=%d&offset=%d&order=%s&desc=%t", lq.Limit, lq.Offset, lq.OrderBy, lq.Desc)
	return b.String()
}
