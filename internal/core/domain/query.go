package domain

import (
	"cmp"
	"slices"
	"time"
)

// DefaultLimit is the page size used when a query does not set one.
const DefaultLimit = 50

// Field names a filterable item attribute.
type Field string

// Filterable fields.
const (
	// FieldID constrains the CanonicalID. FieldTID is accepted as an alias.
	FieldID       Field = "id"
	FieldTID      Field = "tid"
	FieldIssuer   Field = "issuer"
	FieldOwner    Field = "owner"
	FieldMimeType Field = "mimeType"
)

// Fields lists the canonical filterable fields in a fixed order.
var Fields = []Field{FieldID, FieldIssuer, FieldOwner, FieldMimeType}

// CanonicalField maps aliases onto their canonical field.
// The second result is false for unknown names.
func CanonicalField(name string) (Field, bool) {
	switch Field(name) {
	case FieldID, FieldTID:
		return FieldID, true
	case FieldIssuer:
		return FieldIssuer, true
	case FieldOwner:
		return FieldOwner, true
	case FieldMimeType:
		return FieldMimeType, true
	}
	return "", false
}

// SortField names the attribute a query is ordered by.
type SortField string

// SortByDate orders by item creation time.
const SortByDate SortField = "date"

// SortDirection is ASC or DESC.
type SortDirection string

// Sort directions.
const (
	Ascending  SortDirection = "ASC"
	Descending SortDirection = "DESC"
)

// Sort describes query ordering. A zero Field means no sort field; results
// are then ordered by CanonicalID only.
type Sort struct {
	Field     SortField     `json:"field,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

// DefaultSort orders by creation time, newest first.
func DefaultSort() Sort {
	return Sort{Field: SortByDate, Direction: Descending}
}

// IsSet reports whether a sort field is specified.
func (s Sort) IsSet() bool {
	return s.Field != ""
}

// Compare orders a before b under s, breaking ties by CanonicalID
// ascending. An unset sort orders by CanonicalID alone.
func (s Sort) Compare(a, b Item) int {
	if s.IsSet() {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if s.Direction == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(a.ID, b.ID)
}

// Query is the canonical form of a federated query.
// After and Before are exclusive bounds on creation time.
type Query struct {
	Filters map[Field]Selector
	After   *time.Time
	Before  *time.Time
	Sort    Sort
	Limit   int
}

// Filter returns the selector for field and whether it is set.
func (q Query) Filter(field Field) (Selector, bool) {
	s, ok := q.Filters[field]
	return s, ok
}

// WithFilter returns a copy of q with field constrained by s.
func (q Query) WithFilter(field Field, s Selector) Query {
	out := q.Clone()
	if out.Filters == nil {
		out.Filters = make(map[Field]Selector)
	}
	out.Filters[field] = s
	return out
}

// WithoutFilter returns a copy of q without a constraint on field.
func (q Query) WithoutFilter(field Field) Query {
	out := q.Clone()
	delete(out.Filters, field)
	return out
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[Field]Selector, len(q.Filters))
		for f, s := range q.Filters {
			out.Filters[f] = s.Clone()
		}
	}
	out.After = cloneTime(q.After)
	out.Before = cloneTime(q.Before)
	return out
}

// Validate checks the query invariants: a positive limit, a single variant
// per selector, well-formed identifiers and a known sort.
func (q Query) Validate() error {
	if q.Limit <= 0 {
		return NewValidationError("limit", "must be positive, got %d", q.Limit)
	}
	for _, f := range sortedFields(q.Filters) {
		if _, ok := CanonicalField(string(f)); !ok || f == FieldTID {
			return NewValidationError(string(f), "unknown filter field")
		}
		s := q.Filters[f]
		if err := s.Validate(f); err != nil {
			return err
		}
		if f == FieldID {
			for _, id := range s.Values() {
				if _, _, err := ParseCanonicalID(id); err != nil {
					return err
				}
			}
		}
	}
	if q.Sort.IsSet() {
		if q.Sort.Field != SortByDate {
			return NewValidationError("orderBy", "unknown sort field %q", q.Sort.Field)
		}
		if q.Sort.Direction != Ascending && q.Sort.Direction != Descending {
			return NewValidationError("orderBy", "unknown sort direction %q", q.Sort.Direction)
		}
	}
	if q.After != nil && q.Before != nil && !q.After.Before(*q.Before) {
		return NewValidationError("after", "must be earlier than before")
	}
	return nil
}

// Matches evaluates q's filters and temporal bounds against item.
// Limit and sort are ignored.
func (q Query) Matches(item Item) bool {
	for f, s := range q.Filters {
		switch f {
		case FieldID:
			if !s.Matches(string(item.ID)) {
				return false
			}
		case FieldIssuer:
			if !s.Matches(item.Issuer) {
				return false
			}
		case FieldOwner:
			if !s.MatchesAny(item.Owners) {
				return false
			}
		case FieldMimeType:
			if !s.Matches(item.MimeType) {
				return false
			}
		}
	}
	if q.After != nil && !item.CreatedAt.After(*q.After) {
		return false
	}
	if q.Before != nil && !item.CreatedAt.Before(*q.Before) {
		return false
	}
	return true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// sortedFields returns the keys of filters in Fields order, unknown keys last.
func sortedFields(filters map[Field]Selector) []Field {
	out := make([]Field, 0, len(filters))
	for _, f := range Fields {
		if _, ok := filters[f]; ok {
			out = append(out, f)
		}
	}
	var unknown []Field
	for f := range filters {
		if !slices.Contains(Fields, f) {
			unknown = append(unknown, f)
		}
	}
	slices.Sort(unknown)
	out = append(out, unknown...)
	return out
}
