package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// Raw filter keys that are not item fields.
const (
	keyLimit   = "limit"
	keyOrderBy = "orderBy"
	keySort    = "sort"
	keyAfter   = "after"
	keyBefore  = "before"
)

// NormalizeQuery canonicalises a raw filter into a validated Query.
//
// Scalars become Eq selectors and arrays become In selectors; selector-shaped
// values pass through unchanged. A missing or zero limit defaults to
// domain.DefaultLimit and a missing sort to creation time DESC. An empty
// orderBy object requests no sort field.
func NormalizeQuery(raw domain.RawFilter) (domain.Query, error) {
	q := domain.Query{
		Limit: domain.DefaultLimit,
		Sort:  domain.DefaultSort(),
	}
	sortSeen := false

	for key, value := range raw {
		switch key {
		case keyLimit:
			limit, err := normalizeLimit(value)
			if err != nil {
				return domain.Query{}, err
			}
			q.Limit = limit

		case keyOrderBy, keySort:
			if sortSeen {
				return domain.Query{}, domain.NewValidationError(key, "sort given twice")
			}
			sortSeen = true
			s, err := normalizeSort(key, value)
			if err != nil {
				return domain.Query{}, err
			}
			q.Sort = s

		case keyAfter, keyBefore:
			ts, err := normalizeTime(key, value)
			if err != nil {
				return domain.Query{}, err
			}
			if key == keyAfter {
				q.After = ts
			} else {
				q.Before = ts
			}

		default:
			field, ok := domain.CanonicalField(key)
			if !ok {
				return domain.Query{}, domain.NewValidationError(key, "unknown filter field")
			}
			sel, present, err := normalizeSelector(field, value)
			if err != nil {
				return domain.Query{}, err
			}
			if !present {
				continue
			}
			if _, dup := q.Filters[field]; dup {
				return domain.Query{}, domain.NewValidationError(key, "field given twice")
			}
			if q.Filters == nil {
				q.Filters = make(map[domain.Field]domain.Selector)
			}
			q.Filters[field] = sel
		}
	}

	if err := q.Validate(); err != nil {
		return domain.Query{}, err
	}
	return q, nil
}

// applyDefaults fills the zero limit and sort of a structured query.
func applyDefaults(q domain.Query) domain.Query {
	out := q.Clone()
	if out.Limit == 0 {
		out.Limit = domain.DefaultLimit
	}
	if out.Sort == (domain.Sort{}) {
		out.Sort = domain.DefaultSort()
	}
	return out
}

func normalizeSelector(field domain.Field, value any) (domain.Selector, bool, error) {
	switch v := value.(type) {
	case nil:
		return domain.Selector{}, false, nil
	case string:
		if v == "" {
			return domain.Selector{}, false, nil
		}
		return domain.Eq(v), true, nil
	case domain.Selector:
		return v.Clone(), true, nil
	case *domain.Selector:
		if v == nil {
			return domain.Selector{}, false, nil
		}
		return v.Clone(), true, nil
	case []string:
		return domain.In(v...), true, nil
	case []any:
		vs, err := stringValues(field, v)
		if err != nil {
			return domain.Selector{}, false, err
		}
		return domain.In(vs...), true, nil
	case map[string]any:
		sel, err := selectorFromMap(field, v)
		return sel, true, err
	}

	s, err := scalarString(field, value)
	if err != nil {
		return domain.Selector{}, false, err
	}
	return domain.Eq(s), true, nil
}

// selectorFromMap reads the wire shape {"$eq": v} / {"$in": [...]}.
// Several operator keys yield a selector that fails validation.
func selectorFromMap(field domain.Field, m map[string]any) (domain.Selector, error) {
	var sel domain.Selector
	for op, v := range m {
		switch domain.Operator(op) {
		case domain.OpEq, domain.OpNotEq:
			s, err := scalarString(field, v)
			if err != nil {
				return domain.Selector{}, err
			}
			if domain.Operator(op) == domain.OpEq {
				sel.Eq = &s
			} else {
				sel.NotEq = &s
			}
		case domain.OpIn, domain.OpNotIn:
			var vs []string
			switch arr := v.(type) {
			case []any:
				var err error
				if vs, err = stringValues(field, arr); err != nil {
					return domain.Selector{}, err
				}
			case []string:
				vs = arr
			default:
				return domain.Selector{}, domain.NewValidationError(string(field), "%s must be an array", op)
			}
			if vs == nil {
				vs = []string{}
			}
			if domain.Operator(op) == domain.OpIn {
				sel.In = vs
			} else {
				sel.NotIn = vs
			}
		default:
			return domain.Selector{}, domain.NewValidationError(string(field), "unknown selector operator %q", op)
		}
	}
	return sel, sel.Validate(field)
}

func stringValues(field domain.Field, vs []any) ([]string, error) {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		s, err := scalarString(field, v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func scalarString(field domain.Field, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10), nil
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", domain.NewValidationError(string(field), "unsupported value of type %T", v)
}

func normalizeLimit(value any) (int, error) {
	var n float64
	switch v := value.(type) {
	case nil:
		return domain.DefaultLimit, nil
	case string:
		if v == "" {
			return domain.DefaultLimit, nil
		}
		return 0, domain.NewValidationError(keyLimit, "must be an integer, got %q", v)
	case bool:
		if !v {
			return domain.DefaultLimit, nil
		}
		return 0, domain.NewValidationError(keyLimit, "must be an integer, got true")
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case float64:
		n = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, domain.NewValidationError(keyLimit, "not a number: %q", v)
		}
		n = f
	default:
		return 0, domain.NewValidationError(keyLimit, "must be an integer, got %T", value)
	}

	switch {
	case n == 0:
		return domain.DefaultLimit, nil
	case n != math.Trunc(n):
		return 0, domain.NewValidationError(keyLimit, "must be an integer, got %v", n)
	case n < 0:
		return 0, domain.NewValidationError(keyLimit, "must be positive, got %v", n)
	case n > math.MaxInt32:
		return 0, domain.NewValidationError(keyLimit, "too large: %v", n)
	}
	return int(n), nil
}

func normalizeSort(key string, value any) (domain.Sort, error) {
	switch v := value.(type) {
	case nil:
		return domain.DefaultSort(), nil
	case domain.Sort:
		return v, nil
	case string:
		dir, err := parseDirection(key, v)
		if err != nil {
			return domain.Sort{}, err
		}
		return domain.Sort{Field: domain.SortByDate, Direction: dir}, nil
	case map[string]any:
		if len(v) == 0 {
			return domain.Sort{}, nil
		}
		if len(v) > 1 {
			return domain.Sort{}, domain.NewValidationError(key, "only one sort field is supported")
		}
		for field, d := range v {
			ds, ok := d.(string)
			if !ok {
				return domain.Sort{}, domain.NewValidationError(key, "direction must be a string")
			}
			dir, err := parseDirection(key, ds)
			if err != nil {
				return domain.Sort{}, err
			}
			return domain.Sort{Field: domain.SortField(field), Direction: dir}, nil
		}
	}
	return domain.Sort{}, domain.NewValidationError(key, "unsupported value of type %T", value)
}

func parseDirection(key, s string) (domain.SortDirection, error) {
	switch domain.SortDirection(strings.ToUpper(s)) {
	case domain.Ascending:
		return domain.Ascending, nil
	case domain.Descending:
		return domain.Descending, nil
	}
	return "", domain.NewValidationError(key, "unknown sort direction %q", s)
}

func normalizeTime(key string, value any) (*time.Time, error) {
	var t time.Time
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t = *v
	case string:
		if v == "" {
			return nil, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, domain.NewValidationError(key, "want RFC3339 time, got %q", v)
		}
		t = parsed
	case float64:
		sec, frac := math.Modf(v)
		t = time.Unix(int64(sec), int64(frac*1e9))
	case int64:
		t = time.Unix(v, 0)
	case int:
		t = time.Unix(int64(v), 0)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, domain.NewValidationError(key, "want unix seconds, got %q", v)
		}
		t = time.Unix(n, 0)
	default:
		return nil, domain.NewValidationError(key, "unsupported value of type %T", value)
	}
	t = t.UTC()
	return &t, nil
}
