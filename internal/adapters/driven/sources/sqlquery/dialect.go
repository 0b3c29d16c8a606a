package sqlquery

import (
	"fmt"
	"strconv"
	"time"
)

// Dialect captures the differences between SQL backends.
type Dialect struct {
	// Name identifies the dialect in errors.
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// TimeValue encodes a bound on created_at.
	TimeValue func(t time.Time) any

	// ParseTime decodes a scanned created_at value.
	ParseTime func(v any) (time.Time, error)
}

// SQLite stores created_at as unix milliseconds.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	TimeValue:   func(t time.Time) any { return t.UnixMilli() },
	ParseTime: func(v any) (time.Time, error) {
		switch x := v.(type) {
		case int64:
			return time.UnixMilli(x).UTC(), nil
		case float64:
			return time.UnixMilli(int64(x)).UTC(), nil
		case string:
			ms, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse created_at %q: %w", x, err)
			}
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unexpected created_at type %T", v)
	},
}

// Postgres stores created_at as TIMESTAMPTZ.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	TimeValue:   func(t time.Time) any { return t.UTC() },
	ParseTime: func(v any) (time.Time, error) {
		t, ok := v.(time.Time)
		if !ok {
			return time.Time{}, fmt.Errorf("unexpected created_at type %T", v)
		}
		return t.UTC(), nil
	},
}
