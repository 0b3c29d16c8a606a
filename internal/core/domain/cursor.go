package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Fragment is the source-scoped part of a query carried by a ResumeCursor.
// Its bounds replace the corresponding bounds of the routed query.
type Fragment struct {
	After  *time.Time `json:"after,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// Apply overlays the fragment onto q.
func (f Fragment) Apply(q Query) Query {
	out := q.Clone()
	if f.After != nil {
		out.After = cloneTime(f.After)
	}
	if f.Before != nil {
		out.Before = cloneTime(f.Before)
	}
	return out
}

// ResumeCursor maps a source key to the fragment continuing that source.
// A nil cursor means a first page; a non-nil empty cursor means every source
// is exhausted.
type ResumeCursor map[string]Fragment

// Keys returns the source keys in lexical order.
func (c ResumeCursor) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Exhausted reports whether the cursor leaves nothing to fetch.
func (c ResumeCursor) Exhausted() bool {
	return c != nil && len(c) == 0
}

// Encode serialises the cursor as base64url JSON.
// A nil cursor encodes to the empty string.
func (c ResumeCursor) Encode() (string, error) {
	if c == nil {
		return "", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeResumeCursor parses a cursor produced by Encode.
// The empty string decodes to a nil cursor.
func DecodeResumeCursor(s string) (ResumeCursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c ResumeCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c == nil {
		c = ResumeCursor{}
	}
	return c, nil
}
