package domain

import "slices"

// Operator names the populated variant of a Selector.
type Operator string

// Selector operators. OpNone marks a zero Selector.
const (
	OpNone  Operator = ""
	OpEq    Operator = "$eq"
	OpNotEq Operator = "$neq"
	OpIn    Operator = "$in"
	OpNotIn Operator = "$nin"
)

// Selector constrains a single query field.
// Exactly one variant must be populated; a nil slice means the set variant
// is absent, an empty non-nil slice is an empty set.
type Selector struct {
	Eq    *string  `json:"$eq,omitempty"`
	NotEq *string  `json:"$neq,omitempty"`
	In    []string `json:"$in,omitempty"`
	NotIn []string `json:"$nin,omitempty"`
}

// Eq matches values equal to v.
func Eq(v string) Selector {
	return Selector{Eq: &v}
}

// NotEq matches values different from v.
func NotEq(v string) Selector {
	return Selector{NotEq: &v}
}

// In matches values contained in vs.
func In(vs ...string) Selector {
	return Selector{In: append([]string{}, vs...)}
}

// NotIn matches values not contained in vs.
func NotIn(vs ...string) Selector {
	return Selector{NotIn: append([]string{}, vs...)}
}

func (s Selector) populated() int {
	n := 0
	if s.Eq != nil {
		n++
	}
	if s.NotEq != nil {
		n++
	}
	if s.In != nil {
		n++
	}
	if s.NotIn != nil {
		n++
	}
	return n
}

// Validate checks that exactly one variant is populated.
func (s Selector) Validate(field Field) error {
	switch n := s.populated(); {
	case n == 0:
		return NewValidationError(string(field), "selector has no variant populated")
	case n > 1:
		return NewValidationError(string(field), "selector has %d variants populated, want exactly one", n)
	}
	return nil
}

// Op returns the populated operator, OpNone for an invalid or zero Selector.
func (s Selector) Op() Operator {
	if s.populated() != 1 {
		return OpNone
	}
	switch {
	case s.Eq != nil:
		return OpEq
	case s.NotEq != nil:
		return OpNotEq
	case s.In != nil:
		return OpIn
	default:
		return OpNotIn
	}
}

// Negated reports whether the selector excludes its values.
func (s Selector) Negated() bool {
	op := s.Op()
	return op == OpNotEq || op == OpNotIn
}

// Values returns the member values of the selector.
// Singleton variants return a one-element slice.
func (s Selector) Values() []string {
	switch s.Op() {
	case OpEq:
		return []string{*s.Eq}
	case OpNotEq:
		return []string{*s.NotEq}
	case OpIn:
		return slices.Clone(s.In)
	case OpNotIn:
		return slices.Clone(s.NotIn)
	}
	return nil
}

// Matches evaluates the selector against a single value.
func (s Selector) Matches(v string) bool {
	switch s.Op() {
	case OpEq:
		return v == *s.Eq
	case OpNotEq:
		return v != *s.NotEq
	case OpIn:
		return slices.Contains(s.In, v)
	case OpNotIn:
		return !slices.Contains(s.NotIn, v)
	}
	return false
}

// MatchesAny evaluates the selector against a multi-valued field.
// Positive selectors need one matching value; negated selectors need none
// of the values to be excluded.
func (s Selector) MatchesAny(vs []string) bool {
	if s.Negated() {
		for _, v := range vs {
			if !s.Matches(v) {
				return false
			}
		}
		return true
	}
	for _, v := range vs {
		if s.Matches(v) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s Selector) Clone() Selector {
	out := Selector{}
	if s.Eq != nil {
		v := *s.Eq
		out.Eq = &v
	}
	if s.NotEq != nil {
		v := *s.NotEq
		out.NotEq = &v
	}
	if s.In != nil {
		out.In = slices.Clone(s.In)
	}
	if s.NotIn != nil {
		out.NotIn = slices.Clone(s.NotIn)
	}
	return out
}

// WithValues builds a selector of the same polarity over vs.
// Singleton variants stay singletons when vs has one element.
func (s Selector) WithValues(vs []string) Selector {
	switch s.Op() {
	case OpEq:
		if len(vs) == 1 {
			return Eq(vs[0])
		}
		return In(vs...)
	case OpNotEq:
		if len(vs) == 1 {
			return NotEq(vs[0])
		}
		return NotIn(vs...)
	case OpIn:
		return In(vs...)
	case OpNotIn:
		return NotIn(vs...)
	}
	return Selector{}
}
