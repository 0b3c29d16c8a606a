package sqlquery

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// Columns selected by Build, in scan order.
const Columns = "i.namespace, i.item, i.created_at, i.issuer, i.mime_type, i.name, i.description, i.uri, i.owners, i.attributes"

// Statement is a rendered SQL query with its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// builder accumulates WHERE clauses and bind arguments.
type builder struct {
	d     Dialect
	where []string
	args  []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) bindAll(vs []string) string {
	ph := make([]string, len(vs))
	for i, v := range vs {
		ph[i] = b.bind(v)
	}
	return strings.Join(ph, ", ")
}

// Build renders q as a SELECT over table aliased as i.
func Build(d Dialect, table string, q domain.Query) (Statement, error) {
	b := &builder{d: d}

	for _, f := range domain.Fields {
		sel, ok := q.Filter(f)
		if !ok {
			continue
		}
		if err := sel.Validate(f); err != nil {
			return Statement{}, err
		}
		switch f {
		case domain.FieldID:
			clause, err := b.idClause(sel)
			if err != nil {
				return Statement{}, err
			}
			b.where = append(b.where, clause)
		case domain.FieldIssuer:
			b.where = append(b.where, b.columnClause("i.issuer", sel))
		case domain.FieldMimeType:
			b.where = append(b.where, b.columnClause("i.mime_type", sel))
		case domain.FieldOwner:
			b.where = append(b.where, b.ownerClause(sel))
		}
	}
	if q.After != nil {
		b.where = append(b.where, "i.created_at > "+b.bind(d.TimeValue(*q.After)))
	}
	if q.Before != nil {
		b.where = append(b.where, "i.created_at < "+b.bind(d.TimeValue(*q.Before)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s i", Columns, table)
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}

	sb.WriteString(" ORDER BY ")
	if q.Sort.IsSet() {
		dir := "DESC"
		if q.Sort.Direction == domain.Ascending {
			dir = "ASC"
		}
		fmt.Fprintf(&sb, "i.created_at %s, ", dir)
	}
	sb.WriteString("i.namespace || ':' || i.item ASC")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + b.bind(q.Limit))
	}
	return Statement{SQL: sb.String(), Args: b.args}, nil
}

func (b *builder) columnClause(col string, sel domain.Selector) string {
	vs := sel.Values()
	switch sel.Op() {
	case domain.OpEq:
		return col + " = " + b.bind(vs[0])
	case domain.OpNotEq:
		return col + " <> " + b.bind(vs[0])
	case domain.OpIn:
		if len(vs) == 0 {
			return "1 = 0"
		}
		return col + " IN (" + b.bindAll(vs) + ")"
	default:
		if len(vs) == 0 {
			return "1 = 1"
		}
		return col + " NOT IN (" + b.bindAll(vs) + ")"
	}
}

// ownerClause matches items with any owner in a positive selector, or
// with no owner in a negated one.
func (b *builder) ownerClause(sel domain.Selector) string {
	vs := sel.Values()
	if len(vs) == 0 {
		if sel.Negated() {
			return "1 = 1"
		}
		return "1 = 0"
	}
	exists := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM item_owners o WHERE o.namespace = i.namespace AND o.item = i.item AND o.owner IN (%s))",
		b.bindAll(vs))
	if sel.Negated() {
		return "NOT " + exists
	}
	return exists
}

func (b *builder) idClause(sel domain.Selector) (string, error) {
	vs := sel.Values()
	if len(vs) == 0 {
		if sel.Negated() {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}
	terms := make([]string, 0, len(vs))
	for _, id := range vs {
		ns, item, err := domain.ParseCanonicalID(id)
		if err != nil {
			return "", err
		}
		terms = append(terms, fmt.Sprintf("(i.namespace = %s AND i.item = %s)", b.bind(ns), b.bind(item)))
	}
	clause := "(" + strings.Join(terms, " OR ") + ")"
	if sel.Negated() {
		return "NOT " + clause, nil
	}
	return clause, nil
}
