package graphql

import (
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// nest wraps leaf in one object level per dotted segment of path:
// nest("token.timestamp", x) is {"token": {"timestamp": x}}.
func nest(path string, leaf any) map[string]any {
	segs := strings.Split(path, ".")
	out := map[string]any{segs[len(segs)-1]: leaf}
	for i := len(segs) - 2; i >= 0; i-- {
		out = map[string]any{segs[i]: out}
	}
	return out
}

// comparison renders sel as a Hasura comparison expression.
func comparison(sel domain.Selector) map[string]any {
	vs := sel.Values()
	switch sel.Op() {
	case domain.OpEq:
		return map[string]any{"_eq": vs[0]}
	case domain.OpNotEq:
		return map[string]any{"_neq": vs[0]}
	case domain.OpIn:
		return map[string]any{"_in": vs}
	default:
		return map[string]any{"_nin": vs}
	}
}

// positive returns sel with its polarity flipped to Eq/In.
func positive(sel domain.Selector) domain.Selector {
	vs := sel.Values()
	if sel.Op() == domain.OpNotEq {
		return domain.Eq(vs[0])
	}
	return domain.In(vs...)
}

// buildWhere renders the filters and bounds of q as a Hasura bool_exp.
func (s *Source) buildWhere(q domain.Query) (map[string]any, error) {
	var terms []any

	for _, f := range domain.Fields {
		sel, ok := q.Filter(f)
		if !ok {
			continue
		}
		switch f {
		case domain.FieldID:
			clause, err := s.idClause(sel)
			if err != nil {
				return nil, err
			}
			if clause != nil {
				terms = append(terms, clause)
			}
		case domain.FieldOwner:
			path := s.columns[ColumnOwner]
			if !sel.Negated() {
				terms = append(terms, nest(path, comparison(sel)))
			} else if len(sel.Values()) > 0 {
				// None of the item's owners may be excluded.
				terms = append(terms, map[string]any{"_not": nest(path, comparison(positive(sel)))})
			}
		default:
			terms = append(terms, nest(s.columns[fieldColumn[f]], comparison(sel)))
		}
	}

	created := s.columns[ColumnCreatedAt]
	if q.After != nil {
		terms = append(terms, nest(created, map[string]any{"_gt": q.After.UTC().Format(time.RFC3339Nano)}))
	}
	if q.Before != nil {
		terms = append(terms, nest(created, map[string]any{"_lt": q.Before.UTC().Format(time.RFC3339Nano)}))
	}

	switch len(terms) {
	case 0:
		return map[string]any{}, nil
	case 1:
		return terms[0].(map[string]any), nil
	}
	return map[string]any{"_and": terms}, nil
}

// idClause matches canonical ids either through a single id column or
// through the namespace and item columns. A nil clause matches everything.
func (s *Source) idClause(sel domain.Selector) (map[string]any, error) {
	vs := sel.Values()
	for _, id := range vs {
		if _, _, err := domain.ParseCanonicalID(id); err != nil {
			return nil, err
		}
	}
	if sel.Negated() && len(vs) == 0 {
		return nil, nil
	}

	if path, ok := s.columns[ColumnID]; ok {
		return nest(path, comparison(sel)), nil
	}

	nsPath, itemPath := s.columns[ColumnNamespace], s.columns[ColumnItem]
	if !sel.Negated() && len(vs) == 0 {
		return nest(itemPath, map[string]any{"_in": []string{}}), nil
	}
	alts := make([]any, 0, len(vs))
	for _, id := range vs {
		ns, item, _ := domain.ParseCanonicalID(id)
		alts = append(alts, map[string]any{"_and": []any{
			nest(nsPath, map[string]any{"_eq": ns}),
			nest(itemPath, map[string]any{"_eq": item}),
		}})
	}
	var clause map[string]any
	if len(alts) == 1 {
		clause = alts[0].(map[string]any)
	} else {
		clause = map[string]any{"_or": alts}
	}
	if sel.Negated() {
		return map[string]any{"_not": clause}, nil
	}
	return clause, nil
}

// buildOrderBy orders by creation time under q.Sort, then by identifier.
func (s *Source) buildOrderBy(q domain.Query) []any {
	var out []any
	if q.Sort.IsSet() {
		dir := "desc"
		if q.Sort.Direction == domain.Ascending {
			dir = "asc"
		}
		out = append(out, nest(s.columns[ColumnCreatedAt], dir))
	}
	if path, ok := s.columns[ColumnID]; ok {
		return append(out, nest(path, "asc"))
	}
	return append(out,
		nest(s.columns[ColumnNamespace], "asc"),
		nest(s.columns[ColumnItem], "asc"))
}

// selection renders the columns as a GraphQL selection set body.
func selection(columns map[string]string, indent string) string {
	tree := map[string]any{}
	for _, path := range columns {
		node := tree
		segs := strings.Split(path, ".")
		for i, seg := range segs {
			if i == len(segs)-1 {
				if _, ok := node[seg]; !ok {
					node[seg] = nil
				}
				break
			}
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[seg] = child
			}
			node = child
		}
	}
	var sb strings.Builder
	renderSelection(&sb, tree, indent)
	return sb.String()
}

func renderSelection(sb *strings.Builder, node map[string]any, indent string) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		child, ok := node[k].(map[string]any)
		if !ok {
			sb.WriteString(indent + k + "\n")
			continue
		}
		sb.WriteString(indent + k + " {\n")
		renderSelection(sb, child, indent+"  ")
		sb.WriteString(indent + "}\n")
	}
}
