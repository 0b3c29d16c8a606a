package services

import (
	"github.com/custodia-labs/federa/internal/core/domain"
)

// Skip reasons reported for routes that are not dispatched.
const (
	ReasonNotResponsible = "no requested identifier routes to this source"
	ReasonExhausted      = "exhausted by resume cursor"
)

// Route is the scoped query planned for one source.
type Route struct {
	Key      string
	Query    domain.Query
	Dispatch bool
	Reason   string
}

// Router plans one scoped query per configured source.
type Router struct {
	index *CompatibilityIndex
	keys  []string
}

// NewRouter creates a router over the sources in keys, in configuration order.
func NewRouter(index *CompatibilityIndex, keys []string) *Router {
	return &Router{index: index, keys: keys}
}

// Plan returns a route for every configured source, in configuration order.
//
// An identifier constraint is split by namespace and each source receives
// only the ids resolved to it, with the original polarity. Under a positive
// constraint (Eq/In) sources with no resolved id are not dispatched; under a
// negative one (NotEq/NotIn) every source is dispatched and the unresolved
// ones get the whole exclusion, so no source can return an excluded id. Sources missing from a non-nil cursor
// are exhausted. A cursor fragment overrides the bounds of the scoped query.
func (r *Router) Plan(q domain.Query, cursor domain.ResumeCursor) ([]Route, error) {
	idSel, hasID := q.Filter(domain.FieldID)
	base := q.WithoutFilter(domain.FieldID)

	var assigned map[string][]string
	if hasID {
		var err error
		if assigned, err = r.assign(idSel); err != nil {
			return nil, err
		}
	}

	routes := make([]Route, 0, len(r.keys))
	for _, key := range r.keys {
		route := Route{Key: key, Query: base.Clone(), Dispatch: true}

		if hasID {
			ids, ok := assigned[key]
			switch {
			case ok:
				route.Query = base.WithFilter(domain.FieldID, idSel.WithValues(ids))
			case idSel.Negated():
				route.Query = base.WithFilter(domain.FieldID, idSel.Clone())
			default:
				route.Dispatch = false
				route.Reason = ReasonNotResponsible
			}
		}

		if cursor != nil && route.Dispatch {
			frag, ok := cursor[key]
			if !ok {
				route.Dispatch = false
				route.Reason = ReasonExhausted
			} else {
				route.Query = frag.Apply(route.Query)
			}
		}

		routes = append(routes, route)
	}
	return routes, nil
}

// assign groups the ids of sel by the sources their namespace resolves to.
// Each source keeps the order in which its ids were requested.
func (r *Router) assign(sel domain.Selector) (map[string][]string, error) {
	assigned := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, id := range sel.Values() {
		ns, _, err := domain.ParseCanonicalID(id)
		if err != nil {
			return nil, err
		}
		for _, key := range r.index.Resolve(ns) {
			if seen[key] == nil {
				seen[key] = make(map[string]bool)
			}
			if seen[key][id] {
				continue
			}
			seen[key][id] = true
			assigned[key] = append(assigned[key], id)
		}
	}
	return assigned, nil
}
