package services

import (
	"slices"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/logger"
)

// Paginate merges per-source results into one page.
//
// Items are deduplicated by CanonicalID with routes processed in
// configuration order, so a later source replaces the whole record of an
// earlier one. The merged set is sorted by q.Sort with CanonicalID ascending
// as the tiebreak and truncated to q.Limit.
//
// A source whose raw page was exactly q.Limit long is continued from its
// own last raw item: DESC resumes before it, ASC after it. Sources with a
// short page are left out of the cursor. A failed source keeps its current
// bounds so the next page retries it.
func Paginate(q domain.Query, routes []Route, results []fetchResult) *domain.Page {
	merged := make(map[domain.CanonicalID]domain.Item)
	for i, route := range routes {
		if !route.Dispatch || results[i].err != nil {
			continue
		}
		for _, item := range results[i].items {
			if prev, dup := merged[item.ID]; dup {
				logger.Debug("Item %s from %s replaces copy from %s", item.ID, route.Key, prev.Source)
			}
			rec := item.Clone()
			rec.Source = route.Key
			merged[item.ID] = rec
		}
	}

	items := make([]domain.Item, 0, len(merged))
	for _, item := range merged {
		items = append(items, item)
	}
	slices.SortStableFunc(items, q.Sort.Compare)
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}

	page := &domain.Page{
		Items:   items,
		Cursor:  domain.ResumeCursor{},
		Sources: make(map[string]domain.SourceStatus, len(routes)),
	}

	for i, route := range routes {
		status := domain.SourceStatus{Dispatched: route.Dispatch, Reason: route.Reason}
		res := results[i]

		switch {
		case !route.Dispatch:
		case res.err != nil:
			status.Error = res.err.Error()
			page.Cursor[route.Key] = domain.Fragment{After: route.Query.After, Before: route.Query.Before}
		default:
			status.Fetched = len(res.items)
			if frag, ok := continuation(q, res.items); ok {
				page.Cursor[route.Key] = frag
				logger.Debug("Cursor for %s: %s", route.Key, describeFragment(frag))
			}
		}

		_, continued := page.Cursor[route.Key]
		status.Exhausted = !continued
		page.Sources[route.Key] = status
	}
	return page
}

// continuation returns the cursor fragment for a source's raw page.
// Only a full page under a sort field continues.
func continuation(q domain.Query, raw []domain.Item) (domain.Fragment, bool) {
	if len(raw) != q.Limit || !q.Sort.IsSet() {
		return domain.Fragment{}, false
	}
	boundary := raw[len(raw)-1].CreatedAt
	if q.Sort.Direction == domain.Ascending {
		return domain.Fragment{After: &boundary}, true
	}
	return domain.Fragment{Before: &boundary}, true
}

func describeFragment(f domain.Fragment) string {
	switch {
	case f.Before != nil:
		return "before " + f.Before.UTC().Format("2006-01-02T15:04:05.999Z07:00")
	case f.After != nil:
		return "after " + f.After.UTC().Format("2006-01-02T15:04:05.999Z07:00")
	}
	return "from start"
}
