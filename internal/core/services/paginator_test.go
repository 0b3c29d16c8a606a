package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/federa/internal/core/domain"
)

func dispatched(keys ...string) []Route {
	routes := make([]Route, 0, len(keys))
	for _, k := range keys {
		routes = append(routes, Route{Key: k, Dispatch: true, Query: domain.Query{Limit: 2}})
	}
	return routes
}

func TestPaginate_DedupSortSliceCursor(t *testing.T) {
	q := domain.Query{Limit: 2, Sort: domain.DefaultSort()}
	results := []fetchResult{
		{items: []domain.Item{item("N:x", 5), item("N:y", 3)}},
		{items: []domain.Item{item("N:y", 3), item("N:z", 1)}},
	}

	page := Paginate(q, dispatched("A", "B"), results)

	assert.Equal(t, []string{"N:x", "N:y"}, ids(page.Items))
	assert.Equal(t, "A", page.Items[0].Source)
	assert.Equal(t, "B", page.Items[1].Source, "later source wins the duplicate")

	require.Len(t, page.Cursor, 2)
	assert.Equal(t, int64(3), page.Cursor["A"].Before.Unix())
	assert.Nil(t, page.Cursor["A"].After)
	assert.Equal(t, int64(1), page.Cursor["B"].Before.Unix())

	assert.Equal(t, 2, page.Sources["A"].Fetched)
	assert.False(t, page.Sources["B"].Exhausted)
}

func TestPaginate_AscendingUsesAfter(t *testing.T) {
	q := domain.Query{Limit: 2, Sort: domain.Sort{Field: domain.SortByDate, Direction: domain.Ascending}}
	results := []fetchResult{{items: []domain.Item{item("N:a", 1), item("N:b", 4)}}}

	page := Paginate(q, dispatched("A"), results)

	assert.Equal(t, []string{"N:a", "N:b"}, ids(page.Items))
	assert.Equal(t, int64(4), page.Cursor["A"].After.Unix())
	assert.Nil(t, page.Cursor["A"].Before)
}

func TestPaginate_ShortPageIsExhausted(t *testing.T) {
	q := domain.Query{Limit: 2, Sort: domain.DefaultSort()}
	results := []fetchResult{
		{items: []domain.Item{item("N:a", 1)}},
		{items: nil},
	}

	page := Paginate(q, dispatched("A", "B"), results)

	assert.NotNil(t, page.Cursor)
	assert.Empty(t, page.Cursor)
	assert.True(t, page.Cursor.Exhausted())
	assert.True(t, page.Sources["A"].Exhausted)
	assert.True(t, page.Sources["B"].Exhausted)
}

func TestPaginate_TieBreakByCanonicalID(t *testing.T) {
	q := domain.Query{Limit: 10, Sort: domain.DefaultSort()}
	results := []fetchResult{
		{items: []domain.Item{item("N:c", 5), item("N:a", 5)}},
		{items: []domain.Item{item("N:b", 5), item("N:d", 9)}},
	}

	page := Paginate(q, dispatched("A", "B"), results)

	assert.Equal(t, []string{"N:d", "N:a", "N:b", "N:c"}, ids(page.Items))
}

func TestPaginate_NoSortField(t *testing.T) {
	q := domain.Query{Limit: 2}
	results := []fetchResult{
		{items: []domain.Item{item("N:z", 1), item("N:b", 9)}},
		{items: []domain.Item{item("N:a", 5)}},
	}

	page := Paginate(q, dispatched("A", "B"), results)

	assert.Equal(t, []string{"N:a", "N:b"}, ids(page.Items))
	assert.Empty(t, page.Cursor, "no boundary without a sort field")
}

func TestPaginate_SkippedAndFailedSources(t *testing.T) {
	q := domain.Query{Limit: 2, Sort: domain.DefaultSort()}
	routes := []Route{
		{Key: "A", Dispatch: true, Query: domain.Query{Limit: 2}},
		{Key: "B", Dispatch: false, Reason: ReasonExhausted},
		{Key: "C", Dispatch: true, Query: domain.Query{Limit: 2}},
	}
	results := []fetchResult{
		{items: []domain.Item{item("N:a", 1)}},
		{},
		{err: errors.New("indexer down")},
	}

	page := Paginate(q, routes, results)

	assert.Equal(t, []string{"N:a"}, ids(page.Items))
	assert.False(t, page.Sources["B"].Dispatched)
	assert.Equal(t, ReasonExhausted, page.Sources["B"].Reason)
	assert.Equal(t, "indexer down", page.Sources["C"].Error)
	assert.Contains(t, page.Cursor, "C", "failed source is retried on the next page")
	assert.Equal(t, []string{"C"}, page.Failed())
}

func TestPaginate_SizeBound(t *testing.T) {
	q := domain.Query{Limit: 3, Sort: domain.DefaultSort()}
	var a, b []domain.Item
	for i := range 3 {
		a = append(a, item("A:"+string(rune('a'+i)), int64(10-i)))
		b = append(b, item("B:"+string(rune('a'+i)), int64(20-i)))
	}

	page := Paginate(q, []Route{
		{Key: "A", Dispatch: true, Query: domain.Query{Limit: 3}},
		{Key: "B", Dispatch: true, Query: domain.Query{Limit: 3}},
	}, []fetchResult{{items: a}, {items: b}})

	assert.Len(t, page.Items, 3)
	assert.Equal(t, []string{"B:a", "B:b", "B:c"}, ids(page.Items))
	assert.Len(t, page.Cursor, 2)
}

func TestPaginate_DoesNotMutateSourceItems(t *testing.T) {
	raw := []domain.Item{item("N:a", 1)}
	Paginate(domain.Query{Limit: 5, Sort: domain.DefaultSort()}, dispatched("A"), []fetchResult{{items: raw}})

	assert.Empty(t, raw[0].Source)
}
