package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/federa/internal/core/domain"
)

func newTestRouter() *Router {
	descs := []domain.SourceDescriptor{
		domain.NewSourceDescriptor("P", []string{"C1"}),
		domain.NewSourceDescriptor("Q", []string{"C2"}),
		domain.NewSourceDescriptor("W", []string{"*"}),
	}
	return NewRouter(NewCompatibilityIndex(descs), []string{"P", "Q", "W"})
}

func routeByKey(routes []Route) map[string]Route {
	out := make(map[string]Route, len(routes))
	for _, r := range routes {
		out[r.Key] = r
	}
	return out
}

func TestRouter_NoIdentifierBroadcasts(t *testing.T) {
	q := domain.Query{Limit: 5, Sort: domain.DefaultSort()}.
		WithFilter(domain.FieldOwner, domain.Eq("tz1alice"))

	routes, err := newTestRouter().Plan(q, nil)
	require.NoError(t, err)

	require.Len(t, routes, 3)
	assert.Equal(t, "P", routes[0].Key)
	for _, r := range routes {
		assert.True(t, r.Dispatch, r.Key)
		assert.Equal(t, domain.Eq("tz1alice"), r.Query.Filters[domain.FieldOwner])
		assert.Equal(t, 5, r.Query.Limit)
	}
}

func TestRouter_SingleExplicitOwner(t *testing.T) {
	q := domain.Query{Limit: 5}.WithFilter(domain.FieldID, domain.Eq("C1:7"))

	routes, err := newTestRouter().Plan(q, nil)
	require.NoError(t, err)
	byKey := routeByKey(routes)

	assert.True(t, byKey["P"].Dispatch)
	assert.Equal(t, domain.Eq("C1:7"), byKey["P"].Query.Filters[domain.FieldID])
	assert.False(t, byKey["Q"].Dispatch)
	assert.Equal(t, ReasonNotResponsible, byKey["Q"].Reason)
	assert.False(t, byKey["W"].Dispatch)
}

func TestRouter_SplitsSetByNamespace(t *testing.T) {
	q := domain.Query{Limit: 5}.
		WithFilter(domain.FieldID, domain.In("C1:1", "C5:9", "C1:2", "C2:3")).
		WithFilter(domain.FieldMimeType, domain.Eq("image/png"))

	routes, err := newTestRouter().Plan(q, nil)
	require.NoError(t, err)
	byKey := routeByKey(routes)

	assert.Equal(t, domain.In("C1:1", "C1:2"), byKey["P"].Query.Filters[domain.FieldID])
	assert.Equal(t, domain.In("C2:3"), byKey["Q"].Query.Filters[domain.FieldID])
	assert.Equal(t, domain.In("C5:9"), byKey["W"].Query.Filters[domain.FieldID])
	for _, r := range routes {
		assert.True(t, r.Dispatch)
		assert.Equal(t, domain.Eq("image/png"), r.Query.Filters[domain.FieldMimeType])
	}
}

func TestRouter_NegativePolarityReachesEverySource(t *testing.T) {
	q := domain.Query{Limit: 5}.WithFilter(domain.FieldID, domain.NotIn("C1:1", "C1:2"))

	routes, err := newTestRouter().Plan(q, nil)
	require.NoError(t, err)
	byKey := routeByKey(routes)

	assert.Equal(t, domain.NotIn("C1:1", "C1:2"), byKey["P"].Query.Filters[domain.FieldID])
	for _, key := range []string{"Q", "W"} {
		assert.True(t, byKey[key].Dispatch)
		assert.Equal(t, domain.NotIn("C1:1", "C1:2"), byKey[key].Query.Filters[domain.FieldID],
			"unresolved sources keep the whole exclusion")
	}
}

func TestRouter_NotEqStaysSingleton(t *testing.T) {
	q := domain.Query{Limit: 5}.WithFilter(domain.FieldID, domain.NotEq("C2:4"))

	routes, err := newTestRouter().Plan(q, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.NotEq("C2:4"), routeByKey(routes)["Q"].Query.Filters[domain.FieldID])
}

func TestRouter_EmptyInDispatchesNothing(t *testing.T) {
	q := domain.Query{Limit: 5}.WithFilter(domain.FieldID, domain.In())

	routes, err := newTestRouter().Plan(q, nil)
	require.NoError(t, err)
	for _, r := range routes {
		assert.False(t, r.Dispatch)
	}
}

func TestRouter_CursorOverlayAndExhaustion(t *testing.T) {
	queryBefore := time.Unix(1000, 0)
	queryAfter := time.Unix(10, 0)
	cursorBefore := time.Unix(500, 0)

	q := domain.Query{Limit: 5, After: &queryAfter, Before: &queryBefore, Sort: domain.DefaultSort()}
	cursor := domain.ResumeCursor{"P": {Before: &cursorBefore}, "W": {}}

	routes, err := newTestRouter().Plan(q, cursor)
	require.NoError(t, err)
	byKey := routeByKey(routes)

	assert.True(t, byKey["P"].Dispatch)
	assert.Equal(t, int64(500), byKey["P"].Query.Before.Unix())
	assert.Equal(t, int64(10), byKey["P"].Query.After.Unix())

	assert.False(t, byKey["Q"].Dispatch)
	assert.Equal(t, ReasonExhausted, byKey["Q"].Reason)

	assert.True(t, byKey["W"].Dispatch)
	assert.Equal(t, int64(1000), byKey["W"].Query.Before.Unix())

	assert.Equal(t, int64(1000), q.Before.Unix(), "canonical query must not be mutated")
}

func TestRouter_EmptyCursorExhaustsAll(t *testing.T) {
	routes, err := newTestRouter().Plan(domain.Query{Limit: 5}, domain.ResumeCursor{})
	require.NoError(t, err)
	for _, r := range routes {
		assert.False(t, r.Dispatch)
		assert.Equal(t, ReasonExhausted, r.Reason)
	}
}

func TestRouter_MalformedID(t *testing.T) {
	q := domain.Query{Limit: 5}.WithFilter(domain.FieldID, domain.Eq("bad"))

	_, err := newTestRouter().Plan(q, nil)
	assert.True(t, domain.IsValidation(err))
}
