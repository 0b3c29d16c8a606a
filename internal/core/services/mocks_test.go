package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// mockSource implements driven.Source for testing.
// With fixed set it returns fixed regardless of the query; otherwise it
// filters items like a real catalog.
type mockSource struct {
	desc  domain.SourceDescriptor
	items []domain.Item
	fixed []domain.Item
	err   error
	delay time.Duration

	mu      sync.Mutex
	queries []domain.Query
}

func newMockSource(key string, namespaces ...string) *mockSource {
	return &mockSource{desc: domain.NewSourceDescriptor(key, namespaces)}
}

func (m *mockSource) Key() string { return m.desc.Key }

func (m *mockSource) Descriptor() domain.SourceDescriptor { return m.desc }

func (m *mockSource) Fetch(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q.Clone())
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.fixed != nil {
		return slices.Clone(m.fixed), nil
	}

	var out []domain.Item
	for _, item := range m.items {
		if q.Matches(item) {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, q.Sort.Compare)
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *mockSource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

func (m *mockSource) lastQuery() domain.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1]
}

// mockObserver implements driven.FetchObserver for testing.
type mockObserver struct {
	mu      sync.Mutex
	fetches map[string]int
	errors  map[string]int
	queries int
}

func newMockObserver() *mockObserver {
	return &mockObserver{fetches: map[string]int{}, errors: map[string]int{}}
}

func (o *mockObserver) ObserveFetch(source string, _ time.Duration, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches[source]++
	if err != nil {
		o.errors[source]++
	}
}

func (o *mockObserver) ObserveQuery(_ time.Duration, _ int, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries++
}

func item(id string, unix int64) domain.Item {
	return domain.Item{ID: domain.CanonicalID(id), CreatedAt: time.Unix(unix, 0).UTC()}
}

func ids(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, string(it.ID))
	}
	return out
}
