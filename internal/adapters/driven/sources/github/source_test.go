package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/federa/internal/core/domain"
)

type fakeRepo struct {
	owner, name string
	created     time.Time
	language    string
}

func (r fakeRepo) json() string {
	return fmt.Sprintf(`{"name": %q, "full_name": "%s/%s", "owner": {"login": %q},
		"created_at": %q, "html_url": "https://github.com/%s/%s", "language": %q, "stargazers_count": 3}`,
		r.name, r.owner, r.name, r.owner, r.created.Format(time.RFC3339), r.owner, r.name, r.language)
}

// fakeGitHub serves /users/{owner}/repos and /repos/{owner}/{repo}
// from repos, honouring direction and recording request paths.
type fakeGitHub struct {
	mu       sync.Mutex
	repos    []fakeRepo
	requests []string
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "repos":
		var owned []fakeRepo
		for _, repo := range f.repos {
			if repo.owner == parts[1] {
				owned = append(owned, repo)
			}
		}
		if r.URL.Query().Get("direction") == "desc" {
			for i, j := 0, len(owned)-1; i < j; i, j = i+1, j-1 {
				owned[i], owned[j] = owned[j], owned[i]
			}
		}
		out := make([]string, len(owned))
		for i, repo := range owned {
			out[i] = repo.json()
		}
		fmt.Fprint(w, "["+strings.Join(out, ",")+"]")
	case len(parts) == 3 && parts[0] == "repos" && parts[1] == "private":
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	case len(parts) == 3 && parts[0] == "repos":
		for _, repo := range f.repos {
			if repo.owner == parts[1] && repo.name == parts[2] {
				fmt.Fprint(w, repo.json())
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGitHub) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// newTestSource serves repos listed oldest first.
func newTestSource(t *testing.T, namespaces ...string) (*Source, *fakeGitHub) {
	t.Helper()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeGitHub{repos: []fakeRepo{
		{"alice", "one", base, "Go"},
		{"alice", "two", base.Add(24 * time.Hour), "Rust"},
		{"alice", "three", base.Add(48 * time.Hour), ""},
		{"acme", "api", base.Add(12 * time.Hour), "Go"},
	}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), ClientOptions{BaseURL: srv.URL, Rate: 1000})
	require.NoError(t, err)
	return NewSource(domain.NewSourceDescriptor("gh", namespaces), client), fake
}

func ids(items []domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it.ID)
	}
	return out
}

func TestSource_FetchLists(t *testing.T) {
	src, _ := newTestSource(t, "alice", "acme")
	ctx := context.Background()
	cut := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query domain.Query
		want  []string
	}{
		{"desc", domain.Query{Limit: 10, Sort: domain.DefaultSort()}, []string{"alice:three", "alice:two", "acme:api", "alice:one"}},
		{"desc limited", domain.Query{Limit: 2, Sort: domain.DefaultSort()}, []string{"alice:three", "alice:two"}},
		{"asc", domain.Query{Limit: 10, Sort: domain.Sort{Field: domain.SortByDate, Direction: domain.Ascending}}, []string{"alice:one", "acme:api", "alice:two", "alice:three"}},
		{"before", domain.Query{Limit: 10, Sort: domain.DefaultSort(), Before: &cut}, []string{"acme:api", "alice:one"}},
		{"after", domain.Query{Limit: 10, Sort: domain.DefaultSort(), After: &cut}, []string{"alice:three"}},
		{"owner", domain.Query{Limit: 10, Sort: domain.DefaultSort()}.WithFilter(domain.FieldOwner, domain.Eq("acme")), []string{"acme:api"}},
		{"id excluded", domain.Query{Limit: 10, Sort: domain.DefaultSort()}.WithFilter(domain.FieldID, domain.NotIn("alice:two", "alice:three")), []string{"acme:api", "alice:one"}},
		{"unsorted", domain.Query{Limit: 10}, []string{"acme:api", "alice:one", "alice:three", "alice:two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := src.Fetch(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(items))
		})
	}
}

func TestSource_FetchMapsRepository(t *testing.T) {
	src, _ := newTestSource(t, "alice")
	items, err := src.Fetch(context.Background(), domain.Query{Limit: 1, Sort: domain.DefaultSort()})
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, domain.CanonicalID("alice:three"), it.ID)
	assert.Equal(t, "alice/three", it.Name)
	assert.Equal(t, "alice", it.Issuer)
	assert.Equal(t, []string{"alice"}, it.Owners)
	assert.Equal(t, RepositoryMimeType, it.MimeType)
	assert.Equal(t, "https://github.com/alice/three", it.URI)
	assert.Equal(t, time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), it.CreatedAt)
	assert.Equal(t, 3, it.Attributes["stars"])
	assert.NotContains(t, it.Attributes, "language")
}

func TestSource_FetchByID(t *testing.T) {
	src, fake := newTestSource(t, "alice")

	q := domain.Query{Limit: 10, Sort: domain.DefaultSort()}.
		WithFilter(domain.FieldID, domain.In("alice:one", "alice:missing", "acme:api"))
	items, err := src.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice:one"}, ids(items))
	assert.Equal(t, []string{"/repos/alice/one", "/repos/alice/missing"}, fake.paths(),
		"unserved namespaces are not requested")
}

func TestSource_FetchErrors(t *testing.T) {
	src, _ := newTestSource(t, "alice")
	_, err := src.Fetch(context.Background(), domain.Query{Limit: 1}.WithFilter(domain.FieldID, domain.Eq("broken")))
	assert.True(t, domain.IsValidation(err))

	src, _ = newTestSource(t, "private")
	_, err = src.Fetch(context.Background(), domain.Query{Limit: 1}.WithFilter(domain.FieldID, domain.Eq("private:x")))
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))
}

func TestRateLimiter_UpdateFromResponse(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.Equal(t, GitHubRateLimit, rl.Remaining())

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(HeaderRateRemaining, "42")
	resp.Header.Set(HeaderRateLimit, "60")
	resp.Header.Set(HeaderRateReset, "1700000000")
	rl.UpdateFromResponse(resp)

	assert.Equal(t, 42, rl.Remaining())
	assert.Equal(t, 60, rl.Limit())
	assert.Equal(t, time.Unix(1700000000, 0), rl.ResetTime())
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(1000)
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(HeaderRateRemaining, "0")
	resp.Header.Set(HeaderRateReset, fmt.Sprint(time.Now().Add(time.Hour).Unix()))
	rl.UpdateFromResponse(resp)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: http.StatusNotFound}))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", ErrRepoNotFound)))
	assert.True(t, IsRateLimited(&RateLimitError{}))
	assert.ErrorContains(t, &RateLimitError{ResetAt: time.Unix(0, 0).UTC()}, "1970-01-01T00:00:00Z")
}
