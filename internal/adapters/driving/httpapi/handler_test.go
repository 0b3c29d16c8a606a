package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/federa/internal/adapters/driven/sources/memory"
	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/core/ports/driving"
	"github.com/custodia-labs/federa/internal/core/services"
)

// stubFederation is a minimal driving.FederationService for error paths.
type stubFederation struct {
	err     error
	queries int
	lastID  string
}

func (s *stubFederation) Configure(_ []driven.Source) error { return nil }
func (s *stubFederation) AddSource(_ driven.Source) error { return nil }
func (s *stubFederation) RemoveSource(_ string) error { return nil }
func (s *stubFederation) Sources() []domain.SourceDescriptor { return nil }

func (s *stubFederation) Query(
	ctx context.Context, _ domain.RawFilter, _ domain.ResumeCursor,
) (*domain.Page, error) {
	s.queries++
	s.lastID = driving.QueryIDFromContext(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Page{Cursor: domain.ResumeCursor{}}, nil
}

func (s *stubFederation) Execute(
	ctx context.Context, _ domain.Query, cursor domain.ResumeCursor,
) (*domain.Page, error) {
	return s.Query(ctx, nil, cursor)
}

func at(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}

func newFederation(t *testing.T) *services.FederationService {
	t.Helper()
	teia := memory.NewSource(domain.NewSourceDescriptor("teia", []string{"KT1A"}),
		domain.Item{ID: "KT1A:1", CreatedAt: at(100), Name: "one"},
		domain.Item{ID: "KT1A:2", CreatedAt: at(200), Name: "two"},
	)
	objkt := memory.NewSource(domain.NewSourceDescriptor("objkt", []string{"*"}),
		domain.Item{ID: "KT1B:1", CreatedAt: at(150), Name: "other"},
	)
	svc := services.NewFederationService()
	require.NoError(t, svc.Configure([]driven.Source{teia, objkt}))
	return svc
}

func newServer(t *testing.T, fed driving.FederationService, opts ...Option) *httptest.Server {
	t.Helper()
	h, err := NewHandler(fed, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postQuery(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestNewHandler_RequiresFederation(t *testing.T) {
	_, err := NewHandler(nil)
	assert.ErrorIs(t, err, ErrMissingFederationService)
}

func TestHandler_QueryPages(t *testing.T) {
	srv := newServer(t, newFederation(t))

	resp := postQuery(t, srv, `{"filter":{"limit":2}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderQueryID))

	first := decode[QueryResponse](t, resp)
	require.Len(t, first.Items, 2)
	assert.Equal(t, domain.CanonicalID("KT1A:2"), first.Items[0].ID)
	assert.Equal(t, "teia", first.Items[0].Source)
	assert.Equal(t, domain.CanonicalID("KT1B:1"), first.Items[1].ID)
	assert.True(t, first.More)
	require.NotEmpty(t, first.Cursor)
	assert.Equal(t, resp.Header.Get(HeaderQueryID), first.QueryID)
	assert.True(t, first.Sources["objkt"].Exhausted)
	assert.False(t, first.Sources["teia"].Exhausted)

	cursor, err := domain.DecodeResumeCursor(first.Cursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"teia"}, cursor.Keys())

	resp = postQuery(t, srv, `{"filter":{"limit":2},"cursor":"`+first.Cursor+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[QueryResponse](t, resp)
	assert.Empty(t, second.Items)
	assert.False(t, second.More)
	assert.Empty(t, second.Cursor)
	assert.False(t, second.Sources["objkt"].Dispatched)
}

func TestHandler_QueryByID(t *testing.T) {
	srv := newServer(t, newFederation(t))

	resp := postQuery(t, srv, `{"filter":{"id":["KT1A:1","KT1B:1"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[QueryResponse](t, resp)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.CanonicalID("KT1B:1"), page.Items[0].ID)
	assert.Equal(t, domain.CanonicalID("KT1A:1"), page.Items[1].ID)
	assert.False(t, page.More)
}

func TestHandler_ExhaustedCursorSkipsQuery(t *testing.T) {
	stub := &stubFederation{}
	srv := newServer(t, stub)

	encoded, err := domain.ResumeCursor{}.Encode()
	require.NoError(t, err)

	resp := postQuery(t, srv, `{"cursor":"`+encoded+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[QueryResponse](t, resp)
	assert.Empty(t, page.Items)
	assert.False(t, page.More)
	assert.Zero(t, stub.queries)
}

func TestHandler_ExhaustedCursorStillValidatesFilter(t *testing.T) {
	stub := &stubFederation{}
	srv := newServer(t, stub)

	encoded, err := domain.ResumeCursor{}.Encode()
	require.NoError(t, err)

	for _, filter := range []string{
		`{"limit":-1}`,
		`{"owner":{"$eq":"tz1a","$in":["tz1b"]}}`,
	} {
		resp := postQuery(t, srv, `{"filter":`+filter+`,"cursor":"`+encoded+`"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, filter)
	}
	assert.Zero(t, stub.queries)
}

func TestHandler_QueryIDPropagates(t *testing.T) {
	stub := &stubFederation{}
	srv := newServer(t, stub)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/query", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set(HeaderQueryID, "caller-chosen")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "caller-chosen", resp.Header.Get(HeaderQueryID))
	assert.Equal(t, "caller-chosen", stub.lastID)
}

func TestHandler_QueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{
			name:   "malformed body",
			body:   `{"filter":`,
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "unknown field",
			body:   `{"where":{}}`,
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "invalid cursor",
			body:   `{"cursor":"%%%"}`,
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "validation",
			body:   `{}`,
			err:    domain.NewValidationError("limit", "must be positive"),
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "source failure",
			body:   `{}`,
			err:    &domain.SourceFetchError{SourceKey: "teia", Err: errors.New("timeout")},
			status: http.StatusBadGateway,
			code:   "source_failed",
		},
		{
			name:   "internal",
			body:   `{}`,
			err:    &domain.ConfigurationError{Reason: "routed to unknown source"},
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, &stubFederation{err: tt.err})

			resp := postQuery(t, srv, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			body := decode[errorResponse](t, resp)
			assert.Equal(t, tt.code, body.Error)
			assert.NotEmpty(t, body.Description)
		})
	}
}

func TestHandler_ValidationFromService(t *testing.T) {
	srv := newServer(t, newFederation(t))

	resp := postQuery(t, srv, `{"filter":{"limit":-1}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Item(t *testing.T) {
	srv := newServer(t, newFederation(t))

	resp, err := http.Get(srv.URL + "/v1/items/KT1A:2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item := decode[domain.Item](t, resp)
	assert.Equal(t, "two", item.Name)
	assert.Equal(t, "teia", item.Source)

	missing, err := http.Get(srv.URL + "/v1/items/KT1A:9")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	invalid, err := http.Get(srv.URL + "/v1/items/no-colon")
	require.NoError(t, err)
	defer invalid.Body.Close()
	assert.Equal(t, http.StatusBadRequest, invalid.StatusCode)
}

func TestHandler_SourcesAndHealth(t *testing.T) {
	srv := newServer(t, newFederation(t))

	resp, err := http.Get(srv.URL + "/v1/sources")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sources := decode[[]sourceResponse](t, resp)
	require.Len(t, sources, 2)
	assert.Equal(t, "teia", sources[0].Key)
	assert.Equal(t, []string{"KT1A"}, sources[0].Namespaces)
	assert.Equal(t, "objkt", sources[1].Key)
	assert.True(t, sources[1].Wildcard)
	assert.Equal(t, []string{}, sources[1].Namespaces)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, healthResponse{Status: "ok", Sources: 2}, decode[healthResponse](t, health))
}

func TestHandler_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("federa_queries_total 1\n"))
	})

	srv := newServer(t, &stubFederation{}, WithMetrics(metrics))
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bare := newServer(t, &stubFederation{})
	resp, err = http.Get(bare.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	h, err := NewHandler(&stubFederation{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", h.Routes())
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
