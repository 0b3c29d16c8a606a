// Package httpapi serves the federation over a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driving"
	"github.com/custodia-labs/federa/internal/core/services"
	"github.com/custodia-labs/federa/internal/logger"
)

// HeaderQueryID carries the query id in requests and responses.
const HeaderQueryID = "X-Query-ID"

// maxBodyBytes bounds a query request body.
const maxBodyBytes = 1 << 20

// ErrMissingFederationService is returned when no federation service is given.
var ErrMissingFederationService = errors.New("federation service is required")

// Handler exposes a FederationService over HTTP.
type Handler struct {
	federation driving.FederationService
	metrics    http.Handler
	timeout    time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(hd *Handler) {
		hd.metrics = h
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(hd *Handler) {
		hd.timeout = d
	}
}

// NewHandler creates a Handler for federation.
func NewHandler(federation driving.FederationService, opts ...Option) (*Handler, error) {
	if federation == nil {
		return nil, ErrMissingFederationService
	}
	h := &Handler{federation: federation}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes returns the chi router serving the API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(queryID)
	if h.timeout > 0 {
		r.Use(middleware.Timeout(h.timeout))
	}

	r.Get("/healthz", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sources", h.handleSources)
		r.Post("/query", h.handleQuery)
		r.Get("/items/{id}", h.handleItem)
	})
	return r
}

// queryID tags the request context with the caller's query id or a new one.
func queryID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderQueryID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderQueryID, id)
		next.ServeHTTP(w, r.WithContext(driving.ContextWithQueryID(r.Context(), id)))
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Sources int    `json:"sources"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sources: len(h.federation.Sources())})
}

type sourceResponse struct {
	Key        string   `json:"key"`
	Namespaces []string `json:"namespaces"`
	Wildcard   bool     `json:"wildcard"`
	Exclude    []string `json:"exclude,omitempty"`
}

func (h *Handler) handleSources(w http.ResponseWriter, _ *http.Request) {
	descs := h.federation.Sources()
	out := make([]sourceResponse, len(descs))
	for i, d := range descs {
		out[i] = sourceResponse{Key: d.Key, Namespaces: d.Namespaces, Wildcard: d.Wildcard, Exclude: d.Exclude}
		if out[i].Namespaces == nil {
			out[i].Namespaces = []string{}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Filter domain.RawFilter `json:"filter"`
	Cursor string           `json:"cursor,omitempty"`
}

// QueryResponse is one page of results.
type QueryResponse struct {
	QueryID string                         `json:"queryId"`
	Items   []domain.Item                  `json:"items"`
	Cursor  string                         `json:"cursor,omitempty"`
	More    bool                           `json:"more"`
	Sources map[string]domain.SourceStatus `json:"sources"`
	Failed  []string                       `json:"failedSources,omitempty"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := driving.QueryIDFromContext(ctx)

	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.Debug("Query %s: invalid body: %v", id, err)
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	cursor, err := domain.DecodeResumeCursor(req.Cursor)
	if err != nil {
		writeError(w, err)
		return
	}
	if cursor.Exhausted() {
		// nothing left to fetch, but a malformed filter is still rejected
		if _, err := services.NormalizeQuery(req.Filter); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, QueryResponse{
			QueryID: id,
			Items:   []domain.Item{},
			Sources: map[string]domain.SourceStatus{},
		})
		return
	}

	page, err := h.federation.Query(ctx, req.Filter, cursor)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := QueryResponse{
		QueryID: id,
		Items:   page.Items,
		More:    len(page.Cursor) > 0,
		Sources: page.Sources,
		Failed:  page.Failed(),
	}
	if resp.Items == nil {
		resp.Items = []domain.Item{}
	}
	if resp.More {
		if resp.Cursor, err = page.Cursor.Encode(); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !domain.CanonicalID(id).Valid() {
		writeJSONError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid item id %q", id))
		return
	}

	page, err := h.federation.Query(r.Context(), domain.RawFilter{"id": id, "limit": 1}, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(page.Items) == 0 {
		writeJSONError(w, http.StatusNotFound, "not_found", fmt.Sprintf("item %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, page.Items[0])
}
