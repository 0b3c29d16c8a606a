// Package graphql provides a catalog source backed by a Hasura-style
// GraphQL indexer.
//
// The scoped query is rendered as a bool_exp "where" variable over a
// configurable column map, and items are read from the response with
// gjson paths derived from the same map.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultTable is the root field queried by the generated document.
	DefaultTable = "tokens"

	// DefaultOperationName names the generated document.
	DefaultOperationName = "FederaItems"

	// maxResponseBytes bounds the response body read from the indexer.
	maxResponseBytes = 32 << 20
)

// Column keys accepted in Options.Columns.
const (
	ColumnID          = "id"
	ColumnNamespace   = "namespace"
	ColumnItem        = "item"
	ColumnCreatedAt   = "createdAt"
	ColumnIssuer      = "issuer"
	ColumnOwner       = "owner"
	ColumnMimeType    = "mimeType"
	ColumnName        = "name"
	ColumnDescription = "description"
	ColumnURI         = "uri"
)

// DefaultColumns maps item fields onto a teztok-style tokens table.
var DefaultColumns = map[string]string{
	ColumnNamespace:   "fa2_address",
	ColumnItem:        "token_id",
	ColumnCreatedAt:   "minted_at",
	ColumnIssuer:      "artist_address",
	ColumnOwner:       "holdings.holder_address",
	ColumnMimeType:    "mime_type",
	ColumnName:        "name",
	ColumnDescription: "description",
	ColumnURI:         "artifact_uri",
}

var fieldColumn = map[domain.Field]string{
	domain.FieldIssuer:   ColumnIssuer,
	domain.FieldOwner:    ColumnOwner,
	domain.FieldMimeType: ColumnMimeType,
}

// Options configures a GraphQL source.
type Options struct {
	// Endpoint is the GraphQL HTTP endpoint.
	Endpoint string

	// Table is the root field of the generated document. Ignored when
	// Query is set, except for the default ItemsPath.
	Table string

	// Query is a custom document taking $where, $order_by and $limit.
	Query string

	OperationName string

	// ItemsPath is the gjson path of the item array in the response.
	ItemsPath string

	// Columns overrides entries of DefaultColumns. An empty value unmaps
	// the field; filtering on it then fails as unsupported.
	Columns map[string]string

	// RequireOwnerForID rejects identifier lookups without an owner selector.
	RequireOwnerForID bool

	// HTTPClient defaults to a plain client with DefaultTimeout.
	HTTPClient *http.Client

	// Limiter throttles requests. Nil means unlimited.
	Limiter *rate.Limiter
}

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Source queries a GraphQL indexer.
type Source struct {
	desc         domain.SourceDescriptor
	endpoint     string
	document     string
	operation    string
	itemsPath    string
	columns      map[string]string
	requireOwner bool
	client       *http.Client
	limiter      *rate.Limiter
}

// NewSource creates a GraphQL source.
func NewSource(desc domain.SourceDescriptor, opts Options) (*Source, error) {
	if opts.Endpoint == "" {
		return nil, &domain.ConfigurationError{SourceKey: desc.Key, Reason: "graphql endpoint is required"}
	}

	columns := maps.Clone(DefaultColumns)
	for k, v := range opts.Columns {
		if v == "" {
			delete(columns, k)
			continue
		}
		columns[k] = v
	}
	if columns[ColumnCreatedAt] == "" {
		return nil, &domain.ConfigurationError{SourceKey: desc.Key, Reason: "graphql columns need createdAt"}
	}
	if columns[ColumnID] == "" && (columns[ColumnNamespace] == "" || columns[ColumnItem] == "") {
		return nil, &domain.ConfigurationError{SourceKey: desc.Key, Reason: "graphql columns need id or namespace and item"}
	}

	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	s := &Source{
		desc:         desc,
		endpoint:     opts.Endpoint,
		document:     opts.Query,
		operation:    opts.OperationName,
		itemsPath:    opts.ItemsPath,
		columns:      columns,
		requireOwner: opts.RequireOwnerForID,
		client:       opts.HTTPClient,
		limiter:      opts.Limiter,
	}
	if s.document == "" {
		s.document = GenerateQuery(table, columns)
		s.operation = DefaultOperationName
	}
	if s.itemsPath == "" {
		s.itemsPath = "data." + table
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: DefaultTimeout}
	}
	return s, nil
}

// NewHTTPClient returns a client sending token as a bearer credential.
func NewHTTPClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout
	return tc
}

// NewLimiter returns a limiter allowing perSecond requests with burst.
// A non-positive rate means unlimited.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// GenerateQuery renders the document used when no custom query is set.
func GenerateQuery(table string, columns map[string]string) string {
	return fmt.Sprintf(
		"query %s($where: %s_bool_exp!, $order_by: [%s_order_by!], $limit: Int) {\n"+
			"  %s(where: $where, order_by: $order_by, limit: $limit) {\n%s  }\n}\n",
		DefaultOperationName, table, table, table, selection(columns, "    "))
}

// Key returns the source key.
func (s *Source) Key() string { return s.desc.Key }

// Descriptor returns the routing descriptor.
func (s *Source) Descriptor() domain.SourceDescriptor { return s.desc }

// Fetch runs q against the indexer.
func (s *Source) Fetch(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	if err := s.checkSupported(q); err != nil {
		return nil, err
	}
	where, err := s.buildWhere(q)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"where":    where,
		"order_by": s.buildOrderBy(q),
	}
	if q.Limit > 0 {
		vars["limit"] = q.Limit
	}

	body, err := s.post(ctx, vars)
	if err != nil {
		return nil, err
	}
	return s.parseItems(body)
}

func (s *Source) checkSupported(q domain.Query) error {
	if _, hasID := q.Filter(domain.FieldID); hasID && s.requireOwner {
		if _, hasOwner := q.Filter(domain.FieldOwner); !hasOwner {
			return &domain.UnsupportedOperationError{
				SourceKey: s.desc.Key,
				Operation: "identifier lookup",
				Reason:    "an owner selector is required",
			}
		}
	}
	for f, col := range fieldColumn {
		if _, ok := q.Filter(f); ok && s.columns[col] == "" {
			return &domain.UnsupportedOperationError{
				SourceKey: s.desc.Key,
				Operation: "filter by " + string(f),
				Reason:    "no column mapped",
			}
		}
	}
	return nil
}

// post sends the document with vars and returns the raw response body.
func (s *Source) post(ctx context.Context, vars map[string]any) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	payload := map[string]any{"query": s.document, "variables": vars}
	if s.operation != "" {
		payload["operationName"] = s.operation
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.Debug("graphql %s: POST %s", s.desc.Key, s.endpoint)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphql request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read graphql response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rlErr := &RateLimitError{URL: s.endpoint}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			rlErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return nil, rlErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body), URL: s.endpoint}
	}
	if errs := gjson.GetBytes(body, "errors.#.message"); len(errs.Array()) > 0 {
		msgs := make([]string, 0, len(errs.Array()))
		for _, m := range errs.Array() {
			msgs = append(msgs, m.String())
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.Join(msgs, "; "), URL: s.endpoint}
	}
	return body, nil
}

// errorMessage extracts a readable message from an error response body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"errors.0.message", "error", "message"} {
			if v := gjson.GetBytes(body, path); v.Exists() {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// parseItems maps the item array at itemsPath onto domain items.
func (s *Source) parseItems(body []byte) ([]domain.Item, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	list := gjson.GetBytes(body, s.itemsPath)
	if !list.Exists() || list.Type == gjson.Null {
		if !gjson.GetBytes(body, "data").Exists() {
			return nil, fmt.Errorf("%w: no data", ErrMalformedResponse)
		}
		return nil, nil
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: %s is not an array", ErrMalformedResponse, s.itemsPath)
	}

	var out []domain.Item
	for i, r := range list.Array() {
		it, err := s.mapItem(r)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Source) mapItem(r gjson.Result) (domain.Item, error) {
	var it domain.Item
	if path := s.columns[ColumnID]; path != "" {
		it.ID = domain.CanonicalID(first(r, path))
	} else {
		it.ID = domain.NewCanonicalID(first(r, s.columns[ColumnNamespace]), first(r, s.columns[ColumnItem]))
	}
	if !it.ID.Valid() {
		return domain.Item{}, fmt.Errorf("malformed id %q", it.ID)
	}

	created := lookup(r, s.columns[ColumnCreatedAt])
	if len(created) == 0 {
		return domain.Item{}, fmt.Errorf("%s: missing %s", it.ID, s.columns[ColumnCreatedAt])
	}
	ts, err := parseTime(created[0])
	if err != nil {
		return domain.Item{}, fmt.Errorf("%s: %w", it.ID, err)
	}
	it.CreatedAt = ts

	it.Issuer = first(r, s.columns[ColumnIssuer])
	it.MimeType = first(r, s.columns[ColumnMimeType])
	it.Name = first(r, s.columns[ColumnName])
	it.Description = first(r, s.columns[ColumnDescription])
	it.URI = first(r, s.columns[ColumnURI])

	for _, o := range lookup(r, s.columns[ColumnOwner]) {
		if v := o.String(); v != "" && !slices.Contains(it.Owners, v) {
			it.Owners = append(it.Owners, v)
		}
	}
	return it, nil
}

// lookup resolves a dotted path under r, flattening arrays met on the way.
func lookup(r gjson.Result, path string) []gjson.Result {
	if path == "" {
		return nil
	}
	cur := []gjson.Result{r}
	for _, seg := range strings.Split(path, ".") {
		var next []gjson.Result
		for _, c := range cur {
			v := c.Get(seg)
			switch {
			case v.IsArray():
				next = append(next, v.Array()...)
			case v.Exists() && v.Type != gjson.Null:
				next = append(next, v)
			}
		}
		cur = next
	}
	return cur
}

func first(r gjson.Result, path string) string {
	vs := lookup(r, path)
	if len(vs) == 0 {
		return ""
	}
	return vs[0].String()
}

// timestamp layouts accepted from indexers, tried in order.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999-07"}

func parseTime(v gjson.Result) (time.Time, error) {
	if v.Type == gjson.Number {
		return time.Unix(v.Int(), 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v.String()); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", v.String())
}
