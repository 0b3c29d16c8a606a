package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// QueryInput is the input schema for the query_items tool.
type QueryInput struct {
	Filter map[string]any `json:"filter,omitempty" jsonschema:"filter on id, tid, issuer, owner or mimeType with scalars, arrays or $eq/$neq/$in/$nin selectors; limit, orderBy, after and before control paging"`
	Cursor string         `json:"cursor,omitempty" jsonschema:"cursor returned by the previous call, to fetch the next page"`
}

// QueryOutput is the output schema for the query_items tool.
type QueryOutput struct {
	Items  []ItemOutput `json:"items"`
	Count  int          `json:"count"`
	Cursor string       `json:"cursor,omitempty"`
	More   bool         `json:"more"`
	Failed []string     `json:"failed_sources,omitempty"`
}

// ItemOutput represents a single catalog item.
type ItemOutput struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"created_at"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	MimeType    string   `json:"mime_type,omitempty"`
	Issuer      string   `json:"issuer,omitempty"`
	Owners      []string `json:"owners,omitempty"`
	URI         string   `json:"uri,omitempty"`
	Source      string   `json:"source"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_items",
		Description: "Query the federated item catalog across every configured source",
	}, s.handleQuery)
}

// handleQuery handles the query_items tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	cursor, err := domain.DecodeResumeCursor(input.Cursor)
	if err != nil {
		return nil, QueryOutput{}, err
	}
	if cursor.Exhausted() {
		return nil, QueryOutput{Items: []ItemOutput{}}, nil
	}

	page, err := s.ports.Federation.Query(ctx, domain.RawFilter(input.Filter), cursor)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Items:  make([]ItemOutput, len(page.Items)),
		Count:  len(page.Items),
		More:   len(page.Cursor) > 0,
		Failed: page.Failed(),
	}
	for i := range page.Items {
		output.Items[i] = toItemOutput(page.Items[i])
	}
	if output.More {
		if output.Cursor, err = page.Cursor.Encode(); err != nil {
			return nil, QueryOutput{}, fmt.Errorf("encoding cursor: %w", err)
		}
	}

	return nil, output, nil
}

func toItemOutput(it domain.Item) ItemOutput {
	return ItemOutput{
		ID:          string(it.ID),
		CreatedAt:   it.CreatedAt.UTC().Format(time.RFC3339),
		Name:        it.Name,
		Description: it.Description,
		MimeType:    it.MimeType,
		Issuer:      it.Issuer,
		Owners:      it.Owners,
		URI:         it.URI,
		Source:      it.Source,
	}
}
