package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/federa/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for federa resources.
	uriScheme = "federa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Configured sources with the namespaces they serve",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "items/{id}",
		Name:        "item",
		Description: "A single catalog item by canonical id, with the colon percent-encoded",
		MIMEType:    "application/json",
	}, s.handleItemResource)
}

// handleSourcesResource returns the configured source descriptors.
func (s *Server) handleSourcesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type sourceInfo struct {
		Key        string   `json:"key"`
		Namespaces []string `json:"namespaces"`
		Wildcard   bool     `json:"wildcard"`
		Exclude    []string `json:"exclude,omitempty"`
	}

	descs := s.ports.Federation.Sources()
	infos := make([]sourceInfo, len(descs))
	for i, d := range descs {
		infos[i] = sourceInfo{
			Key:        d.Key,
			Namespaces: d.Namespaces,
			Wildcard:   d.Wildcard,
			Exclude:    d.Exclude,
		}
		if infos[i].Namespaces == nil {
			infos[i].Namespaces = []string{}
		}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleItemResource looks up one item across the federation.
func (s *Server) handleItemResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractItemID(req.Params.URI)
	if !domain.CanonicalID(id).Valid() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	page, err := s.ports.Federation.Query(ctx, domain.RawFilter{"id": id, "limit": 1}, nil)
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	if len(page.Items) == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return jsonResult(req.Params.URI, toItemOutput(page.Items[0]))
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractItemID extracts the canonical id from a URI like federa://items/{id}.
// The colon may be percent-encoded.
func extractItemID(uri string) string {
	const prefix = uriScheme + "items/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return id
}
