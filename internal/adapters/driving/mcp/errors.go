// Package mcp provides an MCP (Model Context Protocol) server adapter for federa.
// It lets AI assistants run federated catalog queries and inspect the
// configured sources.
package mcp

import "errors"

// ErrMissingFederationService is returned when the federation service is not provided.
var ErrMissingFederationService = errors.New("mcp: federation service is required")
