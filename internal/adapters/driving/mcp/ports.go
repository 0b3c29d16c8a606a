package mcp

import (
	"github.com/custodia-labs/federa/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Federation answers catalog queries.
	Federation driving.FederationService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Federation == nil {
		return ErrMissingFederationService
	}
	return nil
}
