// Package tui provides the interactive catalog browser.
package tui

import (
	"github.com/custodia-labs/federa/internal/core/ports/driving"
)

// Ports aggregates the driving ports the browser needs.
type Ports struct {
	// Federation answers catalog queries.
	Federation driving.FederationService
}

// NewPorts creates a new Ports aggregate.
func NewPorts(federation driving.FederationService) *Ports {
	return &Ports{Federation: federation}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Federation == nil {
		return ErrMissingFederationService
	}
	return nil
}
