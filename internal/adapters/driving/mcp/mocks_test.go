package mcp

import (
	"context"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
)

// mockFederationService is a mock implementation of driving.FederationService.
type mockFederationService struct {
	descs []domain.SourceDescriptor
	page  *domain.Page
	err   error

	lastRaw    domain.RawFilter
	lastCursor domain.ResumeCursor
	queries    int
}

func (m *mockFederationService) Configure(_ []driven.Source) error { return m.err }

func (m *mockFederationService) AddSource(_ driven.Source) error { return m.err }

func (m *mockFederationService) RemoveSource(_ string) error { return m.err }

func (m *mockFederationService) Sources() []domain.SourceDescriptor { return m.descs }

func (m *mockFederationService) Query(
	_ context.Context, raw domain.RawFilter, cursor domain.ResumeCursor,
) (*domain.Page, error) {
	m.queries++
	m.lastRaw = raw
	m.lastCursor = cursor
	if m.err != nil {
		return nil, m.err
	}
	if m.page == nil {
		return &domain.Page{Cursor: domain.ResumeCursor{}}, nil
	}
	return m.page, nil
}

func (m *mockFederationService) Execute(
	ctx context.Context, _ domain.Query, cursor domain.ResumeCursor,
) (*domain.Page, error) {
	return m.Query(ctx, nil, cursor)
}
