package sqlite

import (
	"context"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Source serves federation queries from a Store.
type Source struct {
	desc  domain.SourceDescriptor
	store *Store
}

// NewSource exposes store under desc.
func NewSource(desc domain.SourceDescriptor, store *Store) *Source {
	return &Source{desc: desc, store: store}
}

// Key returns the source key.
func (s *Source) Key() string { return s.desc.Key }

// Descriptor returns the routing descriptor.
func (s *Source) Descriptor() domain.SourceDescriptor { return s.desc }

// Fetch runs q against the catalog.
func (s *Source) Fetch(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	if s.store == nil {
		return nil, errClosed
	}
	return s.store.query(ctx, q)
}

// Close closes the underlying store. A source without a store has nothing
// to close.
func (s *Source) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
