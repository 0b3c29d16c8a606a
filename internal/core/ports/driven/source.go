package driven

import (
	"context"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// Source serves scoped queries against one data source.
// Each source type (memory, sqlite, postgres, graphql, github) implements
// this interface.
type Source interface {
	// Key returns the stable, unique source key.
	Key() string

	// Descriptor returns the namespaces the source serves.
	Descriptor() domain.SourceDescriptor

	// Fetch returns at most q.Limit items matching q, ordered by q.Sort
	// when a sort field is set.
	// Sources that cannot serve q return a *domain.UnsupportedOperationError.
	Fetch(ctx context.Context, q domain.Query) ([]domain.Item, error)
}
