package driving

import (
	"context"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
)

// FederationService answers queries across the configured sources.
type FederationService interface {
	// Configure replaces the active source set.
	// On error the previous configuration stays active.
	Configure(sources []driven.Source) error

	// AddSource appends a source to the active set.
	AddSource(source driven.Source) error

	// RemoveSource drops the source with the given key.
	// Returns domain.ErrNotFound if no such source is configured.
	RemoveSource(key string) error

	// Sources returns the descriptors of the active set in configuration order.
	Sources() []domain.SourceDescriptor

	// Query normalises raw and runs it, resuming from cursor when non-nil.
	Query(ctx context.Context, raw domain.RawFilter, cursor domain.ResumeCursor) (*domain.Page, error)

	// Execute runs an already structured query.
	Execute(ctx context.Context, q domain.Query, cursor domain.ResumeCursor) (*domain.Page, error)
}

type queryIDKey struct{}

// ContextWithQueryID makes queries run with ctx log under id instead of a
// generated one.
func ContextWithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey{}, id)
}

// QueryIDFromContext returns the id set by ContextWithQueryID, if any.
func QueryIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(queryIDKey{}).(string)
	return id
}
