package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/logger"
)

// FailurePolicy selects how a source error affects a query.
type FailurePolicy string

const (
	// FailOnError fails the whole query with the first source error.
	FailOnError FailurePolicy = "fail"

	// PartialResults reports source errors per source and aggregates the rest.
	PartialResults FailurePolicy = "partial"
)

// ParseFailurePolicy parses a configured policy name. Empty means FailOnError.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailOnError:
		return FailOnError, nil
	case PartialResults:
		return PartialResults, nil
	}
	return "", &domain.ConfigurationError{Reason: fmt.Sprintf("unknown failure policy %q", s)}
}

// fetchResult is the outcome of one routed fetch.
type fetchResult struct {
	items   []domain.Item
	err     error
	elapsed time.Duration
}

// Orchestrator dispatches routed queries to sources concurrently.
type Orchestrator struct {
	policy   FailurePolicy
	observer driven.FetchObserver
}

// NewOrchestrator creates an orchestrator. observer may be nil.
func NewOrchestrator(policy FailurePolicy, observer driven.FetchObserver) *Orchestrator {
	return &Orchestrator{policy: policy, observer: observer}
}

// Dispatch runs one Fetch per dispatched route and waits for all of them.
// Results are indexed like routes; skipped routes leave an empty slot.
// In-flight fetches are never cancelled when another fails.
func (o *Orchestrator) Dispatch(
	ctx context.Context, sources map[string]driven.Source, routes []Route,
) ([]fetchResult, error) {
	for _, route := range routes {
		if _, ok := sources[route.Key]; route.Dispatch && !ok {
			return nil, &domain.ConfigurationError{SourceKey: route.Key, Reason: "routed to unknown source"}
		}
	}

	results := make([]fetchResult, len(routes))

	var g errgroup.Group
	for i, route := range routes {
		if !route.Dispatch {
			continue
		}
		src := sources[route.Key]
		g.Go(func() error {
			start := time.Now()
			items, err := src.Fetch(ctx, route.Query)
			elapsed := time.Since(start)

			if err == nil && len(items) > route.Query.Limit {
				logger.Warn("Source %s returned %d items for limit %d, truncating", route.Key, len(items), route.Query.Limit)
				items = items[:route.Query.Limit]
			}
			if o.observer != nil {
				o.observer.ObserveFetch(route.Key, elapsed, len(items), err)
			}

			results[i] = fetchResult{items: items, err: err, elapsed: elapsed}
			if err != nil {
				logger.Warn("Source %s failed after %s: %v", route.Key, elapsed, err)
				if o.policy != PartialResults {
					return &domain.SourceFetchError{SourceKey: route.Key, Err: err}
				}
				return nil
			}
			logger.Debug("Source %s returned %d items in %s", route.Key, len(items), elapsed)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
