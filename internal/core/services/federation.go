package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/core/ports/driving"
	"github.com/custodia-labs/federa/internal/logger"
)

// Ensure FederationService implements the interface.
var _ driving.FederationService = (*FederationService)(nil)

// snapshot is one immutable source configuration.
type snapshot struct {
	keys    []string
	sources map[string]driven.Source
	descs   []domain.SourceDescriptor
	router  *Router
}

// FederationService answers queries across the configured sources.
// Queries share a read-only snapshot of the configuration and may run
// concurrently with each other and with reconfiguration.
type FederationService struct {
	mu       sync.RWMutex
	current  *snapshot
	policy   FailurePolicy
	observer driven.FetchObserver
}

// Option configures a FederationService.
type Option func(*FederationService)

// WithFailurePolicy sets how source errors affect a query.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(s *FederationService) {
		s.policy = p
	}
}

// WithObserver reports fetch and query timings to o.
func WithObserver(o driven.FetchObserver) Option {
	return func(s *FederationService) {
		s.observer = o
	}
}

// NewFederationService creates a service with no sources configured.
func NewFederationService(opts ...Option) *FederationService {
	s := &FederationService{policy: FailOnError}
	for _, opt := range opts {
		opt(s)
	}
	s.current = buildSnapshot(nil)
	return s
}

// SetFailurePolicy changes the failure policy for subsequent queries.
func (s *FederationService) SetFailurePolicy(p FailurePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

// Configure replaces the active source set and rebuilds the index.
// Duplicate, empty or missing keys are rejected and leave the previous
// configuration in place.
func (s *FederationService) Configure(sources []driven.Source) error {
	if err := validateSources(sources); err != nil {
		return err
	}
	snap := buildSnapshot(sources)

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	logger.Info("Configured %d sources: %v", len(snap.keys), snap.keys)
	return nil
}

// AddSource appends a source to the active set.
func (s *FederationService) AddSource(source driven.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.current.ordered(), source)
	if err := validateSources(next); err != nil {
		return err
	}
	s.current = buildSnapshot(next)
	logger.Info("Added source %s", source.Key())
	return nil
}

// RemoveSource drops the source with the given key.
func (s *FederationService) RemoveSource(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.current.sources[key]; !ok {
		return fmt.Errorf("source %q: %w", key, domain.ErrNotFound)
	}
	next := slices.DeleteFunc(s.current.ordered(), func(src driven.Source) bool {
		return src.Key() == key
	})
	s.current = buildSnapshot(next)
	logger.Info("Removed source %s", key)
	return nil
}

// Sources returns the active descriptors in configuration order.
func (s *FederationService) Sources() []domain.SourceDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.current.descs)
}

// Source returns the configured source with the given key.
func (s *FederationService) Source(key string) (driven.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.current.sources[key]
	return src, ok
}

// Query normalises raw and runs it.
func (s *FederationService) Query(
	ctx context.Context, raw domain.RawFilter, cursor domain.ResumeCursor,
) (*domain.Page, error) {
	q, err := NormalizeQuery(raw)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, q, cursor)
}

// Execute runs a structured query. A zero limit or sort takes the default.
func (s *FederationService) Execute(
	ctx context.Context, q domain.Query, cursor domain.ResumeCursor,
) (*domain.Page, error) {
	q = applyDefaults(q)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, q, cursor)
}

func (s *FederationService) run(
	ctx context.Context, q domain.Query, cursor domain.ResumeCursor,
) (*domain.Page, error) {
	s.mu.RLock()
	snap := s.current
	policy := s.policy
	s.mu.RUnlock()

	queryID := driving.QueryIDFromContext(ctx)
	if queryID == "" {
		queryID = uuid.NewString()
	}
	log := logger.With("query " + shortID(queryID))
	start := time.Now()

	logger.Section("Federated Query " + queryID)
	log.Debug("Limit: %d, sort: %s %s, cursor sources: %d", q.Limit, q.Sort.Field, q.Sort.Direction, len(cursor))

	page, err := s.execute(ctx, log, snap, policy, q, cursor)

	elapsed := time.Since(start)
	if s.observer != nil {
		n := 0
		if page != nil {
			n = len(page.Items)
		}
		s.observer.ObserveQuery(elapsed, n, err)
	}
	if err != nil {
		log.Warn("Failed after %s: %v", elapsed, err)
		return nil, err
	}
	log.Debug("Returned %d items, %d sources to continue, in %s", len(page.Items), len(page.Cursor), elapsed)
	return page, nil
}

func (s *FederationService) execute(
	ctx context.Context, log logger.Scope, snap *snapshot, policy FailurePolicy,
	q domain.Query, cursor domain.ResumeCursor,
) (*domain.Page, error) {
	routes, err := snap.router.Plan(q, cursor)
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		if r.Dispatch {
			log.Debug("Route %s: dispatch", r.Key)
		} else {
			log.Debug("Route %s: skip (%s)", r.Key, r.Reason)
		}
	}

	results, err := NewOrchestrator(policy, s.observer).Dispatch(ctx, snap.sources, routes)
	if err != nil {
		return nil, err
	}
	return Paginate(q, routes, results), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func validateSources(sources []driven.Source) error {
	seen := make(map[string]bool, len(sources))
	for i, src := range sources {
		if src == nil {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("source %d is nil", i)}
		}
		key := src.Key()
		if key == "" {
			return &domain.ConfigurationError{Reason: "missing source key"}
		}
		if seen[key] {
			return &domain.ConfigurationError{SourceKey: key, Reason: "duplicate source key"}
		}
		seen[key] = true

		desc := src.Descriptor()
		if desc.Key != key {
			return &domain.ConfigurationError{
				SourceKey: key,
				Reason:    fmt.Sprintf("descriptor key %q does not match source key", desc.Key),
			}
		}
		if err := desc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func buildSnapshot(sources []driven.Source) *snapshot {
	snap := &snapshot{
		keys:    make([]string, 0, len(sources)),
		sources: make(map[string]driven.Source, len(sources)),
		descs:   make([]domain.SourceDescriptor, 0, len(sources)),
	}
	for _, src := range sources {
		snap.keys = append(snap.keys, src.Key())
		snap.sources[src.Key()] = src
		snap.descs = append(snap.descs, src.Descriptor())
	}
	snap.router = NewRouter(NewCompatibilityIndex(snap.descs), snap.keys)
	return snap
}

// ordered returns a fresh slice of the sources in configuration order.
func (snap *snapshot) ordered() []driven.Source {
	out := make([]driven.Source, 0, len(snap.keys))
	for _, k := range snap.keys {
		out = append(out, snap.sources[k])
	}
	return out
}
