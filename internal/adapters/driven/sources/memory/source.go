// Package memory provides an in-process catalog source.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.Source = (*Source)(nil)

// Source is an in-memory implementation of driven.Source.
type Source struct {
	desc  domain.SourceDescriptor
	mu    sync.RWMutex
	items map[domain.CanonicalID]domain.Item
}

// NewSource creates a source holding items.
func NewSource(desc domain.SourceDescriptor, items ...domain.Item) *Source {
	s := &Source{desc: desc, items: make(map[domain.CanonicalID]domain.Item, len(items))}
	for _, it := range items {
		s.items[it.ID] = it.Clone()
	}
	return s
}

// LoadFile creates a source from a JSON array of items.
func LoadFile(desc domain.SourceDescriptor, path string) (*Source, error) {
	items, err := ReadItems(path)
	if err != nil {
		return nil, err
	}
	return NewSource(desc, items...), nil
}

// ReadItems reads a JSON array of items and checks every id.
func ReadItems(path string) ([]domain.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items file: %w", err)
	}
	var items []domain.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse items file %s: %w", path, err)
	}
	for _, it := range items {
		if !it.ID.Valid() {
			return nil, fmt.Errorf("items file %s: %w",
				path, domain.NewValidationError("id", "malformed canonical id %q", it.ID))
		}
	}
	return items, nil
}

// Key returns the source key.
func (s *Source) Key() string { return s.desc.Key }

// Descriptor returns the routing descriptor.
func (s *Source) Descriptor() domain.SourceDescriptor { return s.desc }

// Put stores or replaces items.
func (s *Source) Put(items ...domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.ID] = it.Clone()
	}
}

// Delete removes the item with id.
func (s *Source) Delete(id domain.CanonicalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// Len returns the number of stored items.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Fetch returns the items matching q in q's sort order, at most q.Limit.
func (s *Source) Fetch(ctx context.Context, q domain.Query) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []domain.Item
	for _, it := range s.items {
		if q.Matches(it) {
			out = append(out, it.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, q.Sort.Compare)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
