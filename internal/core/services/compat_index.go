package services

import (
	"slices"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// CompatibilityIndex maps identifier namespaces to the sources serving them.
// It is built once per source set and never mutated afterwards.
type CompatibilityIndex struct {
	owners    map[string]string
	wildcards []domain.SourceDescriptor
}

// NewCompatibilityIndex builds the index from descriptors in configuration
// order. The first source declaring a namespace owns it.
func NewCompatibilityIndex(descriptors []domain.SourceDescriptor) *CompatibilityIndex {
	idx := &CompatibilityIndex{owners: make(map[string]string)}
	for _, d := range descriptors {
		for _, ns := range d.Namespaces {
			if _, claimed := idx.owners[ns]; !claimed {
				idx.owners[ns] = d.Key
			}
		}
		if d.Wildcard {
			w := d
			w.Exclude = slices.Clone(d.Exclude)
			idx.wildcards = append(idx.wildcards, w)
		}
	}
	return idx
}

// Resolve returns the keys of the sources to query for namespace: the
// explicit owner if one exists, otherwise every wildcard source not
// excluding the namespace, otherwise nothing.
func (idx *CompatibilityIndex) Resolve(namespace string) []string {
	if key, ok := idx.owners[namespace]; ok {
		return []string{key}
	}
	var keys []string
	for _, w := range idx.wildcards {
		if w.Excludes(namespace) {
			continue
		}
		keys = append(keys, w.Key)
	}
	return keys
}

// Owner returns the explicit owner of namespace, if any.
func (idx *CompatibilityIndex) Owner(namespace string) (string, bool) {
	key, ok := idx.owners[namespace]
	return key, ok
}

// Namespaces returns the explicitly claimed namespaces in lexical order.
func (idx *CompatibilityIndex) Namespaces() []string {
	out := make([]string, 0, len(idx.owners))
	for ns := range idx.owners {
		out = append(out, ns)
	}
	slices.Sort(out)
	return out
}
