package domain

import "slices"

// NamespaceWildcard declares a source serving any namespace not explicitly
// claimed by another source.
const NamespaceWildcard = "*"

// SourceDescriptor is the routing identity of a configured source.
type SourceDescriptor struct {
	// Key is the stable, unique source key.
	Key string

	// Namespaces are the identifier namespaces the source serves explicitly.
	Namespaces []string

	// Wildcard marks a fallback source for unclaimed namespaces.
	Wildcard bool

	// Exclude lists namespaces a wildcard source must not be routed for.
	Exclude []string
}

// Serves reports whether the descriptor explicitly declares namespace.
func (d SourceDescriptor) Serves(namespace string) bool {
	return slices.Contains(d.Namespaces, namespace)
}

// Excludes reports whether namespace is on the wildcard exclusion list.
func (d SourceDescriptor) Excludes(namespace string) bool {
	return slices.Contains(d.Exclude, namespace)
}

// Validate checks that the descriptor has a key.
func (d SourceDescriptor) Validate() error {
	if d.Key == "" {
		return &ConfigurationError{Reason: "missing source key"}
	}
	for _, ns := range d.Namespaces {
		if ns == "" {
			return &ConfigurationError{SourceKey: d.Key, Reason: "empty namespace"}
		}
	}
	return nil
}

// NewSourceDescriptor builds a descriptor from a namespace list in which
// NamespaceWildcard marks the source as a wildcard.
func NewSourceDescriptor(key string, namespaces []string, exclude ...string) SourceDescriptor {
	d := SourceDescriptor{Key: key, Exclude: slices.Clone(exclude)}
	for _, ns := range namespaces {
		if ns == NamespaceWildcard {
			d.Wildcard = true
			continue
		}
		d.Namespaces = append(d.Namespaces, ns)
	}
	return d
}
