package domain

import "strings"

// CanonicalIDSeparator splits a CanonicalID into namespace and item.
const CanonicalIDSeparator = ":"

// CanonicalID is the globally unique "namespace:item" identifier of an item.
// The namespace identifies the owning collection (e.g. a contract address),
// the item part is unique within that namespace.
type CanonicalID string

// NewCanonicalID joins namespace and item.
func NewCanonicalID(namespace, item string) CanonicalID {
	return CanonicalID(namespace + CanonicalIDSeparator + item)
}

// ParseCanonicalID splits id at the first separator.
// Both parts must be non-empty.
func ParseCanonicalID(id string) (namespace, item string, err error) {
	idx := strings.Index(id, CanonicalIDSeparator)
	if idx <= 0 || idx == len(id)-1 {
		return "", "", NewValidationError(string(FieldID), "malformed canonical id %q, want namespace:item", id)
	}
	return id[:idx], id[idx+1:], nil
}

// Namespace returns the namespace part, or "" if the id is malformed.
func (id CanonicalID) Namespace() string {
	ns, _, err := ParseCanonicalID(string(id))
	if err != nil {
		return ""
	}
	return ns
}

// Item returns the item part, or "" if the id is malformed.
func (id CanonicalID) Item() string {
	_, item, err := ParseCanonicalID(string(id))
	if err != nil {
		return ""
	}
	return item
}

// Valid reports whether id has both a namespace and an item part.
func (id CanonicalID) Valid() bool {
	_, _, err := ParseCanonicalID(string(id))
	return err == nil
}

// String implements fmt.Stringer.
func (id CanonicalID) String() string {
	return string(id)
}
