package domain

import (
	"maps"
	"slices"
	"time"
)

// Item is a normalised catalog record.
// Only ID and CreatedAt are interpreted by the federation core.
type Item struct {
	// ID is the globally unique namespace:item identifier.
	ID CanonicalID `json:"id"`

	// CreatedAt is the creation time used for sorting and cursors.
	CreatedAt time.Time `json:"createdAt"`

	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	MimeType    string   `json:"mimeType,omitempty"`
	Issuer      string   `json:"issuer,omitempty"`
	Owners      []string `json:"owners,omitempty"`
	URI         string   `json:"uri,omitempty"`

	// Source is the key of the source that supplied this record.
	// Set by the federation core after deduplication.
	Source string `json:"source,omitempty"`

	// Attributes holds source-specific payload, opaque to the core.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Clone returns a copy of the item with its own Owners and Attributes.
func (i Item) Clone() Item {
	out := i
	out.Owners = slices.Clone(i.Owners)
	if i.Attributes != nil {
		out.Attributes = maps.Clone(i.Attributes)
	}
	return out
}
