package domain

import "slices"

// Page is the result of one federated query.
type Page struct {
	// Items are deduplicated, sorted and truncated to the query limit.
	Items []Item

	// Cursor continues every source that returned a full raw page.
	// Empty when all sources are exhausted.
	Cursor ResumeCursor

	// Sources reports per-source outcome, keyed by source key.
	Sources map[string]SourceStatus
}

// SourceStatus describes how one source took part in a query.
type SourceStatus struct {
	// Dispatched is false when routing skipped the source.
	Dispatched bool `json:"dispatched"`

	// Fetched is the raw row count returned by the source.
	Fetched int `json:"fetched"`

	// Exhausted is true when the source is absent from the next cursor.
	Exhausted bool `json:"exhausted"`

	// Reason explains a routing skip.
	Reason string `json:"reason,omitempty"`

	// Error holds the fetch error under the partial failure policy.
	Error string `json:"error,omitempty"`
}

// Failed returns the sorted keys of sources that reported an error.
func (p *Page) Failed() []string {
	var keys []string
	for k, s := range p.Sources {
		if s.Error != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// RawFilter is an unnormalised query as decoded from JSON or built by hand.
// Field values may be scalars, arrays or selector-shaped maps.
type RawFilter map[string]any
