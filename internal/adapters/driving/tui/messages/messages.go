// Package messages defines Bubbletea message types for the catalog browser.
package messages

import (
	"github.com/custodia-labs/federa/internal/core/domain"
)

// QueryCompleted carries one page of query results back to the model.
// More is false once every source is exhausted.
type QueryCompleted struct {
	Items  []domain.Item
	Cursor domain.ResumeCursor
	More   bool
	Failed []string
	Next   bool
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewBrowse is the query input and results view.
	ViewBrowse ViewType = iota
	// ViewSources lists the configured sources.
	ViewSources
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewBrowse:
		return "browse"
	case ViewSources:
		return "sources"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// SourcesLoaded carries the configured source descriptors.
type SourcesLoaded struct {
	Sources []domain.SourceDescriptor
}
