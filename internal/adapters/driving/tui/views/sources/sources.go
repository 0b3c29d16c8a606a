// Package sources provides the configured sources view of the catalog browser.
package sources

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/federa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driving"
)

// ErrNoFederationService indicates that no federation service was provided.
var ErrNoFederationService = errors.New("federation service is required")

// View lists the active sources and their routing.
type View struct {
	styles     *styles.Styles
	federation driving.FederationService

	sources  []domain.SourceDescriptor
	selected int
	width    int
	height   int
	err      error
}

// NewView creates a new sources view.
func NewView(s *styles.Styles, federation driving.FederationService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:     s,
		federation: federation,
	}
}

// Init loads the source descriptors.
func (v *View) Init() tea.Cmd {
	federation := v.federation
	return func() tea.Msg {
		if federation == nil {
			return messages.ErrorOccurred{Err: ErrNoFederationService}
		}
		return messages.SourcesLoaded{Sources: federation.Sources()}
	}
}

// Update handles messages for the sources view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.SourcesLoaded:
		v.sources = msg.Sources
		v.err = nil
		if v.selected >= len(v.sources) {
			v.selected = max(len(v.sources)-1, 0)
		}

	case messages.ErrorOccurred:
		v.err = msg.Err

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
		case "down", "j":
			if v.selected < len(v.sources)-1 {
				v.selected++
			}
		case "r":
			return v, v.Init()
		case "esc":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewBrowse}
			}
		}
	}
	return v, nil
}

// View renders the source list.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Sources"))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.sources) == 0:
		b.WriteString(v.styles.Muted.Render("No sources configured."))
	default:
		for i, d := range v.sources {
			b.WriteString(v.renderSource(i, d))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("[r] reload  [esc] back"))
	return b.String()
}

func (v *View) renderSource(index int, d domain.SourceDescriptor) string {
	namespaces := strings.Join(d.Namespaces, ", ")
	if d.Wildcard {
		namespaces = strings.TrimPrefix(namespaces+", "+domain.NamespaceWildcard, ", ")
	}
	line := fmt.Sprintf("%-16s %s", d.Key, namespaces)
	if len(d.Exclude) > 0 {
		line += "  excludes " + strings.Join(d.Exclude, ", ")
	}

	if index == v.selected {
		return v.styles.Selected.Render("> " + line)
	}
	return v.styles.Normal.Render("  " + line)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Sources returns the loaded descriptors.
func (v *View) Sources() []domain.SourceDescriptor {
	return v.sources
}

// Selected returns the selected index.
func (v *View) Selected() int {
	return v.selected
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
