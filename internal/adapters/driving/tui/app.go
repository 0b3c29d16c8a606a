package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/federa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/views/browse"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/views/sources"
)

// App is the browser model following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	browseView  *browse.View
	sourcesView *sources.View

	currentView messages.ViewType

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates a new browser with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		browseView:  browse.NewView(s, km, ports.Federation),
		sourcesView: sources.NewView(s, ports.Federation),
		currentView: messages.ViewBrowse,
	}, nil
}

// WithContext sets the context queries run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.browseView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("federa"),
		a.browseView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.currentView {
		case messages.ViewBrowse:
			a.browseView, cmd = a.browseView.Update(msg)
		case messages.ViewSources:
			a.sourcesView, cmd = a.sourcesView.Update(msg)
		case messages.ViewHelp:
			if keymap.Matches(msg.String(), a.keymap.Back) || keymap.Matches(msg.String(), a.keymap.Help) {
				a.currentView = messages.ViewBrowse
			}
		}
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewSources {
			return a, a.sourcesView.Init()
		}
		return a, nil

	case messages.QueryCompleted:
		a.browseView, cmd = a.browseView.Update(msg)
		return a, cmd

	case messages.SourcesLoaded:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		if a.currentView == messages.ViewSources {
			a.sourcesView, cmd = a.sourcesView.Update(msg)
		} else {
			a.browseView, cmd = a.browseView.Update(msg)
		}
		return a, cmd
	}

	if a.currentView == messages.ViewBrowse {
		a.browseView, cmd = a.browseView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSources:
		return a.sourcesView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.browseView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Filter expressions:
  owner:tz1...        items held by an owner
  issuer:KT1...       items from an issuer
  mime:image/png      items of a MIME type
  id:KT1abc:7         one item (or just KT1abc:7)
  -owner:tz1...       exclude a value; repeat a key to match any
  limit:20 order:asc  page size and creation order (asc, desc, none)
  after:2024-01-01T00:00:00Z before:...

Results:
  j/k, ↑/↓    move
  enter       toggle details
  n           next page
  /           new query
  s           sources
  q           quit

[esc] back`
}

// Run starts the browser on the terminal's alternate screen.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Browse returns the browse view.
func (a *App) Browse() *browse.View {
	return a.browseView
}

// Sources returns the sources view.
func (a *App) Sources() *sources.View {
	return a.sourcesView
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.browseView.SetDimensions(width, height)
	a.sourcesView.SetDimensions(width, height)
}
