// Package browse provides the query and results view of the catalog browser.
package browse

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/federa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driving"
)

// View holds the filter input, the item list and the status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.FilterInput
	list      *list.ItemList
	statusbar *status.Bar

	federation driving.FederationService
	ctx        context.Context

	filter   domain.RawFilter
	cursor   domain.ResumeCursor
	more     bool
	pages    int
	querying bool

	width       int
	height      int
	ready       bool
	err         error
	focusInput  bool // typing a filter rather than navigating results
	showDetails bool
}

// NewView creates a new browse view.
func NewView(s *styles.Styles, km *keymap.KeyMap, federation driving.FederationService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewFilterInput(s),
		list:       list.NewItemList(s),
		statusbar:  status.NewBar(s, km),
		federation: federation,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context queries run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the browse view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	if v.focusInput {
		switch {
		case keymap.Matches(k, v.keymap.Submit):
			return v, v.submit()
		case keymap.Matches(k, v.keymap.Back):
			if !v.list.IsEmpty() {
				v.focusInput = false
				v.input.Blur()
			}
			return v, nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(k, v.keymap.Quit):
		return v, tea.Quit
	case keymap.Matches(k, v.keymap.Back):
		if v.showDetails {
			v.showDetails = false
			return v, nil
		}
		v.focusInput = true
		return v, v.input.Focus()
	case keymap.Matches(k, v.keymap.Details):
		if v.list.SelectedItem() != nil {
			v.showDetails = !v.showDetails
		}
	case keymap.Matches(k, v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(k, v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(k, v.keymap.NextPage):
		return v, v.NextPage()
	case keymap.Matches(k, v.keymap.NewQuery):
		v.showDetails = false
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case keymap.Matches(k, v.keymap.Sources):
		return v, changeView(messages.ViewSources)
	case keymap.Matches(k, v.keymap.Help):
		return v, changeView(messages.ViewHelp)
	}
	return v, nil
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg {
		return messages.ViewChanged{View: view}
	}
}

// submit parses the filter expression and starts the first page.
func (v *View) submit() tea.Cmd {
	if v.querying {
		return nil
	}
	raw, err := input.ParseFilter(v.input.Value())
	if err != nil {
		v.setError(err)
		return nil
	}
	v.err = nil
	v.filter = raw
	v.cursor = nil
	v.more = false
	v.showDetails = false
	return v.run(nil, false)
}

// NextPage fetches the page after the last one, if the query has more.
func (v *View) NextPage() tea.Cmd {
	if v.querying || !v.more {
		return nil
	}
	return v.run(v.cursor, true)
}

func (v *View) run(cursor domain.ResumeCursor, next bool) tea.Cmd {
	v.querying = true
	v.statusbar.SetState(status.StateQuerying)

	federation, ctx, raw := v.federation, v.ctx, v.filter
	return func() tea.Msg {
		if federation == nil {
			return messages.QueryCompleted{Next: next, Err: ErrNoFederationService}
		}
		page, err := federation.Query(ctx, raw, cursor)
		if err != nil {
			return messages.QueryCompleted{Next: next, Err: err}
		}
		return messages.QueryCompleted{
			Items:  page.Items,
			Cursor: page.Cursor,
			More:   len(page.Cursor) > 0,
			Failed: page.Failed(),
			Next:   next,
		}
	}
}

func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	v.querying = false
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	if msg.Next {
		v.list.AppendItems(msg.Items)
		v.pages++
	} else {
		v.list.SetItems(msg.Items)
		v.pages = 1
	}
	v.cursor = msg.Cursor
	v.more = msg.More

	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetMessage("")
	v.statusbar.SetProgress(v.list.Count(), v.pages, v.more, msg.Failed)

	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the browse view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("Federa"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View())

	if v.showDetails {
		if item := v.list.SelectedItem(); item != nil {
			sections = append(sections, "", v.renderDetails(item))
		}
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderDetails(item *domain.Item) string {
	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", v.styles.Muted.Render(fmt.Sprintf("%-12s", label)), value)
	}

	row("ID", v.styles.Identifier.Render(item.ID.String()))
	row("Name", item.Name)
	row("Created", item.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	row("Issuer", item.Issuer)
	row("Owners", strings.Join(item.Owners, ", "))
	row("MIME type", item.MimeType)
	row("URI", item.URI)
	row("Source", item.Source)
	row("Description", item.Description)

	keys := make([]string, 0, len(item.Attributes))
	for k := range item.Attributes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		row(k, fmt.Sprint(item.Attributes[k]))
	}

	return v.styles.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	// header, input and status bar
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Filter returns the expression in the input.
func (v *View) Filter() string {
	return v.input.Value()
}

// SetFilter sets the expression in the input.
func (v *View) SetFilter(expr string) {
	v.input.SetValue(expr)
}

// Items returns the listed items.
func (v *View) Items() []domain.Item {
	return v.list.Items()
}

// SelectedItem returns the selected item.
func (v *View) SelectedItem() *domain.Item {
	return v.list.SelectedItem()
}

// More reports whether a further page exists.
func (v *View) More() bool {
	return v.more
}

// Pages returns the number of pages fetched for the current query.
func (v *View) Pages() int {
	return v.pages
}

// Querying reports whether a query is in flight.
func (v *View) Querying() bool {
	return v.querying
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the filter input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// DetailsShown returns whether the details panel is open.
func (v *View) DetailsShown() bool {
	return v.showDetails
}
