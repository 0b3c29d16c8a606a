// Package status provides the status bar of the catalog browser.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/federa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/federa/internal/adapters/driving/tui/styles"
)

// State represents the current browser state for display.
type State string

const (
	StateReady    State = "ready"
	StateQuerying State = "querying"
	StateError    State = "error"
	StateHelp     State = "help"
	StateResults  State = "results"
)

// Bar displays query progress and keybinding hints.
type Bar struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	state     State
	message   string
	itemCount int
	pages     int
	more      bool
	failed    []string
	width     int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// updated through the setters
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := max(s.width-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateQuerying:
		return s.styles.Muted.Render("Querying...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Error: " + s.message)
		}
		return s.styles.Error.Render("Error")
	case StateHelp:
		return s.styles.Normal.Render("Help")
	case StateReady, StateResults:
		if s.pages == 0 {
			return s.styles.Muted.Render("Ready")
		}
		return s.renderProgress()
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderProgress() string {
	text := fmt.Sprintf("%d items, %d pages", s.itemCount, s.pages)
	if s.pages == 1 {
		text = fmt.Sprintf("%d items, 1 page", s.itemCount)
	}
	out := s.styles.Normal.Render(text)
	if s.more {
		out += s.styles.Muted.Render(" (more)")
	} else {
		out += s.styles.Success.Render(" (end)")
	}
	if len(s.failed) > 0 {
		out += s.styles.Warning.Render(" failed: " + strings.Join(s.failed, ", "))
	}
	return out
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateResults && s.itemCount > 0 {
		bindings = s.keymap.ResultsHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetProgress records the listed item count, fetched pages, whether a
// further page exists and which sources failed on the last page.
func (s *Bar) SetProgress(items, pages int, more bool, failed []string) {
	s.itemCount = items
	s.pages = pages
	s.more = more
	s.failed = failed
}

// ItemCount returns the listed item count.
func (s *Bar) ItemCount() int {
	return s.itemCount
}

// Pages returns the number of fetched pages.
func (s *Bar) Pages() int {
	return s.pages
}

// More reports whether a further page exists.
func (s *Bar) More() bool {
	return s.more
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Clear resets the status bar to its initial state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.itemCount = 0
	s.pages = 0
	s.more = false
	s.failed = nil
}
