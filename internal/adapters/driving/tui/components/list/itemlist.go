// Package list provides the item list component of the catalog browser.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/federa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/federa/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04"

// ItemList displays catalog items in a navigable list.
type ItemList struct {
	items    []domain.Item
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewItemList creates a new item list component.
func NewItemList(s *styles.Styles) *ItemList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ItemList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the item list.
func (l *ItemList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *ItemList) Update(msg tea.Msg) (*ItemList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the item list.
func (l *ItemList) View() string {
	if len(l.items) == 0 {
		return l.styles.Muted.Render("No items")
	}

	lines := make([]string, 0, len(l.items)+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Items (%d)", len(l.items))), "")

	// header and spacing take four lines
	visible := max(l.height-4, 1)

	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := min(start+visible, len(l.items))

	for i := start; i < end; i++ {
		lines = append(lines, l.renderItem(i, &l.items[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *ItemList) renderItem(index int, item *domain.Item) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	name := item.Name
	if name == "" {
		name = "(unnamed)"
	}
	id := item.ID.String()
	created := item.CreatedAt.UTC().Format(timeLayout)

	// id, date and separators
	nameWidth := max(l.width-len(id)-len(created)-10, 10)
	name = truncate(name, nameWidth)

	if index == l.selected {
		return l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s  %s", indicator, nameWidth, name, id, created))
	}
	return l.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, nameWidth, name)) +
		l.styles.Identifier.Render(id) + "  " +
		l.styles.Muted.Render(created)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// SetItems replaces the listed items and resets the selection.
func (l *ItemList) SetItems(items []domain.Item) {
	l.items = items
	l.selected = 0
}

// AppendItems adds a further page of items, keeping the selection.
func (l *ItemList) AppendItems(items []domain.Item) {
	l.items = append(l.items, items...)
}

// Items returns the listed items.
func (l *ItemList) Items() []domain.Item {
	return l.items
}

// Selected returns the index of the selected item.
func (l *ItemList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index.
func (l *ItemList) SetSelected(index int) {
	if index >= 0 && index < len(l.items) {
		l.selected = index
	}
}

// SelectedItem returns the selected item, or nil if the list is empty.
func (l *ItemList) SelectedItem() *domain.Item {
	if l.selected < 0 || l.selected >= len(l.items) {
		return nil
	}
	return &l.items[l.selected]
}

// MoveUp moves selection up.
func (l *ItemList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *ItemList) MoveDown() {
	if l.selected < len(l.items)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *ItemList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of listed items.
func (l *ItemList) Count() int {
	return len(l.items)
}

// IsEmpty returns whether the list is empty.
func (l *ItemList) IsEmpty() bool {
	return len(l.items) == 0
}
