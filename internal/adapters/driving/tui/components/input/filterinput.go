// Package input provides the query input component for the catalog browser.
package input

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/federa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/federa/internal/core/domain"
)

// FilterInput wraps a bubbles textinput holding a filter expression.
type FilterInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewFilterInput creates a new filter input component.
func NewFilterInput(s *styles.Styles) *FilterInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "owner:tz1... mime:image/png  (empty = newest items)"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 50

	return &FilterInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the input.
func (f *FilterInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (f *FilterInput) Update(msg tea.Msg) (*FilterInput, tea.Cmd) {
	var cmd tea.Cmd
	f.textinput, cmd = f.textinput.Update(msg)
	return f, cmd
}

// View renders the input.
func (f *FilterInput) View() string {
	label := f.styles.Title.Render("Filter: ")
	field := f.styles.InputField.Render(f.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current expression.
func (f *FilterInput) Value() string {
	return f.textinput.Value()
}

// SetValue sets the expression.
func (f *FilterInput) SetValue(value string) {
	f.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (f *FilterInput) Focus() tea.Cmd {
	return f.textinput.Focus()
}

// Blur removes focus from the input.
func (f *FilterInput) Blur() {
	f.textinput.Blur()
}

// Focused returns whether the input is focused.
func (f *FilterInput) Focused() bool {
	return f.textinput.Focused()
}

// SetWidth sets the width of the input.
func (f *FilterInput) SetWidth(width int) {
	f.width = width
	// label and border
	f.textinput.Width = max(width-14, 20)
}

// Width returns the current width.
func (f *FilterInput) Width() int {
	return f.width
}

// fieldKeys maps expression keys onto raw filter fields.
var fieldKeys = map[string]domain.Field{
	"id":       domain.FieldID,
	"tid":      domain.FieldID,
	"owner":    domain.FieldOwner,
	"issuer":   domain.FieldIssuer,
	"mime":     domain.FieldMimeType,
	"mimeType": domain.FieldMimeType,
}

// ParseFilter parses a filter expression into a raw filter.
//
// Terms are separated by spaces and take the form key:value. Field keys are
// id, owner, issuer and mime; repeating one matches any of its values and a
// leading "-" excludes the value instead. limit, order (asc, desc or none),
// after and before set the paging options. A term whose key is not known is
// taken as a canonical id, so "KT1abc:7" alone looks up one item.
func ParseFilter(expr string) (domain.RawFilter, error) {
	raw := domain.RawFilter{}
	include := make(map[domain.Field][]string)
	exclude := make(map[domain.Field][]string)

	for _, term := range strings.Fields(expr) {
		negated := false
		if rest, ok := strings.CutPrefix(term, "-"); ok {
			negated = true
			term = rest
		}

		key, value, ok := strings.Cut(term, ":")
		if !ok || value == "" {
			return nil, domain.NewValidationError("", "term %q is not key:value", term)
		}

		field, isField := fieldKeys[key]
		if !isField {
			if isOption(key) {
				if negated {
					return nil, domain.NewValidationError(key, "cannot be negated")
				}
				if err := setOption(raw, key, value); err != nil {
					return nil, err
				}
				continue
			}
			field, value = domain.FieldID, term
		}

		if negated {
			exclude[field] = append(exclude[field], value)
		} else {
			include[field] = append(include[field], value)
		}
	}

	for _, field := range domain.Fields {
		in, out := include[field], exclude[field]
		switch {
		case len(in) > 0 && len(out) > 0:
			return nil, domain.NewValidationError(string(field), "cannot both match and exclude values")
		case len(in) == 1:
			raw[string(field)] = in[0]
		case len(in) > 1:
			raw[string(field)] = in
		case len(out) == 1:
			raw[string(field)] = map[string]any{"$neq": out[0]}
		case len(out) > 1:
			raw[string(field)] = map[string]any{"$nin": out}
		}
	}
	return raw, nil
}

func isOption(key string) bool {
	switch key {
	case "limit", "order", "after", "before":
		return true
	}
	return false
}

func setOption(raw domain.RawFilter, key, value string) error {
	switch key {
	case "limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return domain.NewValidationError("limit", "not a number: %q", value)
		}
		raw["limit"] = n
	case "order":
		if value == "none" {
			raw["orderBy"] = map[string]any{}
		} else {
			raw["orderBy"] = value
		}
	case "after", "before":
		raw[key] = value
	}
	return nil
}
