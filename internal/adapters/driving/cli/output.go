package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/federa/internal/core/domain"
)

// Output colours.
var (
	colourAccent = lipgloss.Color("#7C3AED") // Purple
	colourMuted  = lipgloss.Color("#6C7086") // Medium gray
	colourError  = lipgloss.Color("#F38BA8") // Red
)

// printer writes query results, styled when stdout is a terminal.
type printer struct {
	w      io.Writer
	styled bool
	shown  int

	title lipgloss.Style
	id    lipgloss.Style
	muted lipgloss.Style
	fail  lipgloss.Style
}

func newPrinter(cmd *cobra.Command) *printer {
	return &printer{
		w:      cmd.OutOrStdout(),
		styled: isTerminal(cmd.OutOrStdout()),
		title:  lipgloss.NewStyle().Bold(true),
		id:     lipgloss.NewStyle().Foreground(colourAccent),
		muted:  lipgloss.NewStyle().Foreground(colourMuted),
		fail:   lipgloss.NewStyle().Foreground(colourError),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// page prints one page of items followed by its cursor.
func (p *printer) page(page *domain.Page, cursor string) {
	if len(page.Items) == 0 && p.shown == 0 {
		fmt.Fprintln(p.w, "No items found.")
	}
	for i := range page.Items {
		p.shown++
		p.item(p.shown, page.Items[i])
	}

	for _, key := range page.Failed() {
		fmt.Fprintln(p.w, p.render(p.fail, fmt.Sprintf("Source %s failed: %s", key, page.Sources[key].Error)))
	}
	if cursor != "" {
		fmt.Fprintln(p.w, p.render(p.muted, "Next page: --cursor "+cursor))
	}
}

func (p *printer) item(n int, it domain.Item) {
	title := it.Name
	if title == "" {
		title = string(it.ID)
	}
	fmt.Fprintf(p.w, "  [%d] %s  %s\n", n, p.render(p.title, title), p.render(p.id, string(it.ID)))

	details := []string{formatTime(it.CreatedAt), "source " + it.Source}
	if it.MimeType != "" {
		details = append(details, it.MimeType)
	}
	fmt.Fprintf(p.w, "      %s\n", p.render(p.muted, strings.Join(details, " · ")))
	if it.Issuer != "" {
		fmt.Fprintf(p.w, "      Issuer: %s\n", it.Issuer)
	}
	if len(it.Owners) > 0 {
		fmt.Fprintf(p.w, "      Owners: %s\n", strings.Join(it.Owners, ", "))
	}
}

// done prints the end marker for an already exhausted cursor.
func (p *printer) done() {
	fmt.Fprintln(p.w, "No more items.")
}

type jsonPage struct {
	Items   []domain.Item                  `json:"items"`
	Cursor  string                         `json:"cursor,omitempty"`
	More    bool                           `json:"more"`
	Sources map[string]domain.SourceStatus `json:"sources"`
}

// pageJSON prints one page as an indented JSON object.
func (p *printer) pageJSON(page *domain.Page, cursor string) error {
	out := jsonPage{Items: page.Items, Cursor: cursor, More: cursor != "", Sources: page.Sources}
	if out.Items == nil {
		out.Items = []domain.Item{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}
	fmt.Fprintln(p.w, string(data))
	return nil
}
