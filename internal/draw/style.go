package draw

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the text styles of the HUD and menus.
type Styles struct {
	Title    lipgloss.Style
	Accent   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Selected lipgloss.Style
	Panel    lipgloss.Style
}

// NewStyles builds the styles for output written to w. Each SSH session has
// its own writer and therefore its own color profile.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Accent:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Muted:    r.NewStyle().Faint(true),
		Error:    r.NewStyle().Foreground(lipgloss.Color("9")),
		Selected: r.NewStyle().Reverse(true),
		Panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 2),
	}
}

// Lines splits a rendered block into its rows.
func Lines(block string) []string {
	return strings.Split(block, "\n")
}
