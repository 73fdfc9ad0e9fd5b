package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	primaryColor   = lipgloss.Color("#A78BFA")
	secondaryColor = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#F87171")
	mutedColor     = lipgloss.Color("#9CA3AF")
)

// Styles are bound to one output's color profile, so text written to a
// pipe or buffer carries no escape codes.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Heading  lipgloss.Style
	Label    lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

// NewStyles detects w's color profile.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Title:    r.NewStyle().Bold(true).Foreground(primaryColor),
		Subtitle: r.NewStyle().Foreground(mutedColor).Italic(true),
		Heading:  r.NewStyle().Bold(true).Foreground(secondaryColor),
		Label:    r.NewStyle().Bold(true).Foreground(primaryColor),
		Muted:    r.NewStyle().Foreground(mutedColor),
		Success:  r.NewStyle().Foreground(secondaryColor),
		Warning:  r.NewStyle().Foreground(warningColor),
		Error:    r.NewStyle().Foreground(errorColor),
	}
}

// Truncate shortens s to maxWidth columns, ending in "...".
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}
