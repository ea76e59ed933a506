package console

import "github.com/charmbracelet/lipgloss"

// styles are bound to one renderer so color detection follows the writer,
// not the process stdout.
type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	muted   lipgloss.Style
	prompt  lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		section: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		prompt:  r.NewStyle().Foreground(lipgloss.Color("75")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}
