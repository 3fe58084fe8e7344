package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#8BC34A")
	destructive = lipgloss.Color("#e53935")
	muted       = lipgloss.Color("#7a8599")
)

type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Artwork  lipgloss.Style
	Attr     lipgloss.Style
	Banned   lipgloss.Style
	Disabled lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Header:   lipgloss.NewStyle().Bold(true),
		Artwork:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
		Attr:     lipgloss.NewStyle(),
		Banned:   lipgloss.NewStyle().Strikethrough(true).Foreground(destructive),
		Disabled: lipgloss.NewStyle().Foreground(muted),
		Error:    lipgloss.NewStyle().Foreground(destructive),
		Help:     lipgloss.NewStyle().Foreground(muted),
	}
}
