package tui

import "github.com/charmbracelet/lipgloss"

// Styles bundles the lipgloss styles for one theme.
type Styles struct {
	TopBar     lipgloss.Style
	BottomBar  lipgloss.Style
	WindowHead lipgloss.Style
	Active     lipgloss.Style
	Suspended  lipgloss.Style
	Cursor     lipgloss.Style
	Dim        lipgloss.Style
	Border     lipgloss.Style
	Detail     lipgloss.Style
}

// themeStyles returns the style set for "dark" or "light". Unknown theme
// names fall back to dark.
func themeStyles(theme string) Styles {
	if theme == "light" {
		return Styles{
			TopBar:     lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("235")),
			BottomBar:  lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245")),
			WindowHead: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
			Active:     lipgloss.NewStyle().Foreground(lipgloss.Color("235")),
			Suspended:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Cursor:     lipgloss.NewStyle().Background(lipgloss.Color("254")),
			Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Border:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("250")),
			Detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		}
	}
	return Styles{
		TopBar:     lipgloss.NewStyle().Bold(true).Padding(0, 1),
		BottomBar:  lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("240")),
		WindowHead: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		Active:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Suspended:  lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		Cursor:     lipgloss.NewStyle().Background(lipgloss.Color("236")),
		Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Border:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")),
		Detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
	}
}
