package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = "212"
	colorMuted  = "245"
	colorError  = "203"
	colorOK     = "42"
	colorPanel  = "62"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorOK)).Bold(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	tabStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)).Padding(0, 1)
	activeTab   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color(colorPanel)).Bold(true).Padding(0, 1)
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	systemStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(colorMuted))
)
