package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#22C55E")
	warningColor = lipgloss.Color("#EAB308")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	textColor    = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	statValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	statLabelStyle = lipgloss.NewStyle().Foreground(mutedColor)

	availableStyle = lipgloss.NewStyle().Foreground(successColor)
	rentedStyle    = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle     = lipgloss.NewStyle().Foreground(errorColor)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(textColor)

	noticeStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Padding(0, 1)

	noticeErrorStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)
)
