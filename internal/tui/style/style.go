// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Names omit a "Style" suffix; they are read as style.Title, style.Error.
var (
	// Title is the state heading.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for timers and secondary text.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Help is the key hint line.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key highlights a key inside a hint.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Progress colors the level meter.
	Progress = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	// Label is used for inline labels such as "Clip:".
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// Muted is used for file paths and idle meters.
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))
)
