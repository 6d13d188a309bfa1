// Package labeledspinner renders a one-line status: a spinner while busy,
// then a styled label and an optional detail.
package labeledspinner

import (
	"strings"

	"github.com/alkime/whistle/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model keeps the spinner animation running; the label is supplied at
// render time since it follows the session state.
type Model struct {
	Spinner spinner.Model
}

// New creates a labeled spinner using s.
func New(s spinner.Spinner) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{Spinner: sp}
}

// Init starts the spinner.
func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update advances the spinner.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

// Busy renders label with the spinner in front.
func (ls Model) Busy(label, detail string) string {
	return ls.Spinner.View() + " " + Label(style.Title, label, detail)
}

// Label renders label in st followed by detail, without a spinner.
func Label(st lipgloss.Style, label, detail string) string {
	var sb strings.Builder

	sb.WriteString(st.Render(label))

	if detail != "" {
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(detail))
	}

	return sb.String()
}
