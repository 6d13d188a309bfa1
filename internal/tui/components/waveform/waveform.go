// Package waveform renders recent microphone samples as a bar meter.
package waveform

import (
	"math"
	"strings"
	"time"

	"github.com/alkime/whistle/internal/tui/style"
	"github.com/alkime/whistle/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// glyphs are the partial block fills for one cell, empty to full.
var glyphs = []rune(" ▁▂▃▄▅▆▇█")

const (
	cellSteps   = 8
	refreshRate = 50 * time.Millisecond
	fullScale   = float64(math.MaxInt16)
)

// TickMsg triggers a redraw.
type TickMsg struct{}

// Model draws one bar per column, oldest samples on the left. Each bar is the
// RMS of its bucket of samples on a square-root scale.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a meter width columns wide and height rows tall.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

// SetWidth resizes the meter, e.g. on a window size change.
func (m *Model) SetWidth(width int) {
	m.width = max(width, 1)
}

// Init starts the redraw loop.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update keeps the redraw loop going.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, tick()
	}

	return m, nil
}

// View renders the meter.
func (m Model) View() string {
	var samples []int16
	if m.levels != nil {
		samples = m.levels.Read()
	}

	if len(samples) == 0 {
		return m.baseline()
	}

	bars := m.bars(samples)
	rows := make([]string, m.height)

	for row := range rows {
		floor := (m.height - 1 - row) * cellSteps

		var sb strings.Builder
		for _, bar := range bars {
			fill := min(max(bar-floor, 0), cellSteps)
			sb.WriteRune(glyphs[fill])
		}

		rows[row] = style.Progress.Render(sb.String())
	}

	return strings.Join(rows, "\n")
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// bars returns each column's height in eighths of a row.
func (m Model) bars(samples []int16) []int {
	bars := make([]int, m.width)
	bucket := max(1, len(samples)/m.width)
	top := m.height * cellSteps

	for col := range bars {
		start := col * bucket
		if start >= len(samples) {
			break
		}

		level := rms(samples[start:min(start+bucket, len(samples))]) / fullScale
		bars[col] = min(int(math.Sqrt(min(level, 1))*float64(top)), top)
	}

	return bars
}

func (m Model) baseline() string {
	rows := make([]string, m.height)
	for row := range rows {
		r := ' '
		if row == m.height-1 {
			r = glyphs[1]
		}

		rows[row] = style.Muted.Render(strings.Repeat(string(r), m.width))
	}

	return strings.Join(rows, "\n")
}

func rms(samples []int16) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(samples)))
}
