// Package tui is the terminal screen for a recording session. It maps keys
// to session events and renders the session's notifications.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alkime/whistle/internal/session"
	"github.com/alkime/whistle/internal/tui/components/labeledspinner"
	"github.com/alkime/whistle/internal/tui/components/waveform"
	"github.com/alkime/whistle/internal/tui/style"
	"github.com/alkime/whistle/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	meterWidth  = 40
	meterHeight = 3
)

// Options wires the screen to its session backends.
type Options struct {
	Session   session.Config
	Input     session.AudioInput
	Output    session.AudioOutput
	Scheduler session.Scheduler
	Access    session.Access
	// Levels feeds the input meter. Optional.
	Levels uictl.Levels[int16]
	// Bytes reports the size of the clip being written. Optional.
	Bytes  uictl.Dial[int64]
	Logger *slog.Logger
}

// Model is the session screen. It owns the session and runs it on the
// Bubble Tea update goroutine.
type Model struct {
	sess  *session.Session
	box   *mailbox
	bytes uictl.Dial[int64]
	keys  KeyMap

	status    labeledspinner.Model
	stopwatch stopwatch.Model
	progress  progress.Model
	meter     waveform.Model

	state    session.State
	elapsed  time.Duration
	duration time.Duration
	err      error
	denied   bool
	saving   bool
	saved    string
	quitting bool

	// cmds collects commands produced by session events during an Update
	cmds []tea.Cmd
}

// New creates the screen and its session.
func New(opts Options) (*Model, error) {
	m := &Model{ //nolint:exhaustruct // session state starts at zero values
		box:       newMailbox(),
		bytes:     opts.Bytes,
		keys:      DefaultKeyMap(),
		status:    labeledspinner.New(spinner.Points),
		stopwatch: stopwatch.NewWithInterval(100 * time.Millisecond),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(meterWidth),
			progress.WithoutPercentage(),
		),
		meter: waveform.New(opts.Levels, meterWidth, meterHeight),
		state: session.Idle,
	}

	sess, err := session.New(opts.Session, session.Deps{
		Input:     opts.Input,
		Output:    opts.Output,
		Scheduler: opts.Scheduler,
		Access:    opts.Access,
		Executor:  m.box,
		Notify:    m.handle,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.sess = sess
	m.keys.sync(m.state)

	return m, nil
}

// Saved returns the clip location if the user saved before quitting.
func (m *Model) Saved() (string, bool) {
	return m.saved, m.saved != ""
}

// Init requests microphone access and starts the screen's loops.
func (m *Model) Init() tea.Cmd {
	m.box.Post(m.sess.RequestAccess)

	return tea.Batch(
		m.box.next(),
		m.status.Init(),
		m.meter.Init(),
	)
}

// Update handles keys, posted session work and component ticks.
func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := teaMsg.(type) {
	case runMsg:
		for _, fn := range msg {
			fn()
		}

		m.cmds = append(m.cmds, m.box.next())

	case tea.KeyMsg:
		m.handleKey(msg)

	case tea.WindowSizeMsg:
		width := min(max(msg.Width-4, 10), meterWidth)
		m.meter.SetWidth(width)
		m.progress.Width = width

	case spinner.TickMsg:
		m.status, cmd = m.status.Update(msg)

	case waveform.TickMsg:
		m.meter, cmd = m.meter.Update(msg)

	case progress.FrameMsg:
		var pm tea.Model
		pm, cmd = m.progress.Update(msg)
		m.progress = pm.(progress.Model) //nolint:forcetypeassert // bubbles library contract

	default:
		m.stopwatch, cmd = m.stopwatch.Update(msg)
	}

	cmds := append(m.cmds, cmd)
	m.cmds = nil

	if m.quitting {
		cmds = append(cmds, tea.Quit)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	if key.Matches(msg, m.keys.Quit) {
		m.quit()
		return
	}

	m.err = nil

	var err error

	switch {
	case key.Matches(msg, m.keys.Pause):
		if m.state == session.RecordingPaused || m.state == session.PlayingPaused {
			err = m.sess.Resume()
		} else {
			err = m.sess.Pause()
		}
	case key.Matches(msg, m.keys.Stop):
		err = m.sess.Stop()
	case key.Matches(msg, m.keys.Play):
		err = m.sess.Play()
	case key.Matches(msg, m.keys.Record):
		err = m.sess.Start()
	case key.Matches(msg, m.keys.Save):
		err = m.save()
	}

	if err != nil {
		m.err = err
	}
}

// save quits with the clip location. A recording in progress is stopped
// first and the screen quits once it is finalized.
func (m *Model) save() error {
	if clip, ok := m.sess.Clip(); ok {
		m.saved = clip
		m.quit()

		return nil
	}

	if !m.state.IsRecording() {
		return errors.New("no clip to save")
	}

	m.saving = true

	return m.sess.Stop()
}

func (m *Model) quit() {
	m.sess.Close()
	m.box.close()
	m.quitting = true
}

// handle receives session events. It runs inside Update.
func (m *Model) handle(ev session.Event) {
	switch ev := ev.(type) {
	case session.StateChanged:
		m.enter(ev.State)

	case session.ProgressUpdated:
		m.elapsed, m.duration = ev.Elapsed, ev.Duration
		m.cmds = append(m.cmds, m.progress.SetPercent(ev.Fraction()))

	case session.RecordingFailed:
		m.err = ev.Err
		m.saving = false

	case session.PlaybackFailed:
		m.err = ev.Err

	case session.PermissionDenied:
		m.denied = true
		m.err = session.ErrPermissionDenied
	}
}

func (m *Model) enter(next session.State) {
	prev := m.state
	m.state = next
	m.keys.sync(next)

	switch next { //nolint:exhaustive // other states leave the stopwatch alone
	case session.Recording:
		if prev != session.RecordingPaused {
			m.cmds = append(m.cmds, m.stopwatch.Reset())
		}

		m.cmds = append(m.cmds, m.stopwatch.Start())

	case session.RecordingPaused, session.Recorded:
		m.cmds = append(m.cmds, m.stopwatch.Stop())
	}

	if !next.IsPlaying() && next != session.Finished {
		m.elapsed, m.duration = 0, 0
		m.cmds = append(m.cmds, m.progress.SetPercent(0))
	}

	if m.saving && next == session.Recorded {
		m.saving = false

		if clip, ok := m.sess.Clip(); ok {
			m.saved = clip
			m.quit()
		}
	}
}

// View renders the screen.
func (m *Model) View() string {
	if m.quitting {
		if m.saved != "" {
			return style.Success.Render("Saved ") + style.Muted.Render(m.saved) + "\n"
		}

		return ""
	}

	var sb strings.Builder

	sb.WriteString(m.title())
	sb.WriteString("\n\n")

	switch {
	case m.state.IsRecording():
		sb.WriteString(m.meter.View())
		sb.WriteString("\n")

		if m.bytes != nil {
			sb.WriteString(style.Subtitle.Render(formatBytes(m.bytes.Read())))
			sb.WriteString("\n")
		}

	case m.state.IsPlaying() || m.state == session.Finished:
		sb.WriteString(m.progress.View())
		sb.WriteString("\n")
		sb.WriteString(style.Subtitle.Render(formatProgress(m.elapsed, m.duration)))
		sb.WriteString("\n")
	}

	if clip, ok := m.sess.Clip(); ok {
		sb.WriteString(style.Label.Render("Clip: "))
		sb.WriteString(style.Muted.Render(clip))
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(style.Error.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help())

	return sb.String()
}

func (m *Model) title() string {
	switch {
	case m.denied:
		return labeledspinner.Label(style.Error, "Microphone access denied", "")
	case m.saving:
		return m.status.Busy("Saving", "")
	}

	switch m.state { //nolint:exhaustive // remaining states use the plain title
	case session.Recording:
		return m.status.Busy("Recording", m.stopwatch.View())
	case session.RecordingPaused:
		return labeledspinner.Label(style.Warning, "Recording Paused", m.stopwatch.View())
	case session.Recorded, session.Finished:
		return labeledspinner.Label(style.Success, m.state.String(), "")
	case session.Playing:
		return m.status.Busy("Playing", "")
	case session.PlayingPaused:
		return labeledspinner.Label(style.Warning, "Playing Paused", "")
	default:
		return labeledspinner.Label(style.Title, m.state.String(), "")
	}
}

func (m *Model) help() string {
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))

	for _, b := range bindings {
		parts = append(parts, renderKeyHelp(b))
	}

	return strings.Join(parts, " ")
}

func renderKeyHelp(b key.Binding) string {
	return style.Help.Render("[") + style.Key.Render(b.Help().Key) +
		style.Help.Render("] ") + style.Help.Render(b.Help().Desc)
}

func formatProgress(elapsed, duration time.Duration) string {
	return fmt.Sprintf("%s / %s", formatClock(elapsed), formatClock(duration))
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// formatBytes formats a clip size as a human-readable string.
func formatBytes(n int64) string {
	if n < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}

	return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
}
