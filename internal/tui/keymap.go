package tui

import (
	"github.com/alkime/whistle/internal/session"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings of the session screen.
type KeyMap struct {
	Pause  key.Binding
	Stop   key.Binding
	Play   key.Binding
	Record key.Binding
	Save   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Pause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "pause/resume"),
		),
		Stop: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "stop"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play"),
		),
		Record: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "new recording"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings enabled in the current state.
func (k KeyMap) ShortHelp() []key.Binding {
	var out []key.Binding

	for _, b := range []key.Binding{k.Pause, k.Stop, k.Play, k.Record, k.Save, k.Quit} {
		if b.Enabled() {
			out = append(out, b)
		}
	}

	return out
}

// FullHelp returns every binding, grouped by use.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Stop},
		{k.Play, k.Record},
		{k.Save, k.Quit},
	}
}

// sync enables the bindings state accepts.
func (k *KeyMap) sync(state session.State) {
	k.Pause.SetEnabled(state.IsRecording() || state.IsPlaying())
	k.Stop.SetEnabled(state.IsRecording() || state.IsPlaying() || state == session.Finished)
	k.Play.SetEnabled(state == session.Recorded || state == session.Finished || state == session.PlayingPaused)
	k.Save.SetEnabled(state != session.Idle)
}
