// Package session implements the record/playback state machine for a single
// clip. It drives an AudioInput and an AudioOutput backend plus a repeating
// scheduler tick, and reports what happened through Event values so any UI
// layer can render it.
package session

// State is the current position of a Session in its lifecycle.
type State int

const (
	// Idle means no recording exists and nothing is active.
	Idle State = iota
	// Recording means the input backend is capturing into the clip location.
	Recording
	// RecordingPaused means capture is suspended but the clip is still open.
	RecordingPaused
	// Recorded means a finished clip exists and nothing is active.
	Recorded
	// Playing means the clip is being played back and the tick is running.
	Playing
	// PlayingPaused means playback is suspended and the tick is stopped.
	PlayingPaused
	// Finished means playback reached the end of the clip.
	Finished
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	case RecordingPaused:
		return "Recording Paused"
	case Recorded:
		return "Recorded"
	case Playing:
		return "Playing"
	case PlayingPaused:
		return "Playing Paused"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// HasClip reports whether a completed clip exists in this state.
func (s State) HasClip() bool {
	switch s { //nolint:exhaustive // remaining states have no clip
	case Recorded, Playing, PlayingPaused, Finished:
		return true
	default:
		return false
	}
}

// IsRecording reports whether the input backend is held in this state.
func (s State) IsRecording() bool {
	return s == Recording || s == RecordingPaused
}

// IsPlaying reports whether the output backend is held in this state.
func (s State) IsPlaying() bool {
	return s == Playing || s == PlayingPaused
}
