package session

import "time"

// Event is a notification emitted by a Session for the UI layer.
type Event interface {
	event()
}

// StateChanged reports a transition to a new state.
type StateChanged struct {
	State State
}

// ProgressUpdated reports the playback position while Playing.
type ProgressUpdated struct {
	Elapsed  time.Duration
	Duration time.Duration
}

// Fraction returns the elapsed share of the clip in [0, 1].
func (p ProgressUpdated) Fraction() float64 {
	if p.Duration <= 0 {
		return 0
	}

	return min(1, max(0, float64(p.Elapsed)/float64(p.Duration)))
}

// RecordingFailed reports that opening or finalizing a recording failed.
type RecordingFailed struct {
	Err error
}

// PlaybackFailed reports that opening or running playback failed.
type PlaybackFailed struct {
	Err error
}

// PermissionDenied reports that microphone access was refused.
type PermissionDenied struct{}

func (StateChanged) event()     {}
func (ProgressUpdated) event()  {}
func (RecordingFailed) event()  {}
func (PlaybackFailed) event()   {}
func (PermissionDenied) event() {}
