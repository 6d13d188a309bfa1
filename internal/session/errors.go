package session

import "errors"

var (
	// ErrPermissionDenied is returned by every event once microphone access was refused.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrOpenFailed wraps a backend that could not acquire its device or file.
	ErrOpenFailed = errors.New("open failed")
	// ErrStopFailed wraps a backend that could not finalize a recording.
	ErrStopFailed = errors.New("stop failed")

	// ErrInvalidTransition is returned for an event the current state does not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAccessPending is returned while the permission request is unresolved.
	ErrAccessPending = errors.New("microphone permission pending")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)
