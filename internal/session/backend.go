package session

import (
	"time"
)

// AudioInput captures audio into a clip file.
//
// Open starts capturing into destination. A failed Open must release
// everything it acquired before returning. done is called exactly once per
// successful Open, from any goroutine, after Stop finalizes the clip or when
// the backend fails on its own; it is never called before Open returns.
type AudioInput interface {
	Open(destination string, profile Profile, done func(ClipInfo, error)) error
	Pause() error
	Resume() error
	// Stop requests finalization. Completion is reported through done.
	Stop() error
	IsActive() bool
}

// AudioOutput plays back a clip file.
//
// done is only called for failures that happen after a successful Open,
// from any goroutine. Stop releases the opened clip; the output may be
// opened again afterwards.
type AudioOutput interface {
	Open(source string, done func(error)) error
	Play() error
	Pause() error
	Stop() error
	CurrentPosition() time.Duration
	Duration() time.Duration
}

// Scheduler runs tick repeatedly every interval until the returned cancel
// func is called. Ticks may be delivered from any goroutine.
type Scheduler interface {
	ScheduleRepeating(interval time.Duration, tick func()) (cancel func())
}

// Access gates use of the microphone. resolved may be called after an
// arbitrary delay, from any goroutine.
type Access interface {
	Request(resolved func(granted bool))
}

// Executor is the single logical context every transition runs on.
// Post must run fns one at a time, in the order they were posted.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a func to the Executor interface.
type ExecutorFunc func(fn func())

// Post calls f(fn).
func (f ExecutorFunc) Post(fn func()) {
	f(fn)
}

// Inline runs posted funcs immediately on the caller's goroutine. Use it only
// when every backend already delivers callbacks on the session's goroutine.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })
