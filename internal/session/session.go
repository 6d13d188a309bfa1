package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTickInterval is how often playback position is sampled.
const DefaultTickInterval = 250 * time.Millisecond

// Config configures a Session.
type Config struct {
	// ClipPath is the fixed location every recording is written to.
	ClipPath string
	// TickInterval is the playback sampling period. It is also the tolerance
	// used to decide that playback reached the end of the clip.
	TickInterval time.Duration
	// AutoStart begins recording as soon as microphone access is granted.
	AutoStart bool
}

// Deps are the collaborators a Session drives.
type Deps struct {
	Input     AudioInput
	Output    AudioOutput
	Scheduler Scheduler
	// Access is asked for microphone permission. Nil means access was
	// already granted by the host.
	Access Access
	// Executor is the context backend callbacks are re-posted onto.
	// Nil means Inline.
	Executor Executor
	// Notify receives every Event. It is called on the session's context.
	Notify func(Event)
	Logger *slog.Logger
}

type accessState int

const (
	accessPending accessState = iota
	accessGranted
	accessDenied
)

// Session is the record/playback state machine for one clip.
//
// A Session is not safe for concurrent use: every method, including the
// accessors, must be called from the context its Executor runs funcs on.
// Backend callbacks and ticks are posted onto that same context.
type Session struct {
	conf   Config
	input  AudioInput
	output AudioOutput
	sched  Scheduler
	access Access
	exec   Executor
	notify func(Event)
	log    *slog.Logger

	state    State
	clip     string
	elapsed  time.Duration
	duration time.Duration

	accessState accessState
	requested   bool
	closed      bool

	// generations identify the open (or timer) a callback belongs to so that
	// callbacks from an abandoned open are dropped
	inputGen  uint64
	outputGen uint64
	tickGen   uint64

	stopping   bool
	cancelTick func()
}

// New creates a Session in the Idle state.
func New(conf Config, deps Deps) (*Session, error) {
	if conf.ClipPath == "" {
		return nil, errors.New("clip path cannot be empty")
	}

	if conf.TickInterval < 0 {
		return nil, errors.New("tick interval must be positive")
	}

	if conf.TickInterval == 0 {
		conf.TickInterval = DefaultTickInterval
	}

	if deps.Input == nil || deps.Output == nil || deps.Scheduler == nil {
		return nil, errors.New("input, output and scheduler are required")
	}

	if deps.Executor == nil {
		deps.Executor = Inline
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Session{ //nolint:exhaustruct // runtime fields start at zero values
		conf:        conf,
		input:       deps.Input,
		output:      deps.Output,
		sched:       deps.Scheduler,
		access:      deps.Access,
		exec:        deps.Executor,
		notify:      deps.Notify,
		log:         deps.Logger.With("component", "session"),
		state:       Idle,
		accessState: accessPending,
	}

	if deps.Access == nil {
		s.accessState = accessGranted
	}

	return s, nil
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Clip returns the location of the completed clip, if one exists.
func (s *Session) Clip() (string, bool) {
	return s.clip, s.clip != ""
}

// Progress returns the last sampled playback position and the clip duration.
// Both are zero outside Playing, PlayingPaused and Finished.
func (s *Session) Progress() (elapsed, duration time.Duration) {
	return s.elapsed, s.duration
}

// RequestAccess asks for microphone permission. The session accepts events
// once access is granted; a denial is terminal. Only the first call has an
// effect.
func (s *Session) RequestAccess() {
	if s.requested || s.closed {
		return
	}

	s.requested = true

	if s.access == nil {
		s.resolveAccess(true)
		return
	}

	s.log.Debug("requesting microphone access")
	s.access.Request(func(granted bool) {
		s.exec.Post(func() { s.resolveAccess(granted) })
	})
}

func (s *Session) resolveAccess(granted bool) {
	if s.closed || s.accessState == accessDenied {
		return
	}

	if !granted {
		s.accessState = accessDenied
		s.log.Warn("microphone access denied")
		s.emit(PermissionDenied{})

		return
	}

	s.accessState = accessGranted
	s.log.Info("microphone access granted")
	s.emit(StateChanged{State: s.state})

	if s.conf.AutoStart && s.state == Idle {
		if err := s.Start(); err != nil {
			s.log.Error("failed to auto-start recording", "error", err)
		}
	}
}

// Start begins a new recording at the clip location. Any current recording,
// playback or clip is discarded first.
func (s *Session) Start() error {
	if err := s.ready(); err != nil {
		return err
	}

	switch {
	case s.state.IsRecording():
		s.abandonRecording()
	case s.state.IsPlaying(), s.state == Finished:
		s.releaseOutput()
	}

	s.clearClip()

	s.inputGen++
	gen := s.inputGen
	s.stopping = false

	err := s.input.Open(s.conf.ClipPath, ClipProfile, func(info ClipInfo, err error) {
		s.exec.Post(func() { s.inputDone(gen, info, err) })
	})
	if err != nil {
		s.inputGen++
		err = fmt.Errorf("%w: %w", ErrOpenFailed, err)
		s.failRecording(err)

		return err
	}

	s.setState(Recording)

	return nil
}

// Pause suspends recording or playback. Pausing while already paused is a no-op.
func (s *Session) Pause() error {
	if err := s.ready(); err != nil {
		return err
	}

	switch s.state { //nolint:exhaustive // remaining states reject pause
	case RecordingPaused, PlayingPaused:
		return nil

	case Recording:
		if s.stopping {
			return fmt.Errorf("%w: recording is being finalized", ErrInvalidTransition)
		}

		if err := s.input.Pause(); err != nil {
			return fmt.Errorf("failed to pause recording: %w", err)
		}

		s.setState(RecordingPaused)

	case Playing:
		if err := s.output.Pause(); err != nil {
			return fmt.Errorf("failed to pause playback: %w", err)
		}

		s.stopTick()
		s.elapsed = s.position()
		s.setState(PlayingPaused)

	default:
		return s.invalid("pause")
	}

	return nil
}

// Resume continues a paused recording or playback. Resuming while already
// running is a no-op.
func (s *Session) Resume() error {
	if err := s.ready(); err != nil {
		return err
	}

	switch s.state { //nolint:exhaustive // remaining states reject resume
	case Recording, Playing:
		return nil

	case RecordingPaused:
		if s.stopping {
			return fmt.Errorf("%w: recording is being finalized", ErrInvalidTransition)
		}

		if err := s.input.Resume(); err != nil {
			return fmt.Errorf("failed to resume recording: %w", err)
		}

		s.setState(Recording)

		return nil

	case PlayingPaused:
		return s.resumePlayback()

	default:
		return s.invalid("resume")
	}
}

// Stop finalizes the current recording, or stops playback and returns to
// Recorded. Recording completion is asynchronous: the session moves to
// Recorded (or Idle on failure) when the input backend reports back.
func (s *Session) Stop() error {
	if err := s.ready(); err != nil {
		return err
	}

	switch {
	case s.state.IsRecording():
		if s.stopping {
			return nil
		}

		s.stopping = true

		if err := s.input.Stop(); err != nil {
			s.inputGen++
			err = fmt.Errorf("%w: %w", ErrStopFailed, err)
			s.failRecording(err)

			return err
		}

		return nil

	case s.state.IsPlaying(), s.state == Finished:
		s.releaseOutput()
		s.elapsed, s.duration = 0, 0
		s.setState(Recorded)

		return nil

	default:
		return s.invalid("stop")
	}
}

// Play starts playback of the clip from the beginning. From PlayingPaused it
// resumes instead.
func (s *Session) Play() error {
	if err := s.ready(); err != nil {
		return err
	}

	switch s.state { //nolint:exhaustive // remaining states reject play
	case Playing:
		return nil
	case PlayingPaused:
		return s.resumePlayback()
	case Recorded, Finished:
	default:
		return s.invalid("play")
	}

	s.outputGen++
	gen := s.outputGen

	err := s.output.Open(s.clip, func(err error) {
		s.exec.Post(func() { s.outputDone(gen, err) })
	})
	if err != nil {
		s.outputGen++
		return s.failPlayback(fmt.Errorf("%w: %w", ErrOpenFailed, err))
	}

	s.duration = s.output.Duration()
	s.elapsed = 0

	if err := s.output.Play(); err != nil {
		s.releaseOutput()
		return s.failPlayback(fmt.Errorf("%w: %w", ErrOpenFailed, err))
	}

	s.startTick()
	s.setState(Playing)
	s.emit(ProgressUpdated{Elapsed: 0, Duration: s.duration})

	return nil
}

// Close releases every backend and stops the tick. A completed clip stays
// available through Clip. Events after Close return ErrClosed.
func (s *Session) Close() {
	if s.closed {
		return
	}

	switch {
	case s.state.IsRecording():
		s.abandonRecording()
		s.clearClip()
		s.state = Idle
	case s.state.IsPlaying(), s.state == Finished:
		s.releaseOutput()
		s.state = Recorded
	}

	s.stopTick()
	s.closed = true
	s.log.Debug("session closed", "state", s.state)
}

func (s *Session) ready() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.accessState == accessDenied:
		return ErrPermissionDenied
	case s.accessState != accessGranted:
		return ErrAccessPending
	}

	return nil
}

func (s *Session) invalid(event string) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, s.state)
}

func (s *Session) inputDone(gen uint64, info ClipInfo, err error) {
	if s.closed || gen != s.inputGen || !s.state.IsRecording() {
		s.log.Debug("dropping stale recording completion", "gen", gen)
		return
	}

	s.inputGen++
	s.stopping = false

	if err != nil {
		s.failRecording(fmt.Errorf("%w: %w", ErrStopFailed, err))
		return
	}

	loc := info.Location
	if loc == "" {
		loc = s.conf.ClipPath
	}

	s.clip = loc
	s.log.Info("recording complete", "clip", loc, "duration", info.Duration, "bytes", info.Bytes)
	s.setState(Recorded)
}

func (s *Session) outputDone(gen uint64, err error) {
	if s.closed || gen != s.outputGen || !s.state.IsPlaying() {
		return
	}

	if err == nil {
		if s.state == Playing {
			s.reachEnd()
		}

		return
	}

	s.releaseOutput()
	_ = s.failPlayback(fmt.Errorf("playback interrupted: %w", err))
}

func (s *Session) resumePlayback() error {
	if err := s.output.Play(); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	s.startTick()
	s.setState(Playing)

	return nil
}

// tick samples the playback position. Playback counts as finished once less
// than one tick interval remains, since positions are only observed at tick
// granularity and may never equal the duration exactly.
func (s *Session) tick(gen uint64) {
	if s.closed || gen != s.tickGen || s.state != Playing {
		return
	}

	pos := s.position()
	if s.duration-pos < s.conf.TickInterval {
		s.reachEnd()
		return
	}

	s.elapsed = pos
	s.emit(ProgressUpdated{Elapsed: pos, Duration: s.duration})
}

func (s *Session) reachEnd() {
	s.releaseOutput()
	s.elapsed = s.duration
	s.emit(ProgressUpdated{Elapsed: s.duration, Duration: s.duration})
	s.setState(Finished)
}

func (s *Session) position() time.Duration {
	return min(max(s.output.CurrentPosition(), 0), s.duration)
}

func (s *Session) startTick() {
	s.stopTick()

	gen := s.tickGen
	s.cancelTick = s.sched.ScheduleRepeating(s.conf.TickInterval, func() {
		s.exec.Post(func() { s.tick(gen) })
	})
}

func (s *Session) stopTick() {
	if s.cancelTick != nil {
		s.cancelTick()
		s.cancelTick = nil
	}

	s.tickGen++
}

// abandonRecording stops the input without waiting for its completion.
func (s *Session) abandonRecording() {
	s.inputGen++
	s.stopping = false

	if err := s.input.Stop(); err != nil {
		s.log.Warn("failed to stop abandoned recording", "error", err)
	}
}

func (s *Session) releaseOutput() {
	s.stopTick()
	s.outputGen++

	if err := s.output.Stop(); err != nil {
		s.log.Warn("failed to stop playback", "error", err)
	}
}

func (s *Session) clearClip() {
	s.clip = ""
	s.elapsed = 0
	s.duration = 0
}

func (s *Session) failRecording(err error) {
	s.stopping = false
	s.clearClip()
	s.setState(Idle)
	s.log.Error("recording failed", "error", err)
	s.emit(RecordingFailed{Err: err})
}

func (s *Session) failPlayback(err error) error {
	s.elapsed, s.duration = 0, 0
	s.setState(Recorded)
	s.log.Error("playback failed", "error", err)
	s.emit(PlaybackFailed{Err: err})

	return err
}

func (s *Session) setState(next State) {
	if next == s.state {
		return
	}

	s.log.Debug("state transition", "from", s.state, "to", next)
	s.state = next
	s.emit(StateChanged{State: next})
}

func (s *Session) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}
