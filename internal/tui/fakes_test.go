package tui_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/whistle/internal/session"
)

// fakeInput completes recordings from its own goroutine, like a device
// backend would.
type fakeInput struct {
	mu      sync.Mutex
	openErr error
	dest    string
	done    func(session.ClipInfo, error)
	stops   atomic.Int32
}

func (f *fakeInput) Open(dest string, _ session.Profile, done func(session.ClipInfo, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openErr != nil {
		return f.openErr
	}

	f.dest, f.done = dest, done

	return nil
}

func (f *fakeInput) Pause() error  { return nil }
func (f *fakeInput) Resume() error { return nil }

func (f *fakeInput) Stop() error {
	f.mu.Lock()
	done, dest := f.done, f.dest
	f.done = nil
	f.mu.Unlock()

	f.stops.Add(1)

	if done == nil {
		return errors.New("no active recording")
	}

	go done(session.ClipInfo{Location: dest, Duration: time.Second, Bytes: 2048}, nil)

	return nil
}

func (f *fakeInput) IsActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.done != nil
}

type fakeOutput struct {
	pos atomic.Int64
	dur time.Duration
}

func (f *fakeOutput) Open(string, func(error)) error {
	f.pos.Store(0)
	return nil
}

func (f *fakeOutput) Play() error  { return nil }
func (f *fakeOutput) Pause() error { return nil }
func (f *fakeOutput) Stop() error  { return nil }

func (f *fakeOutput) CurrentPosition() time.Duration { return time.Duration(f.pos.Load()) }
func (f *fakeOutput) Duration() time.Duration        { return f.dur }

// fakeScheduler lets the test deliver ticks from its own goroutine.
type fakeScheduler struct {
	mu   sync.Mutex
	tick func()
}

func (f *fakeScheduler) ScheduleRepeating(_ time.Duration, tick func()) func() {
	f.mu.Lock()
	f.tick = tick
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		f.tick = nil
		f.mu.Unlock()
	}
}

func (f *fakeScheduler) active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.tick != nil
}

func (f *fakeScheduler) fire() {
	f.mu.Lock()
	tick := f.tick
	f.mu.Unlock()

	if tick != nil {
		tick()
	}
}

type fakeAccess struct {
	granted bool
}

func (f fakeAccess) Request(resolved func(bool)) {
	go resolved(f.granted)
}

type fakeLevels struct{}

func (fakeLevels) Read() []int16 { return []int16{1000, 8000, 32767, 8000} }
