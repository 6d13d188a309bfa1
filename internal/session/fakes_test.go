package session_test

import (
	"time"

	"github.com/alkime/whistle/internal/session"
)

// manualExecutor queues posted funcs until Drain is called, so tests control
// exactly when asynchronous callbacks land.
type manualExecutor struct {
	queue []func()
}

func (m *manualExecutor) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

func (m *manualExecutor) Drain() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

type fakeInput struct {
	openErr   error
	stopErr   error
	pauseErr  error
	active    bool
	paused    bool
	stopping  bool
	opens     int
	lastDest  string
	lastProf  session.Profile
	done      func(session.ClipInfo, error)
	abandoned []func(session.ClipInfo, error)
}

func (f *fakeInput) Open(dest string, p session.Profile, done func(session.ClipInfo, error)) error {
	f.opens++
	f.lastDest = dest
	f.lastProf = p

	if f.openErr != nil {
		return f.openErr
	}

	if f.done != nil {
		f.abandoned = append(f.abandoned, f.done)
	}

	f.active = true
	f.paused = false
	f.stopping = false
	f.done = done

	return nil
}

func (f *fakeInput) Pause() error {
	if f.pauseErr != nil {
		return f.pauseErr
	}

	f.paused = true

	return nil
}

func (f *fakeInput) Resume() error {
	f.paused = false
	return nil
}

func (f *fakeInput) Stop() error {
	f.active = false
	f.paused = false

	if f.stopErr != nil {
		f.done = nil
		return f.stopErr
	}

	f.stopping = true

	return nil
}

func (f *fakeInput) IsActive() bool { return f.active }

// finish reports completion the way a real backend would: from the backend,
// not the session's context.
func (f *fakeInput) finish(info session.ClipInfo, err error) {
	done := f.done
	f.done = nil
	f.active = false
	f.stopping = false

	if done != nil {
		done(info, err)
	}
}

type fakeOutput struct {
	openErr error
	playErr error
	active  bool
	playing bool
	opens   int
	source  string
	pos     time.Duration
	dur     time.Duration
	done    func(error)
}

func (f *fakeOutput) Open(source string, done func(error)) error {
	f.opens++
	f.source = source

	if f.openErr != nil {
		return f.openErr
	}

	f.active = true
	f.pos = 0
	f.done = done

	return nil
}

func (f *fakeOutput) Play() error {
	if f.playErr != nil {
		return f.playErr
	}

	f.playing = true

	return nil
}

func (f *fakeOutput) Pause() error {
	f.playing = false
	return nil
}

func (f *fakeOutput) Stop() error {
	f.active = false
	f.playing = false

	return nil
}

func (f *fakeOutput) CurrentPosition() time.Duration { return f.pos }
func (f *fakeOutput) Duration() time.Duration        { return f.dur }

// advance moves the playback position forward, clamped at the duration.
func (f *fakeOutput) advance(d time.Duration) {
	if f.playing {
		f.pos = min(f.pos+d, f.dur)
	}
}

type fakeTimer struct {
	interval  time.Duration
	tick      func()
	cancelled bool
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (f *fakeScheduler) ScheduleRepeating(interval time.Duration, tick func()) func() {
	t := &fakeTimer{interval: interval, tick: tick}
	f.timers = append(f.timers, t)

	return func() { t.cancelled = true }
}

// Fire delivers one tick from every live timer.
func (f *fakeScheduler) Fire() {
	for _, t := range f.timers {
		if !t.cancelled {
			t.tick()
		}
	}
}

func (f *fakeScheduler) Active() int {
	n := 0

	for _, t := range f.timers {
		if !t.cancelled {
			n++
		}
	}

	return n
}

type fakeAccess struct {
	resolved func(bool)
}

func (f *fakeAccess) Request(resolved func(bool)) {
	f.resolved = resolved
}

type eventLog struct {
	events []session.Event
}

func (e *eventLog) Notify(ev session.Event) {
	e.events = append(e.events, ev)
}

func (e *eventLog) reset() {
	e.events = nil
}

func (e *eventLog) states() []session.State {
	var out []session.State

	for _, ev := range e.events {
		if sc, ok := ev.(session.StateChanged); ok {
			out = append(out, sc.State)
		}
	}

	return out
}

func countEvents[T session.Event](events []session.Event) int {
	n := 0

	for _, ev := range events {
		if _, ok := ev.(T); ok {
			n++
		}
	}

	return n
}

type harness struct {
	exec   *manualExecutor
	input  *fakeInput
	output *fakeOutput
	sched  *fakeScheduler
	log    *eventLog
	sess   *session.Session
}

const testClip = "/tmp/whistle/recording.wav"

func newHarness(opts ...func(*session.Config, *session.Deps)) *harness {
	h := &harness{
		exec:   &manualExecutor{},
		input:  &fakeInput{},
		output: &fakeOutput{dur: 5 * time.Second},
		sched:  &fakeScheduler{},
		log:    &eventLog{},
	}

	conf := session.Config{
		ClipPath:     testClip,
		TickInterval: 250 * time.Millisecond,
	}

	deps := session.Deps{
		Input:     h.input,
		Output:    h.output,
		Scheduler: h.sched,
		Executor:  h.exec,
		Notify:    h.log.Notify,
	}

	for _, opt := range opts {
		opt(&conf, &deps)
	}

	sess, err := session.New(conf, deps)
	if err != nil {
		panic(err)
	}

	h.sess = sess

	return h
}

// record drives a full recording and leaves the session in Recorded.
func (h *harness) record(location string) {
	if err := h.sess.Start(); err != nil {
		panic(err)
	}

	if err := h.sess.Stop(); err != nil {
		panic(err)
	}

	h.input.finish(session.ClipInfo{Location: location}, nil)
	h.exec.Drain()
}

// tick advances playback by one interval and delivers the tick.
func (h *harness) tick() {
	h.output.advance(250 * time.Millisecond)
	h.sched.Fire()
	h.exec.Drain()
}
