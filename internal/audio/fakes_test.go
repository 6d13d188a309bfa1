package audio_test

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/alkime/whistle/internal/audio"
	"github.com/gopxl/beep/v2"
)

type fakeSource struct {
	mu          sync.Mutex
	dataC       chan<- audio.DataPacket
	captureErr  error
	startErr    error
	started     bool
	starts      int
	deallocated bool
	// hold, when set, keeps Dealloc from returning until it is closed
	hold chan struct{}
}

func (f *fakeSource) CaptureInto(dataC chan<- audio.DataPacket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.captureErr != nil {
		return f.captureErr
	}

	f.dataC = dataC

	return nil
}

func (f *fakeSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return f.startErr
	}

	f.started = true
	f.starts++

	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = false

	return nil
}

func (f *fakeSource) Dealloc() {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()

	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.deallocated = true
	f.dataC = nil
}

func (f *fakeSource) holdDealloc(hold chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hold = hold
}

func (f *fakeSource) isStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.started
}

func (f *fakeSource) isDeallocated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.deallocated
}

// emit delivers a packet of n silent-ish samples the way a device callback would.
func (f *fakeSource) emit(samples int) {
	packet := make([]byte, samples*2)
	for i := range packet {
		packet[i] = byte(i % 7)
	}

	f.mu.Lock()
	dataC := f.dataC
	f.mu.Unlock()

	dataC <- packet
}

// sourceFactory hands out fakeSources and remembers them.
type sourceFactory struct {
	mu      sync.Mutex
	sources []*fakeSource
	prepare func(*fakeSource)
}

func (s *sourceFactory) New(audio.DeviceConfig) audio.Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := &fakeSource{}
	if s.prepare != nil {
		s.prepare(src)
	}

	s.sources = append(s.sources, src)

	return src
}

func (s *sourceFactory) last() *fakeSource {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sources[len(s.sources)-1]
}

// fakeStream is a beep.StreamSeekCloser over a fixed number of constant frames.
type fakeStream struct {
	total  int
	pos    int
	value  float64
	err    error
	closed bool
}

func (f *fakeStream) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= f.total {
		return 0, false
	}

	n := min(len(samples), f.total-f.pos)
	for i := range n {
		samples[i] = [2]float64{f.value, -f.value}
	}

	f.pos += n

	return n, true
}

func (f *fakeStream) Err() error    { return f.err }
func (f *fakeStream) Len() int      { return f.total }
func (f *fakeStream) Position() int { return f.pos }
func (f *fakeStream) Close() error  { f.closed = true; return nil }

func (f *fakeStream) Seek(p int) error {
	if p < 0 || p > f.total {
		return errors.New("seek out of range")
	}

	f.pos = p

	return nil
}

type fakeSink struct {
	mu      sync.Mutex
	conf    audio.DeviceConfig
	fill    audio.FillFunc
	started bool
	closed  bool
}

func (f *fakeSink) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = true

	return nil
}

func (f *fakeSink) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = false

	return nil
}

func (f *fakeSink) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
}

// pull asks for frames the way the device thread would.
func (f *fakeSink) pull(frames int) []byte {
	out := make([]byte, frames*4)
	for i := range out {
		out[i] = 0xAA
	}

	f.fill(out)

	return out
}

var fakeFormat = beep.Format{SampleRate: 12000, NumChannels: 2, Precision: 2}

// newFakeOutput wires a FileOutput to a fake decoder and sink.
func newFakeOutput(stream *fakeStream, decodeErr, sinkErr error) (*audio.FileOutput, *fakeSink) {
	sink := &fakeSink{}

	decode := func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		if decodeErr != nil {
			return nil, beep.Format{}, decodeErr
		}

		_ = rc.Close()

		return stream, fakeFormat, nil
	}

	openSink := func(conf audio.DeviceConfig, fill audio.FillFunc) (audio.Sink, error) {
		if sinkErr != nil {
			return nil, sinkErr
		}

		sink.conf = conf
		sink.fill = fill

		return sink, nil
	}

	return audio.NewFileOutput(decode, openSink, nil), sink
}

func waitFor[T any](ch <-chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(2 * time.Second):
		var zero T
		return zero, false
	}
}
