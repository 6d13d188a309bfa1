package audio_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alkime/whistle/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clipFile writes a placeholder file; the fake decoder never reads it.
func clipFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "recording.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	return path
}

func TestFileOutput_PlaysToEnd(t *testing.T) {
	t.Parallel()

	// one second at 12kHz
	stream := &fakeStream{total: 12000, value: 0.5}
	out, sink := newFakeOutput(stream, nil, nil)

	doneC := make(chan error, 1)
	require.NoError(t, out.Open(clipFile(t), func(err error) { doneC <- err }))

	assert.Equal(t, 12000, sink.conf.SampleRate)
	assert.Equal(t, 2, sink.conf.Channels)
	assert.Equal(t, time.Second, out.Duration())
	assert.Zero(t, out.CurrentPosition())

	require.NoError(t, out.Play())
	assert.True(t, sink.started)

	buf := sink.pull(6000)
	assert.Equal(t, 500*time.Millisecond, out.CurrentPosition())
	assert.Equal(t, []int16{16383, -16383}, audio.BytesToInt16(buf[:4]))

	// the last pull runs past the end and is padded with silence
	buf = sink.pull(8000)
	assert.Equal(t, time.Second, out.CurrentPosition())
	assert.Equal(t, make([]byte, 8000), buf[6000*4:])

	err, ok := waitFor(doneC)
	require.True(t, ok, "done was not called at end of stream")
	require.NoError(t, err)

	// further pulls are silent and do not report again
	assert.Equal(t, make([]byte, 400), sink.pull(100))

	require.NoError(t, out.Stop())
	assert.True(t, sink.closed)
	assert.True(t, stream.closed)
	assert.Zero(t, out.Duration())
}

func TestFileOutput_ReportsStreamError(t *testing.T) {
	t.Parallel()

	stream := &fakeStream{total: 100, err: errors.New("corrupt frame")}
	out, sink := newFakeOutput(stream, nil, nil)

	doneC := make(chan error, 1)
	require.NoError(t, out.Open(clipFile(t), func(err error) { doneC <- err }))
	require.NoError(t, out.Play())

	sink.pull(200)

	err, ok := waitFor(doneC)
	require.True(t, ok)
	require.ErrorContains(t, err, "corrupt frame")
}

func TestFileOutput_PauseKeepsPosition(t *testing.T) {
	t.Parallel()

	stream := &fakeStream{total: 12000}
	out, sink := newFakeOutput(stream, nil, nil)

	require.NoError(t, out.Open(clipFile(t), func(error) {}))
	require.NoError(t, out.Play())
	sink.pull(3000)

	require.NoError(t, out.Pause())
	assert.False(t, sink.started)
	assert.Equal(t, 250*time.Millisecond, out.CurrentPosition())

	require.NoError(t, out.Play())
	assert.True(t, sink.started)
}

func TestFileOutput_StopSuppressesDone(t *testing.T) {
	t.Parallel()

	stream := &fakeStream{total: 10}
	out, sink := newFakeOutput(stream, nil, nil)

	doneC := make(chan error, 1)
	require.NoError(t, out.Open(clipFile(t), func(err error) { doneC <- err }))
	require.NoError(t, out.Play())
	require.NoError(t, out.Stop())

	// a callback already in flight after stop renders silence only
	assert.Equal(t, make([]byte, 80), sink.pull(20))
	assert.Empty(t, doneC)

	require.NoError(t, out.Stop(), "second stop is a no-op")
}

func TestFileOutput_OpenFailures(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		out, _ := newFakeOutput(&fakeStream{}, nil, nil)
		err := out.Open(filepath.Join(t.TempDir(), "missing.wav"), func(error) {})
		require.ErrorContains(t, err, "failed to open clip")
	})

	t.Run("malformed clip", func(t *testing.T) {
		t.Parallel()

		out, _ := newFakeOutput(&fakeStream{}, errors.New("no frames"), nil)
		err := out.Open(clipFile(t), func(error) {})
		require.ErrorContains(t, err, "failed to decode clip")
		require.Error(t, out.Play(), "nothing is open")
	})

	t.Run("device unavailable releases the stream", func(t *testing.T) {
		t.Parallel()

		stream := &fakeStream{total: 10}
		out, _ := newFakeOutput(stream, nil, errors.New("no output device"))

		err := out.Open(clipFile(t), func(error) {})
		require.ErrorContains(t, err, "failed to open playback device")
		assert.True(t, stream.closed)
		assert.Zero(t, out.Duration())
	})

	t.Run("already open", func(t *testing.T) {
		t.Parallel()

		out, _ := newFakeOutput(&fakeStream{total: 10}, nil, nil)
		path := clipFile(t)

		require.NoError(t, out.Open(path, func(error) {}))
		require.Error(t, out.Open(path, func(error) {}))
	})
}

func TestMicrophoneAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		captureErr error
		expected   bool
	}{
		{name: "granted", captureErr: nil, expected: true},
		{name: "denied", captureErr: errors.New("permission denied"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			factory := &sourceFactory{prepare: func(s *fakeSource) { s.captureErr = tt.captureErr }}
			access := audio.NewMicrophoneAccess(audio.DeviceConfig{}, factory.New, nil)

			resolved := make(chan bool, 1)
			access.Request(func(granted bool) { resolved <- granted })

			granted, ok := waitFor(resolved)
			require.True(t, ok)
			assert.Equal(t, tt.expected, granted)
			assert.True(t, factory.last().isDeallocated(), "the access check releases the device")
		})
	}
}

func TestFileOutput_PlaysRecordedClip(t *testing.T) {
	t.Parallel()

	factory := &sourceFactory{}
	in := audio.NewFileInput(factory.New, nil)
	dest := filepath.Join(t.TempDir(), "recording.wav")

	recordedC := openInput(t, in, dest)
	// half a second at 12kHz
	factory.last().emit(6000)
	require.NoError(t, in.Stop())

	recorded, ok := waitFor(recordedC)
	require.True(t, ok)
	require.NoError(t, recorded.err)

	sink := &fakeSink{}
	openSink := func(conf audio.DeviceConfig, fill audio.FillFunc) (audio.Sink, error) {
		sink.conf = conf
		sink.fill = fill

		return sink, nil
	}

	out := audio.NewFileOutput(nil, openSink, nil)

	doneC := make(chan error, 1)
	require.NoError(t, out.Open(dest, func(err error) { doneC <- err }))

	assert.Equal(t, 12000, sink.conf.SampleRate)
	assert.Equal(t, recorded.info.Duration, out.Duration())

	require.NoError(t, out.Play())
	sink.pull(4000)
	assert.Equal(t, 4000*time.Second/12000, out.CurrentPosition())

	sink.pull(4000)

	err, ok := waitFor(doneC)
	require.True(t, ok, "done was not called at end of clip")
	require.NoError(t, err)
	assert.Equal(t, out.Duration(), out.CurrentPosition())

	require.NoError(t, out.Stop())
}
