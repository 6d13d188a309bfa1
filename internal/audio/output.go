package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alkime/whistle/internal/session"
	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
)

// playbackChannels is the channel count of every playback device. Mono
// clips are rendered to both channels.
const playbackChannels = 2

// DecodeFunc decodes an encoded clip into a seekable stream.
type DecodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// FileOutput is a session.AudioOutput that decodes a clip and plays it on a
// Sink.
type FileOutput struct {
	decode   DecodeFunc
	openSink OpenSinkFunc
	log      *slog.Logger

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	sink     Sink
	frames   [][2]float64
	done     func(error)
	ended    bool
}

var _ session.AudioOutput = (*FileOutput)(nil)

// NewFileOutput creates an output. Nil arguments select Decode and the
// malgo playback device.
func NewFileOutput(decode DecodeFunc, openSink OpenSinkFunc, log *slog.Logger) *FileOutput {
	if decode == nil {
		decode = Decode
	}

	if openSink == nil {
		openSink = OpenSink
	}

	if log == nil {
		log = slog.Default()
	}

	return &FileOutput{ //nolint:exhaustruct // playback state is set by Open
		decode:   decode,
		openSink: openSink,
		log:      log.With("component", "output"),
	}
}

// Open decodes the clip at source and prepares a playback device. On error
// nothing stays open.
func (o *FileOutput) Open(source string, done func(error)) error {
	o.mu.Lock()
	busy := o.streamer != nil
	o.mu.Unlock()

	if busy {
		return errors.New("playback already open")
	}

	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open clip: %w", err)
	}

	streamer, format, err := o.decode(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to decode clip: %w", err)
	}

	o.mu.Lock()
	o.streamer = streamer
	o.format = format
	o.done = done
	o.ended = false
	o.mu.Unlock()

	sink, err := o.openSink(DeviceConfig{
		Format:     malgo.FormatS16,
		Channels:   playbackChannels,
		SampleRate: int(format.SampleRate),
	}, o.fill)
	if err != nil {
		o.closeStreamer()
		return fmt.Errorf("failed to open playback device: %w", err)
	}

	o.mu.Lock()
	o.sink = sink
	o.mu.Unlock()

	o.log.Debug("playback opened", "source", source, "sampleRate", format.SampleRate, "duration", o.Duration())

	return nil
}

// Play starts or continues playback.
func (o *FileOutput) Play() error {
	sink, err := o.currentSink()
	if err != nil {
		return err
	}

	if err := sink.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	return nil
}

// Pause halts playback, keeping the position.
func (o *FileOutput) Pause() error {
	sink, err := o.currentSink()
	if err != nil {
		return err
	}

	if err := sink.Stop(); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	return nil
}

// Stop releases the device and the decoded stream. The done func is not
// called for a stopped playback. Stopping when nothing is open is a no-op.
func (o *FileOutput) Stop() error {
	o.mu.Lock()
	sink := o.sink
	o.sink = nil
	o.done = nil
	o.mu.Unlock()

	var err error

	// the device must be stopped before the stream it reads goes away
	if sink != nil {
		err = sink.Stop()
		sink.Close()
	}

	o.closeStreamer()

	return err
}

// CurrentPosition is the playback position within the clip.
func (o *FileOutput) CurrentPosition() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.streamer == nil {
		return 0
	}

	return o.format.SampleRate.D(o.streamer.Position())
}

// Duration is the length of the open clip.
func (o *FileOutput) Duration() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.streamer == nil {
		return 0
	}

	return o.format.SampleRate.D(o.streamer.Len())
}

func (o *FileOutput) currentSink() (Sink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sink == nil {
		return nil, errors.New("playback not open")
	}

	return o.sink, nil
}

func (o *FileOutput) closeStreamer() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.streamer == nil {
		return
	}

	if err := o.streamer.Close(); err != nil {
		o.log.Warn("failed to close clip stream", "error", err)
	}

	o.streamer = nil
}

// fill is the device callback. It renders the next frames as S16LE stereo
// and pads with silence once the stream is exhausted.
func (o *FileOutput) fill(out []byte) {
	o.mu.Lock()

	want := len(out) / (playbackChannels * bytesPerSample)
	n := 0

	if o.streamer != nil && !o.ended {
		if cap(o.frames) < want {
			o.frames = make([][2]float64, want)
		}

		frames := o.frames[:want]

		for n < want {
			got, ok := o.streamer.Stream(frames[n:])
			n += got

			if !ok || got == 0 {
				break
			}
		}

		samples := make([]int16, 0, n*playbackChannels)
		for _, frame := range frames[:n] {
			samples = append(samples, toInt16(frame[0]), toInt16(frame[1]))
		}

		Int16ToBytes(out, samples)
	}

	clear(out[n*playbackChannels*bytesPerSample:])

	var (
		done   func(error)
		result error
	)

	if o.streamer != nil && !o.ended && n < want {
		o.ended = true
		done, result = o.done, o.streamer.Err()
		o.done = nil
	}

	o.mu.Unlock()

	if done != nil {
		go done(result)
	}
}

func toInt16(v float64) int16 {
	return int16(max(-1, min(1, v)) * 32767)
}
