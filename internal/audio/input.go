package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/whistle/internal/session"
	"github.com/alkime/whistle/pkg/channels"
)

const (
	// levelWindow is how many samples are kept for the level meter.
	levelWindow = 4096
	// encoderSendTimeout bounds how long capture waits on a busy encoder.
	encoderSendTimeout = 100 * time.Millisecond
)

// NewSourceFunc creates the capture device for one recording.
type NewSourceFunc func(conf DeviceConfig) Source

// FileInput is a session.AudioInput that captures PCM from a Source and
// streams it through the encoder into the destination file.
type FileInput struct {
	newSource NewSourceFunc
	log       *slog.Logger
	levels    *SampleRingBuffer

	mu  sync.Mutex
	rec *recording
}

var _ session.AudioInput = (*FileInput)(nil)

// NewFileInput creates an input. A nil newSource captures from the default
// malgo device.
func NewFileInput(newSource NewSourceFunc, log *slog.Logger) *FileInput {
	if log == nil {
		log = slog.Default()
	}

	log = log.With("component", "input")

	if newSource == nil {
		newSource = func(conf DeviceConfig) Source { return NewSource(conf, log) }
	}

	return &FileInput{ //nolint:exhaustruct // mu, rec start empty
		newSource: newSource,
		log:       log,
		levels:    NewSampleRingBuffer(levelWindow),
	}
}

// recording is one Open..done cycle. Audio goes to a temporary file next
// to dest that is renamed onto dest once finalized.
type recording struct {
	dest    string
	part    string
	prev    *recording
	source  Source
	file    *os.File
	written *countingWriter
	enc     *StreamingEncoder
	bc      *channels.Broadcaster[DataPacket]
	encC    chan DataPacket
	levelC  chan DataPacket
	cancel  context.CancelFunc
	done    func(session.ClipInfo, error)

	stopping atomic.Bool
	once     sync.Once
	finished chan struct{}
}

// Open starts capturing into dest. It does not wait for a previous
// recording that is still being finalized; the new clip replaces dest only
// after that one has.
func (in *FileInput) Open(dest string, profile session.Profile, done func(session.ClipInfo, error)) error {
	conf, err := CaptureConfig(profile)
	if err != nil {
		return err
	}

	in.mu.Lock()
	prev := in.rec
	in.mu.Unlock()

	if prev != nil && !prev.stopping.Load() {
		return errors.New("recording already in progress")
	}

	rec, err := in.start(dest, conf, prev, done)
	if err != nil {
		return err
	}

	in.mu.Lock()
	in.rec = rec
	in.mu.Unlock()

	in.log.Info("recording started", "dest", dest, "sampleRate", conf.SampleRate)

	return nil
}

func (in *FileInput) start(
	dest string,
	conf DeviceConfig,
	prev *recording,
	done func(session.ClipInfo, error),
) (*recording, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create clip directory: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create clip file for %s: %w", dest, err)
	}

	rec := &recording{ //nolint:exhaustruct // flags and once start at zero values
		dest:     dest,
		part:     file.Name(),
		prev:     prev,
		file:     file,
		written:  &countingWriter{w: file}, //nolint:exhaustruct // counter starts at zero
		encC:     make(chan DataPacket, 64),
		levelC:   make(chan DataPacket, 8),
		bc:       channels.NewBroadcaster[DataPacket](),
		done:     done,
		finished: make(chan struct{}),
	}

	fail := func(err error) (*recording, error) {
		_ = file.Close()
		_ = os.Remove(rec.part)

		return nil, err
	}

	if err := file.Chmod(0o644); err != nil {
		return fail(fmt.Errorf("failed to set clip file mode: %w", err))
	}

	rec.enc, err = NewStreamingEncoder(conf.EncoderConfig(), rec.encC, rec.written)
	if err != nil {
		return fail(err)
	}

	if err := rec.bc.SubscribeWithTimeout(rec.encC, encoderSendTimeout); err != nil {
		return fail(err)
	}

	if err := rec.bc.Subscribe(rec.levelC); err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec.cancel = cancel

	packets, err := rec.bc.Run(ctx)
	if err != nil {
		cancel()
		return fail(err)
	}

	// the encoder only stops early on a write failure
	if err := rec.enc.Start(context.Background()); err != nil {
		cancel()
		return fail(err)
	}

	in.levels.Reset()

	go func() {
		for packet := range rec.levelC {
			in.levels.Write(BytesToInt16(packet))
		}
	}()

	rec.source = in.newSource(conf)

	if err := rec.source.CaptureInto(packets); err != nil {
		_ = rec.teardown()
		_ = os.Remove(rec.part)

		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}

	if err := rec.source.Start(); err != nil {
		_ = rec.teardown()
		_ = os.Remove(rec.part)

		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	go func() {
		if err := rec.enc.Wait(); err != nil {
			in.finish(rec)
		}
	}()

	return rec, nil
}

// Pause stops the capture device without finalizing the clip.
func (in *FileInput) Pause() error {
	rec, err := in.active()
	if err != nil {
		return err
	}

	if err := rec.source.Stop(); err != nil {
		return fmt.Errorf("failed to pause capture: %w", err)
	}

	return nil
}

// Resume restarts the capture device.
func (in *FileInput) Resume() error {
	rec, err := in.active()
	if err != nil {
		return err
	}

	if err := rec.source.Start(); err != nil {
		return fmt.Errorf("failed to resume capture: %w", err)
	}

	return nil
}

// Stop begins finalizing the recording. The done func passed to Open is
// called once the clip file is complete.
func (in *FileInput) Stop() error {
	rec, err := in.active()
	if err != nil {
		return err
	}

	in.finish(rec)

	return nil
}

// Wait blocks until a stopped recording is finalized and its file is in
// place or removed. It returns at once when nothing is being finalized.
func (in *FileInput) Wait() {
	in.mu.Lock()
	rec := in.rec
	in.mu.Unlock()

	if rec != nil && rec.stopping.Load() {
		<-rec.finished
	}
}

// IsActive reports whether a recording is capturing or paused.
func (in *FileInput) IsActive() bool {
	_, err := in.active()
	return err == nil
}

// Levels exposes recent samples for the level meter.
func (in *FileInput) Levels() *SampleRingBuffer {
	return in.levels
}

// BytesWritten is the size of the clip written so far by the current or
// last recording.
func (in *FileInput) BytesWritten() int64 {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.rec == nil {
		return 0
	}

	return in.rec.written.n.Load()
}

func (in *FileInput) active() (*recording, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.rec == nil || in.rec.stopping.Load() {
		return nil, errors.New("no active recording")
	}

	return in.rec, nil
}

// finish finalizes rec once, off the caller's goroutine.
func (in *FileInput) finish(rec *recording) {
	rec.once.Do(func() {
		rec.stopping.Store(true)

		go func() {
			info, err := rec.finalize()
			if err != nil {
				in.log.Error("recording failed", "dest", rec.dest, "error", err)
			} else {
				in.log.Info("recording finalized", "dest", rec.dest, "duration", info.Duration, "bytes", info.Bytes)
			}

			close(rec.finished)
			rec.done(info, err)
		}()
	})
}

// finalize stops capture, drains the pipeline and moves the clip file onto
// dest once the previous recording has done the same.
func (r *recording) finalize() (session.ClipInfo, error) {
	err := r.teardown()

	if r.prev != nil {
		<-r.prev.finished
		r.prev = nil
	}

	if err != nil {
		_ = os.Remove(r.part)
		return session.ClipInfo{}, fmt.Errorf("failed to finalize clip: %w", err)
	}

	if err := os.Rename(r.part, r.dest); err != nil {
		_ = os.Remove(r.part)
		return session.ClipInfo{}, fmt.Errorf("failed to save clip: %w", err)
	}

	return session.ClipInfo{
		Location: r.dest,
		Duration: r.enc.Duration(),
		Bytes:    r.written.n.Load(),
	}, nil
}

// teardown releases the device and pipeline in dependency order and
// returns the encoder's error, if any.
func (r *recording) teardown() error {
	var errs []error

	if r.source != nil {
		if err := r.source.Stop(); err != nil {
			errs = append(errs, err)
		}

		r.source.Dealloc()
	}

	r.cancel()
	r.bc.Wait()
	close(r.encC)
	close(r.levelC)

	encErr := r.enc.Wait()

	if err := r.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close clip file: %w", err))
	}

	if encErr != nil {
		return errors.Join(append([]error{encErr}, errs...)...)
	}

	return errors.Join(errs...)
}

// countingWriter tracks the size of the file written through it. Header
// rewrites seek back and do not grow it.
type countingWriter struct {
	w   io.WriteSeeker
	pos int64
	n   atomic.Int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += int64(n)

	if c.pos > c.n.Load() {
		c.n.Store(c.pos)
	}

	return n, err
}

func (c *countingWriter) Seek(offset int64, whence int) (int64, error) {
	pos, err := c.w.Seek(offset, whence)
	if err == nil {
		c.pos = pos
	}

	return pos, err
}
