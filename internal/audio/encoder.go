package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/zaf/g711"
)

const (
	// wavFormatMuLaw is the WAVE format tag for G.711 μ-law.
	wavFormatMuLaw = 7
	// muLawBitDepth is the size of one encoded sample.
	muLawBitDepth = 8
)

// StreamingEncoder reads S16LE mono PCM from a channel, buffers it up to a
// threshold and encodes each batch to G.711 μ-law in a WAV container.
//
// Encoding stops cleanly when the input channel is closed; the container
// header is finalized then. Cancelling the context aborts it and Wait
// reports the cancellation.
type StreamingEncoder struct {
	config EncoderConfig
	input  <-chan []byte
	output io.WriteSeeker

	encoder *wav.Encoder
	buffer  []byte
	samples atomic.Int64

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// NewStreamingEncoder creates an encoder. Returns an error if config is
// invalid or input or output is nil.
func NewStreamingEncoder(
	config EncoderConfig,
	input <-chan []byte,
	output io.WriteSeeker,
) (*StreamingEncoder, error) {
	if input == nil {
		return nil, errors.New("input channel cannot be nil")
	}

	if output == nil {
		return nil, errors.New("output writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	return &StreamingEncoder{ //nolint:exhaustruct // wg, errOnce, err initialized on Start()
		config: config,
		input:  input,
		output: output,
		buffer: make([]byte, 0, config.BufferThreshold),
	}, nil
}

// Start writes the container header and begins the encoding goroutine.
// Returns error if already started or the header cannot be written.
func (e *StreamingEncoder) Start(ctx context.Context) error {
	if e.encoder != nil {
		return errors.New("encoder already started")
	}

	e.encoder = wav.NewEncoder(e.output, e.config.SampleRate, muLawBitDepth, e.config.Channels, wavFormatMuLaw)

	if err := e.encoder.Write(e.frames(nil)); err != nil {
		return fmt.Errorf("failed to write clip header: %w", err)
	}

	e.wg.Go(func() {
		for {
			select {
			case data, ok := <-e.input:
				if !ok {
					if err := e.flush(); err != nil {
						e.setError(err)
					}

					return
				}

				e.buffer = append(e.buffer, data...)

				if len(e.buffer) >= e.config.BufferThreshold {
					if err := e.encodeBatch(); err != nil {
						e.setError(err)
						return
					}
				}

			case <-ctx.Done():
				e.setError(fmt.Errorf("encoder context cancelled: %w", ctx.Err()))
				return
			}
		}
	})

	return nil
}

// encodeBatch encodes the whole samples in the buffer. A trailing odd byte
// stays buffered for the next batch.
func (e *StreamingEncoder) encodeBatch() error {
	numSamples := len(e.buffer) / bytesPerSample
	if numSamples == 0 {
		return nil
	}

	ulaw := g711.EncodeUlaw(e.buffer[:numSamples*bytesPerSample])

	if err := e.encoder.Write(e.frames(ulaw)); err != nil {
		return fmt.Errorf("failed to encode audio: %w", err)
	}

	e.samples.Add(int64(numSamples))
	e.buffer = append(e.buffer[:0], e.buffer[numSamples*bytesPerSample:]...)

	return nil
}

// frames wraps encoded bytes for the container writer, which stores each
// value as one 8-bit sample.
func (e *StreamingEncoder) frames(ulaw []byte) *goaudio.IntBuffer {
	data := make([]int, len(ulaw))
	for i, b := range ulaw {
		data[i] = int(b)
	}

	return &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: e.config.Channels,
			SampleRate:  e.config.SampleRate,
		},
		Data:           data,
		SourceBitDepth: muLawBitDepth,
	}
}

func (e *StreamingEncoder) flush() error {
	if err := e.encodeBatch(); err != nil {
		return fmt.Errorf("failed to flush encoder: %w", err)
	}

	if err := e.encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize clip header: %w", err)
	}

	return nil
}

// Wait blocks until encoding completes and returns any error that occurred.
// Safe to call from several goroutines.
func (e *StreamingEncoder) Wait() error {
	e.wg.Wait()

	return e.err
}

// Samples is the number of mono samples encoded so far.
func (e *StreamingEncoder) Samples() int64 {
	return e.samples.Load()
}

// Duration is the length of the audio encoded so far.
func (e *StreamingEncoder) Duration() time.Duration {
	return time.Duration(e.Samples()) * time.Second / time.Duration(e.config.SampleRate)
}

// setError records the first error that occurs (subsequent calls are no-ops).
func (e *StreamingEncoder) setError(err error) {
	e.errOnce.Do(func() {
		e.err = err
	})
}
