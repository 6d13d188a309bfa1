package audio

import "errors"

const (
	// DefaultBufferThreshold is 4KB = 2048 mono samples, about 170ms @ 12kHz.
	DefaultBufferThreshold = 4096
	// DefaultSampleRate matches the clip profile.
	DefaultSampleRate = 12_000
	// DefaultChannels is mono (1 channel).
	DefaultChannels = 1
)

// EncoderConfig configures the streaming encoder.
type EncoderConfig struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// Channels is the number of input channels. Only mono is accepted.
	Channels int

	// BufferThreshold is the number of PCM bytes to accumulate before encoding.
	BufferThreshold int
}

// Validate returns an error if the config is invalid.
func (c EncoderConfig) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	if c.Channels != 1 {
		return errors.New("only mono (1 channel) is supported")
	}

	if c.BufferThreshold <= 0 {
		return errors.New("buffer threshold must be positive")
	}

	return nil
}

// WithDefaults returns a config with default values applied to zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}

	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}

	return c
}
