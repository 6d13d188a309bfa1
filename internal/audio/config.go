package audio

import (
	"fmt"

	"github.com/alkime/whistle/internal/session"
	"github.com/gen2brain/malgo"
)

// bytesPerSample is the size of one S16LE sample.
const bytesPerSample = 2

// DeviceConfig describes the PCM stream a device produces or consumes.
type DeviceConfig struct {
	Format     malgo.FormatType
	Channels   int
	SampleRate int
}

// CaptureConfig maps a recording profile onto the device format the
// capture pipeline expects: signed 16-bit samples at the profile's rate.
func CaptureConfig(p session.Profile) (DeviceConfig, error) {
	if err := p.Validate(); err != nil {
		return DeviceConfig{}, fmt.Errorf("unsupported recording profile: %w", err)
	}

	return DeviceConfig{
		Format:     malgo.FormatS16,
		Channels:   p.Channels,
		SampleRate: p.SampleRate,
	}, nil
}

// EncoderConfig returns the encoder settings for a capture config.
func (c DeviceConfig) EncoderConfig() EncoderConfig {
	return EncoderConfig{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
	}.WithDefaults()
}

// BytesPerSecond is the PCM data rate of the stream.
func (c DeviceConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * bytesPerSample
}
