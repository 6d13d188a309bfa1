package session

import (
	"errors"
	"fmt"
	"time"
)

// Codec identifies the compressed encoding used for the clip.
type Codec string

// CodecMuLaw is G.711 μ-law: 16-bit samples companded to 8 bits.
const CodecMuLaw Codec = "ulaw"

// Quality is the encoder quality tier.
type Quality string

// QualityHigh is the only tier a clip is recorded with.
const QualityHigh Quality = "high"

// Profile describes how the input backend encodes a clip.
type Profile struct {
	Channels   int
	SampleRate int
	Codec      Codec
	Quality    Quality
}

// ClipProfile is the fixed recording contract. Every clip is encoded with it.
var ClipProfile = Profile{
	Channels:   1,
	SampleRate: 12_000,
	Codec:      CodecMuLaw,
	Quality:    QualityHigh,
}

// Validate returns an error unless p is exactly ClipProfile.
func (p Profile) Validate() error {
	if p.Channels != ClipProfile.Channels {
		return errors.New("only mono (1 channel) is supported")
	}

	if p.SampleRate != ClipProfile.SampleRate {
		return fmt.Errorf("sample rate must be %d Hz", ClipProfile.SampleRate)
	}

	if p.Codec != ClipProfile.Codec {
		return fmt.Errorf("codec must be %s", ClipProfile.Codec)
	}

	if p.Quality != ClipProfile.Quality {
		return fmt.Errorf("quality must be %s", ClipProfile.Quality)
	}

	return nil
}

// ClipInfo is what the input backend reports when a recording completes.
type ClipInfo struct {
	// Location of the finished clip. Empty means the destination passed to Open.
	Location string
	// Duration of captured audio, zero if unknown.
	Duration time.Duration
	// Bytes is the size of the clip file.
	Bytes int64
}
