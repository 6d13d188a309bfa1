package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
	"github.com/zaf/g711"
)

// Decode reads a clip written by StreamingEncoder into memory and returns a
// seekable stream of it. rc is closed before Decode returns.
func Decode(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	defer rc.Close()

	rs, ok := rc.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("failed to read clip: %w", err)
		}

		rs = bytes.NewReader(data)
	}

	dec := wav.NewDecoder(rs)

	dec.ReadInfo()

	if err := dec.Err(); err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to read clip header: %w", err)
	}

	if dec.WavAudioFormat != wavFormatMuLaw || dec.BitDepth != muLawBitDepth || dec.NumChans != 1 || dec.SampleRate == 0 {
		return nil, beep.Format{}, fmt.Errorf("unsupported clip format (tag %d, %d bit, %d channels)",
			dec.WavAudioFormat, dec.BitDepth, dec.NumChans)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to find clip data: %w", err)
	}

	if dec.PCMChunk == nil {
		return nil, beep.Format{}, errors.New("clip has no audio data")
	}

	ulaw, err := io.ReadAll(dec.PCMChunk.R)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to read clip data: %w", err)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(dec.SampleRate),
		NumChannels: 1,
		Precision:   bytesPerSample,
	}

	pcm := g711.DecodeUlaw(ulaw)

	buf := beep.NewBuffer(format)
	buf.Append(beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if len(pcm) < format.Width() {
			return 0, false
		}

		n := 0
		for n < len(samples) && len(pcm) >= format.Width() {
			sample, advance := format.DecodeSigned(pcm)
			samples[n] = sample
			pcm = pcm[advance:]
			n++
		}

		return n, true
	}))

	return clipStream{buf.Streamer(0, buf.Len())}, format, nil
}

// clipStream is a fully decoded clip; there is nothing left to release.
type clipStream struct {
	beep.StreamSeeker
}

func (clipStream) Close() error {
	return nil
}
