package audio

import (
	"log/slog"

	"github.com/alkime/whistle/internal/session"
)

// MicrophoneAccess resolves microphone permission by allocating a capture
// device. Platforms that gate the microphone show their prompt during the
// allocation and fail it when access is refused.
type MicrophoneAccess struct {
	conf      DeviceConfig
	newSource NewSourceFunc
	log       *slog.Logger
}

var _ session.Access = (*MicrophoneAccess)(nil)

// NewMicrophoneAccess creates an access check for conf. A nil newSource
// checks the default malgo device.
func NewMicrophoneAccess(conf DeviceConfig, newSource NewSourceFunc, log *slog.Logger) *MicrophoneAccess {
	if log == nil {
		log = slog.Default()
	}

	if newSource == nil {
		newSource = func(conf DeviceConfig) Source { return NewSource(conf, log) }
	}

	return &MicrophoneAccess{conf: conf, newSource: newSource, log: log}
}

// Request opens the device in the background and reports the outcome.
func (m *MicrophoneAccess) Request(resolved func(granted bool)) {
	go func() {
		resolved(m.tryOpen())
	}()
}

func (m *MicrophoneAccess) tryOpen() bool {
	src := m.newSource(m.conf)
	defer src.Dealloc()

	// packets are never read; the device is not started
	if err := src.CaptureInto(make(chan DataPacket)); err != nil {
		m.log.Warn("microphone unavailable", "error", err)
		return false
	}

	return true
}
