package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/whistle/pkg/channels"
	"github.com/alkime/whistle/pkg/collections"
	"github.com/gen2brain/malgo"
)

// DataPacket is one callback's worth of S16LE PCM.
type DataPacket = []byte

// Source is a capture device. Packets are delivered to the channel given to
// CaptureInto while the source is started.
type Source interface {
	CaptureInto(dataC chan<- DataPacket) error
	Start() error
	Stop() error
	// Dealloc releases the device. No packets are delivered after it returns.
	Dealloc()
}

// Sink is a playback device. It pulls PCM through the fill func it was
// opened with while started.
type Sink interface {
	Start() error
	Stop() error
	Close()
}

// FillFunc writes exactly len(out) bytes of interleaved S16LE PCM.
type FillFunc func(out []byte)

// OpenSinkFunc opens a playback device for the given stream shape.
type OpenSinkFunc func(conf DeviceConfig, fill FillFunc) (Sink, error)

// device wraps a malgo context and device of either direction.
type device struct {
	conf DeviceConfig
	log  *slog.Logger

	mu       sync.Mutex
	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

// NewSource returns a malgo capture device.
func NewSource(conf DeviceConfig, log *slog.Logger) Source {
	return &device{conf: conf, log: log} //nolint:exhaustruct // allocated in CaptureInto
}

// OpenSink is an OpenSinkFunc backed by malgo.
func OpenSink(conf DeviceConfig, fill FillFunc) (Sink, error) {
	d := &device{conf: conf, log: slog.Default()} //nolint:exhaustruct // allocated below

	err := d.alloc(malgo.Playback, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			fill(out)
		},
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}

func (d *device) CaptureInto(dataC chan<- DataPacket) error {
	if dataC == nil {
		return errors.New("data channel is nil. unable to allocate device")
	}

	return d.alloc(malgo.Capture, malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the buffer after the callback returns
			packet := make([]byte, len(samples))
			copy(packet, samples)

			if err := channels.SendNonBlock(dataC, packet); err != nil {
				d.log.Debug("dropped capture packet", "error", err)
			}
		},
	})
}

func (d *device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil {
		return errors.New("device not allocated")
	}

	if d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

func (d *device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil || !d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (d *device) Dealloc() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil {
		return
	}

	d.mgDevice.Uninit()
	uninitializeContext(d.mgCtx)
	d.mgDevice = nil
	d.mgCtx = nil
}

func (d *device) Close() {
	d.Dealloc()
}

func (d *device) alloc(devType malgo.DeviceType, callbacks malgo.DeviceCallbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice != nil {
		return errors.New("device already allocated")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devCnf := malgo.DefaultDeviceConfig(devType)
	devCnf.SampleRate = uint32(d.conf.SampleRate) //nolint:gosec // validated sample rate

	switch devType { //nolint:exhaustive // duplex and loopback are not used
	case malgo.Capture:
		devCnf.Capture.Format = d.conf.Format
		devCnf.Capture.Channels = uint32(d.conf.Channels) //nolint:gosec // validated channel count
	case malgo.Playback:
		devCnf.Playback.Format = d.conf.Format
		devCnf.Playback.Channels = uint32(d.conf.Channels) //nolint:gosec // validated channel count
	default:
		uninitializeContext(mgCtx)
		return fmt.Errorf("unsupported device type: %v", devType)
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		uninitializeContext(mgCtx)
		return fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	d.mgCtx = mgCtx
	d.mgDevice = mgDevice

	return nil
}

// Info describes an audio device for listing.
type Info struct {
	Name      string
	IsDefault bool
	Formats   []string
}

// EnumerateDevices lists capture and playback devices.
func EnumerateDevices(_ context.Context) (capture, playback []Info, err error) {
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	playbackDevices, err := devCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get playback devices: %w", err)
	}

	return collections.Apply(captureDevices, toInfo), collections.Apply(playbackDevices, toInfo), nil
}

func toInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, 0, mdi.FormatCount)
	for i, mf := range mdi.Formats {
		if i >= int(mdi.FormatCount) {
			break
		}

		formats = append(formats, fmt.Sprintf("%d Hz, %d ch, %d-bit",
			mf.SampleRate, mf.Channels, malgo.SampleSizeInBytes(mf.Format)*8))
	}

	return Info{
		Name:      mdi.Name(),
		IsDefault: mdi.IsDefault != 0,
		Formats:   formats,
	}
}

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}

	deviceCtx.Free()
}
