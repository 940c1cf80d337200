package output

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/oszuidwest/signaltone/internal/audio"
)

// portAudioOutput plays through a PortAudio device chosen by index.
type portAudioOutput struct {
	mu     sync.Mutex
	params portaudio.StreamParameters
	stream *portaudio.Stream
}

func openPortAudio(opts audio.Options) (audio.Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
	}

	dev, err := portAudioDevice(opts.Device)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
	}
	slog.Info("using audio device", "backend", audio.BackendPortAudio, "index", dev.Index, "name", dev.Name)

	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = 1
	params.SampleRate = float64(opts.SampleRate)
	params.FramesPerBuffer = opts.BufferSize

	return &portAudioOutput{params: params}, nil
}

// portAudioDevice returns the output device at index, or the default device.
func portAudioDevice(index int) (*portaudio.DeviceInfo, error) {
	if index == audio.DefaultDevice {
		return portaudio.DefaultOutputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		slog.Debug("audio device", "index", d.Index, "name", d.Name, "outputs", d.MaxOutputChannels)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (%d devices)", index, len(devices))
	}
	dev := devices[index]
	if dev.MaxOutputChannels < 1 {
		return nil, fmt.Errorf("device %d (%s) has no output channels", index, dev.Name)
	}
	return dev, nil
}

func (o *portAudioOutput) Start(src audio.Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stream != nil {
		return fmt.Errorf("portaudio output already started")
	}
	stream, err := portaudio.OpenStream(o.params, func(out []int16) {
		src.Fill(out)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
	}
	o.stream = stream
	return nil
}

func (o *portAudioOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	if o.stream != nil {
		if err := o.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop stream: %w", err))
		}
		if err := o.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}
		o.stream = nil
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("terminate: %w", err))
	}
	return errors.Join(errs...)
}
