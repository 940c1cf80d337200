package output

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/oszuidwest/signaltone/internal/audio"
)

// otoOutput plays through the platform default device via oto.
// Oto allows a single context per process.
type otoOutput struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	opts   audio.Options
}

func openOto(opts audio.Options) (audio.Output, error) {
	if opts.Device != audio.DefaultDevice {
		return nil, fmt.Errorf("%w: backend %s only supports the default device, got index %d",
			audio.ErrDeviceUnavailable, audio.BackendOto, opts.Device)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   opts.BufferDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audio.ErrDeviceUnavailable, err)
	}
	<-ready

	return &otoOutput{ctx: ctx, opts: opts}, nil
}

func (o *otoOutput) Start(src audio.Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already started")
	}
	o.player = o.ctx.NewPlayer(newPCMReader(src, o.opts.BufferSize))
	o.player.SetBufferSize(o.opts.BufferSize * 2)
	o.player.Play()
	return o.player.Err()
}

func (o *otoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	return err
}
