package producer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oszuidwest/signaltone/internal/eventlog"
	"github.com/oszuidwest/signaltone/internal/evdev"
	"github.com/oszuidwest/signaltone/internal/signals"
	"github.com/oszuidwest/signaltone/internal/tone"
	"github.com/oszuidwest/signaltone/internal/types"
	"github.com/oszuidwest/signaltone/internal/util"
)

// Reopen delays after an input device is lost.
const (
	ReopenInitialDelay = 100 * time.Millisecond
	ReopenMaxDelay     = 30 * time.Second
)

// DeviceProducer maps one input device to one tone. Every non-sync event
// switches the tone: a non-zero value activates it, zero deactivates it.
type DeviceProducer struct {
	device  string
	key     tone.Key
	finder  Finder
	active  *signals.ActiveSet
	events  Recorder
	backoff *util.Backoff
	state   stateHolder

	// on mirrors the last value applied, to log transitions only.
	on bool
}

// NewDeviceProducer returns a producer for the first input device whose name
// contains device. events may be nil.
func NewDeviceProducer(device string, key tone.Key, finder Finder, active *signals.ActiveSet, events Recorder) *DeviceProducer {
	return &DeviceProducer{
		device:  device,
		key:     key,
		finder:  finder,
		active:  active,
		events:  events,
		backoff: util.NewBackoff(ReopenInitialDelay, ReopenMaxDelay),
	}
}

// Name returns "input:" followed by the tone key.
func (p *DeviceProducer) Name() string {
	return "input:" + p.key.String()
}

// State reports the producer state.
func (p *DeviceProducer) State() types.ProducerState {
	return p.state.get()
}

// Run finds the device and applies its events until ctx is cancelled. A device
// that is absent at startup disables the producer and Run returns nil. A
// device lost later deactivates the tone and is re-found with backoff.
func (p *DeviceProducer) Run(ctx context.Context) error {
	dev, err := p.finder.Find(p.device)
	if err != nil {
		p.state.set(types.ProducerDisabled)
		missing := errors.Is(err, evdev.ErrDeviceNotFound)
		msg := "input device not found, tone disabled"
		if !missing {
			msg = "input device could not be opened, tone disabled"
		}
		record(p.events, eventlog.NewDeviceEvent(eventlog.DeviceMissing, p.device, p.key, msg,
			&eventlog.DeviceDetails{Device: p.device, Error: err.Error()}))
		if missing {
			slog.Info(msg, "device", p.device, "tone", p.key.String())
			return nil
		}
		return util.WrapError("open input device "+p.device, err)
	}

	slog.Info("listening for input events", "device", p.device, "path", dev.Info().Path, "tone", p.key.String())
	for {
		p.state.set(types.ProducerWaiting)
		err := p.consume(ctx, dev)
		p.apply(false)
		if ctx.Err() != nil {
			p.state.set(types.ProducerStopped)
			return nil
		}

		path := dev.Info().Path
		slog.Warn("input device lost", "device", p.device, "path", path, "tone", p.key.String(), "error", err)
		record(p.events, eventlog.NewDeviceEvent(eventlog.DeviceLost, p.device, p.key, "input device lost",
			&eventlog.DeviceDetails{Device: p.device, Path: path, Error: err.Error()}))

		p.state.set(types.ProducerReconnecting)
		if dev = p.reopen(ctx); dev == nil {
			p.state.set(types.ProducerStopped)
			return nil
		}
	}
}

// consume reads events from dev until a read fails. Cancelling ctx closes dev
// to unblock the pending read. dev is always closed on return.
func (p *DeviceProducer) consume(ctx context.Context, dev Device) error {
	stop := context.AfterFunc(ctx, func() { _ = dev.Close() })
	defer func() {
		if stop() {
			_ = dev.Close()
		}
	}()

	for {
		ev, err := dev.ReadEvent()
		if errors.Is(err, evdev.ErrShortEvent) {
			slog.Warn("dropping malformed input event", "device", p.device)
			continue
		}
		if err != nil {
			return err
		}
		if ev.IsSync() {
			continue
		}
		p.apply(ev.Value != 0)
	}
}

// apply writes the tone state to the active set and logs transitions.
func (p *DeviceProducer) apply(on bool) {
	p.active.Set(p.key, on)
	if on == p.on {
		return
	}
	p.on = on
	slog.Debug("signal changed", "device", p.device, "tone", p.key.String(), "on", on)
	record(p.events, eventlog.NewSignalEvent(p.device, p.key, on))
}

// reopen retries Find with exponential backoff. It returns nil once ctx is
// cancelled.
func (p *DeviceProducer) reopen(ctx context.Context) Device {
	p.backoff.Reset()
	for {
		if !util.Sleep(ctx, p.backoff.Next()) {
			return nil
		}
		dev, err := p.finder.Find(p.device)
		if err == nil {
			path := dev.Info().Path
			slog.Info("input device reopened", "device", p.device, "path", path, "tone", p.key.String())
			record(p.events, eventlog.NewDeviceEvent(eventlog.DeviceReopened, p.device, p.key, "input device reopened",
				&eventlog.DeviceDetails{Device: p.device, Path: path}))
			return dev
		}
		slog.Debug("input device still unavailable", "device", p.device, "retry_in", p.backoff.Current(), "error", err)
	}
}
