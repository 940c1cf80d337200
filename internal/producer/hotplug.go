package producer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oszuidwest/signaltone/internal/eventlog"
	"github.com/oszuidwest/signaltone/internal/signals"
	"github.com/oszuidwest/signaltone/internal/tone"
	"github.com/oszuidwest/signaltone/internal/types"
	"github.com/oszuidwest/signaltone/internal/uevent"
	"github.com/oszuidwest/signaltone/internal/util"
)

// Hot-plug timing.
const (
	// HotplugPollTimeout bounds one wait for a notification so cancellation
	// is observed promptly.
	HotplugPollTimeout = 250 * time.Millisecond
	// HotplugRetryDelay is the pause after a poll that returned nothing.
	HotplugRetryDelay = 10 * time.Millisecond
	// HotplugMaxRetryDelay caps the backoff after transport errors.
	HotplugMaxRetryDelay = time.Second
)

// usbDevices selects whole USB devices among the notifications.
var usbDevices = uevent.MustMatcher(uevent.USBDevices)

// HotplugSource delivers hot-plug notifications, typically a *uevent.Monitor.
type HotplugSource interface {
	Poll(timeout time.Duration) (*uevent.Event, error)
	Close() error
}

// ListenFunc opens a HotplugSource.
type ListenFunc func() (HotplugSource, error)

// UeventListener subscribes to kernel USB device notifications.
func UeventListener() ListenFunc {
	return func() (HotplugSource, error) {
		m, err := uevent.Listen(uevent.USBDevices)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// HotplugProducer activates the tones of a USB port while a device is plugged
// into it.
type HotplugProducer struct {
	ports       map[string][]tone.Key
	listen      ListenFunc
	active      *signals.ActiveSet
	events      Recorder
	pollTimeout time.Duration
	retryDelay  time.Duration
	backoff     *util.Backoff
	state       stateHolder
}

// NewHotplugProducer returns a producer for the given port to tone mapping.
// events may be nil.
func NewHotplugProducer(ports map[string][]tone.Key, listen ListenFunc, active *signals.ActiveSet, events Recorder) *HotplugProducer {
	return &HotplugProducer{
		ports:       ports,
		listen:      listen,
		active:      active,
		events:      events,
		pollTimeout: HotplugPollTimeout,
		retryDelay:  HotplugRetryDelay,
		backoff:     util.NewBackoff(HotplugRetryDelay, HotplugMaxRetryDelay),
	}
}

// Name returns "hotplug".
func (p *HotplugProducer) Name() string {
	return "hotplug"
}

// State reports the producer state.
func (p *HotplugProducer) State() types.ProducerState {
	return p.state.get()
}

// Run subscribes to hot-plug notifications and applies add and remove events
// for configured ports until ctx is cancelled.
func (p *HotplugProducer) Run(ctx context.Context) error {
	src, err := p.listen()
	if err != nil {
		p.state.set(types.ProducerError)
		return util.WrapError("subscribe to hot-plug events", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			slog.Warn("failed to close hot-plug monitor", "error", err)
		}
	}()

	slog.Info("listening for usb hot-plug events", "ports", len(p.ports))
	p.state.set(types.ProducerWaiting)
	defer p.state.set(types.ProducerStopped)

	for ctx.Err() == nil {
		ev, err := src.Poll(p.pollTimeout)
		switch {
		case errors.Is(err, uevent.ErrMalformed):
			slog.Warn("dropping malformed hot-plug event", "error", err)
		case err != nil:
			delay := p.backoff.Next()
			slog.Error("hot-plug poll failed", "error", err, "retry_in", delay)
			if !util.Sleep(ctx, delay) {
				return nil
			}
		case ev == nil:
			p.backoff.Reset()
			if !util.Sleep(ctx, p.retryDelay) {
				return nil
			}
		default:
			p.backoff.Reset()
			p.handle(ev)
		}
	}
	return nil
}

// handle applies one notification. Interfaces, other subsystems, other
// actions and unconfigured ports are ignored.
func (p *HotplugProducer) handle(ev *uevent.Event) {
	if !usbDevices.Match(ev) {
		return
	}

	var on bool
	var msg string
	switch ev.Action {
	case uevent.ActionAdd:
		on, msg = true, "usb device added"
	case uevent.ActionRemove:
		on, msg = false, "usb device removed"
	default:
		return
	}

	keys := p.ports[ev.Sysname]
	slog.Info(msg, "port", ev.Sysname, "devpath", ev.DevPath, "matched", len(keys) > 0)
	record(p.events, &eventlog.Event{
		Type:    eventlog.Hotplug,
		Source:  ev.Sysname,
		Message: msg,
		Details: &eventlog.HotplugDetails{
			Action:  ev.Action,
			Port:    ev.Sysname,
			DevPath: ev.DevPath,
			Matched: len(keys) > 0,
		},
	})

	for _, key := range keys {
		p.active.Set(key, on)
		record(p.events, eventlog.NewSignalEvent(ev.Sysname, key, on))
	}
}
