// Package producer turns hardware signals into activations of tone keys.
//
// Each producer runs in its own goroutine owned by a Supervisor and writes to
// a shared signals.ActiveSet. Producers degrade softly: a missing device
// disables its tone without affecting any other.
package producer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/oszuidwest/signaltone/internal/eventlog"
	"github.com/oszuidwest/signaltone/internal/evdev"
	"github.com/oszuidwest/signaltone/internal/types"
)

// Producer is a long-running signal source.
type Producer interface {
	// Name identifies the producer in logs and status output.
	Name() string
	// Run blocks until ctx is cancelled or the producer gives up.
	Run(ctx context.Context) error
	// State reports what the producer is currently doing.
	State() types.ProducerState
}

// Device is an open input device.
type Device interface {
	Info() evdev.Info
	ReadEvent() (evdev.Event, error)
	Close() error
}

// Finder opens input devices by name substring. It returns an error wrapping
// evdev.ErrDeviceNotFound when no device matches.
type Finder interface {
	Find(name string) (Device, error)
}

// EvdevFinder adapts an evdev.Finder to the Finder interface.
func EvdevFinder(f *evdev.Finder) Finder {
	return evdevFinder{f: f}
}

type evdevFinder struct {
	f *evdev.Finder
}

func (e evdevFinder) Find(name string) (Device, error) {
	dev, err := e.f.Find(name)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// Recorder receives producer events, typically an *eventlog.Logger.
type Recorder interface {
	Log(event *eventlog.Event) error
}

// record writes event to r if set. Failures are logged and otherwise ignored.
func record(r Recorder, event *eventlog.Event) {
	if r == nil {
		return
	}
	if err := r.Log(event); err != nil {
		slog.Warn("failed to write event log", "type", event.Type, "error", err)
	}
}

// stateHolder stores a producer state for lock-free reads.
type stateHolder struct {
	v atomic.Value
}

func (s *stateHolder) set(state types.ProducerState) {
	s.v.Store(state)
}

func (s *stateHolder) get() types.ProducerState {
	if state, ok := s.v.Load().(types.ProducerState); ok {
		return state
	}
	return types.ProducerStopped
}
