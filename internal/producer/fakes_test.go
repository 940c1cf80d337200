package producer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oszuidwest/signaltone/internal/eventlog"
	"github.com/oszuidwest/signaltone/internal/evdev"
	"github.com/oszuidwest/signaltone/internal/types"
	"github.com/oszuidwest/signaltone/internal/uevent"
)

type fakeDevice struct {
	info   evdev.Info
	events chan evdev.Event
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		events: make(chan evdev.Event),
		errs:   make(chan error),
		closed: make(chan struct{}),
	}
}

func (d *fakeDevice) Info() evdev.Info { return d.info }

func (d *fakeDevice) ReadEvent() (evdev.Event, error) {
	select {
	case ev := <-d.events:
		return ev, nil
	case err := <-d.errs:
		return evdev.Event{}, err
	case <-d.closed:
		return evdev.Event{}, os.ErrClosed
	}
}

func (d *fakeDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDevice) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// fakeFinder hands out queued devices whose name contains the query; a name
// with no device left is reported as not found. Each added device gets the
// next /dev/input/eventN path.
type fakeFinder struct {
	mu      sync.Mutex
	devices map[string][]*fakeDevice
	err     error
	finds   int
	nodes   int
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{devices: make(map[string][]*fakeDevice)}
}

func (f *fakeFinder) add(name string, devs ...*fakeDevice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range devs {
		node := fmt.Sprintf("event%d", f.nodes)
		d.info = evdev.Info{Node: node, Path: "/dev/input/" + node, Name: name}
		f.nodes++
	}
	f.devices[name] = append(f.devices[name], devs...)
}

func (f *fakeFinder) Find(name string) (Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.err != nil {
		return nil, f.err
	}
	for devName, queue := range f.devices {
		if strings.Contains(devName, name) && len(queue) > 0 {
			f.devices[devName] = queue[1:]
			return queue[0], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", evdev.ErrDeviceNotFound, name)
}

func (f *fakeFinder) findCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finds
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (r *fakeRecorder) Log(event *eventlog.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeRecorder) types() []eventlog.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventlog.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// find returns the first recorded event of type t.
func (r *fakeRecorder) find(t eventlog.EventType) (eventlog.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == t {
			return e, true
		}
	}
	return eventlog.Event{}, false
}

type pollResult struct {
	ev  *uevent.Event
	err error
}

type fakeSource struct {
	results chan pollResult
	closed  atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{results: make(chan pollResult)}
}

func (s *fakeSource) Poll(timeout time.Duration) (*uevent.Event, error) {
	select {
	case r := <-s.results:
		return r.ev, r.err
	case <-time.After(timeout):
		return nil, nil
	}
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeSource) listen() (HotplugSource, error) {
	return s, nil
}

// panicProducer panics as soon as it runs.
type panicProducer struct{}

func (panicProducer) Name() string { return "panic" }

func (panicProducer) Run(context.Context) error { panic("boom") }

func (panicProducer) State() types.ProducerState { return types.ProducerWaiting }

// lingerProducer keeps running after cancellation until release is closed.
type lingerProducer struct {
	cancelled chan struct{}
	release   chan struct{}
}

func newLingerProducer() *lingerProducer {
	return &lingerProducer{cancelled: make(chan struct{}, 1), release: make(chan struct{})}
}

func (*lingerProducer) Name() string { return "linger" }

func (p *lingerProducer) Run(ctx context.Context) error {
	<-ctx.Done()
	p.cancelled <- struct{}{}
	<-p.release
	return nil
}

func (*lingerProducer) State() types.ProducerState { return types.ProducerWaiting }
