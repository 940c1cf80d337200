// Package evdev finds Linux input devices by name and reads their events.
package evdev

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	goevdev "github.com/holoplot/go-evdev"
)

// Event types and codes used by signal producers.
const (
	EvSyn = uint16(goevdev.EV_SYN)
	EvKey = uint16(goevdev.EV_KEY)
	EvSw  = uint16(goevdev.EV_SW)

	SwLid             = uint16(goevdev.SW_LID)
	SwHeadphoneInsert = uint16(goevdev.SW_HEADPHONE_INSERT)
)

// Sentinel errors for device access.
var (
	ErrDeviceNotFound = errors.New("input device not found")
	ErrShortEvent     = errors.New("short input event")
)

// Event is one decoded input event.
type Event struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// IsSync reports whether e is a synchronization marker.
func (e Event) IsSync() bool { return e.Type == EvSyn }

// Info describes an input device node.
type Info struct {
	Node string // e.g. "event3"
	Path string // e.g. "/dev/input/event3"
	Name string // e.g. "Lid Switch"
}

// Source is the raw event stream of an open device. *goevdev.InputDevice
// satisfies it.
type Source interface {
	ReadOne() (*goevdev.InputEvent, error)
	Close() error
}

// Finder locates input devices by name.
type Finder struct {
	// List enumerates the event nodes.
	List func() ([]Info, error)
	// Open opens an event node for reading.
	Open func(path string) (Source, error)
}

// NewFinder returns a Finder over the kernel's /dev/input nodes.
func NewFinder() *Finder {
	return &Finder{List: ListDevices, Open: openDevice}
}

// ListDevices returns all event nodes ordered by node number.
func ListDevices() ([]Info, error) {
	paths, err := goevdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	infos := make([]Info, 0, len(paths))
	for _, p := range paths {
		infos = append(infos, Info{
			Node: filepath.Base(p.Path),
			Path: p.Path,
			Name: strings.TrimSpace(p.Name),
		})
	}
	sortByNode(infos)
	return infos, nil
}

func openDevice(path string) (Source, error) {
	dev, err := goevdev.Open(path)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// Find opens the first device whose name contains substr.
func (f *Finder) Find(substr string) (*Device, error) {
	infos, err := f.List()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if !strings.Contains(info.Name, substr) {
			continue
		}
		src, err := f.Open(info.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s (%s): %w", info.Path, info.Name, err)
		}
		return &Device{info: info, src: src}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, substr)
}

func sortByNode(infos []Info) {
	slices.SortStableFunc(infos, func(a, b Info) int {
		na, _ := nodeNumber(a.Node)
		nb, _ := nodeNumber(b.Node)
		return na - nb
	})
}

// nodeNumber parses N from "eventN".
func nodeNumber(node string) (int, bool) {
	rest, ok := strings.CutPrefix(node, "event")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

// Device is an open input device.
type Device struct {
	info Info
	src  Source
}

// Info returns the device description.
func (d *Device) Info() Info { return d.info }

// ReadEvent blocks until the next event arrives. It returns an error once the
// device is closed or removed.
func (d *Device) ReadEvent() (Event, error) {
	ev, err := d.src.ReadOne()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Event{}, ErrShortEvent
		}
		return Event{}, err
	}
	return Event{
		Time:  time.Unix(ev.Time.Unix()),
		Type:  uint16(ev.Type),
		Code:  uint16(ev.Code),
		Value: ev.Value,
	}, nil
}

// Close releases the device and unblocks a pending ReadEvent.
func (d *Device) Close() error {
	return d.src.Close()
}
