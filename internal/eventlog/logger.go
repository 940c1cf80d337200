// Package eventlog records signal and device events to a JSON lines file.
// It captures signal transitions (signal_on, signal_off), device lifecycle
// (device_missing, device_lost, device_reopened) and USB hot-plug events.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oszuidwest/signaltone/internal/tone"
)

// EventType represents the type of event.
type EventType string

// Signal event types.
const (
	SignalOn  EventType = "signal_on"
	SignalOff EventType = "signal_off"
)

// Device event types.
const (
	DeviceMissing  EventType = "device_missing"
	DeviceLost     EventType = "device_lost"
	DeviceReopened EventType = "device_reopened"
)

// Hotplug is recorded for every USB add or remove seen by the daemon.
const Hotplug EventType = "hotplug"

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Source    string    `json:"source,omitempty"`
	Tone      string    `json:"tone,omitempty"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// DeviceDetails contains device-specific event details.
type DeviceDetails struct {
	Device string `json:"device,omitempty"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HotplugDetails contains hot-plug specific event details.
type HotplugDetails struct {
	Action  string `json:"action"`
	Port    string `json:"port"`
	DevPath string `json:"devpath,omitempty"`
	Matched bool   `json:"matched"`
}

// NewSignalEvent returns a signal_on or signal_off event for key.
func NewSignalEvent(source string, key tone.Key, on bool) *Event {
	t := SignalOff
	if on {
		t = SignalOn
	}
	return &Event{Type: t, Source: source, Tone: key.String()}
}

// NewDeviceEvent returns a device lifecycle event for key.
func NewDeviceEvent(t EventType, source string, key tone.Key, msg string, details *DeviceDetails) *Event {
	return &Event{Type: t, Source: source, Tone: key.String(), Message: msg, Details: details}
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	// Ensure directory exists
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll     TypeFilter = ""
	FilterSignal  TypeFilter = "signal"
	FilterDevice  TypeFilter = "device"
	FilterHotplug TypeFilter = "hotplug"
)

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// ReadLast reads up to n events from the log file, skipping the newest offset
// matches. Events are returned newest first. The boolean reports whether older
// matching events remain.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	n = min(n, MaxReadLimit)
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}
		if !filter.Match(event.Type) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(events) == n {
			return events, true, nil
		}
		events = append(events, event)
	}

	return events, false, nil
}

// Match reports whether t passes the filter.
func (f TypeFilter) Match(t EventType) bool {
	switch f {
	case FilterAll:
		return true
	case FilterSignal:
		return IsSignalEvent(t)
	case FilterDevice:
		return IsDeviceEvent(t)
	case FilterHotplug:
		return t == Hotplug
	default:
		return false
	}
}

// IsSignalEvent returns true if the event type is a signal event.
func IsSignalEvent(t EventType) bool {
	return t == SignalOn || t == SignalOff
}

// IsDeviceEvent returns true if the event type is a device event.
func IsDeviceEvent(t EventType) bool {
	return t == DeviceMissing || t == DeviceLost || t == DeviceReopened
}
