package audio

import (
	"errors"
	"time"
)

// ErrDeviceUnavailable is returned when the output device cannot be opened.
var ErrDeviceUnavailable = errors.New("audio output device unavailable")

// Backend names.
const (
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendNull      = "null"
)

// DefaultDevice selects the backend's default output device.
const DefaultDevice = -1

// Source produces mono S16 samples on demand. Fill is called from the audio
// backend's real-time goroutine and must not block.
type Source interface {
	Fill(buf []int16)
}

// Output is an opened audio output device.
type Output interface {
	// Start begins pulling samples from src.
	Start(src Source) error
	// Close stops playback and releases the device.
	Close() error
}

// Options selects and configures the output device.
type Options struct {
	Backend    string
	Device     int // Device index, or DefaultDevice
	SampleRate int // Samples per second
	BufferSize int // Frames per pull
}

// BufferDuration returns the playback time covered by one buffer.
func (o Options) BufferDuration() time.Duration {
	return time.Duration(o.BufferSize) * time.Second / time.Duration(o.SampleRate)
}
