// Package output opens the native audio backends that pull the rendered tone
// stream. It is the only package that links against the platform audio
// libraries.
package output

import (
	"fmt"

	"github.com/oszuidwest/signaltone/internal/audio"
)

// Open opens the output device described by opts.
func Open(opts audio.Options) (audio.Output, error) {
	if opts.SampleRate <= 0 || opts.BufferSize <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d or buffer size %d",
			audio.ErrDeviceUnavailable, opts.SampleRate, opts.BufferSize)
	}

	switch opts.Backend {
	case audio.BackendOto, "":
		return openOto(opts)
	case audio.BackendPortAudio:
		return openPortAudio(opts)
	case audio.BackendNull:
		return audio.NewNullOutput(opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", audio.ErrDeviceUnavailable, opts.Backend)
	}
}
