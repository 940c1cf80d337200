package output

import (
	"encoding/binary"

	"github.com/oszuidwest/signaltone/internal/audio"
)

// pcmReader adapts a Source to an io.Reader of mono S16LE bytes.
// Only the backend's pull goroutine calls Read.
type pcmReader struct {
	src     audio.Source
	samples []int16
}

func newPCMReader(src audio.Source, bufferSize int) *pcmReader {
	return &pcmReader{src: src, samples: make([]int16, bufferSize)}
}

// Read fills p with whole samples and never returns an error.
func (r *pcmReader) Read(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}
	if len(r.samples) < n {
		r.samples = make([]int16, n)
	}
	samples := r.samples[:n]
	r.src.Fill(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(s))
	}
	return 2 * n, nil
}
