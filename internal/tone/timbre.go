package tone

import (
	"errors"
	"math"
)

// ErrEmptyTimbre is returned when a timbre has no usable harmonic weights.
var ErrEmptyTimbre = errors.New("timbre needs at least one non-zero weight")

// PianoWeights are the relative amplitudes of the fundamental and its first
// nine overtones for a piano-like timbre.
var PianoWeights = []float64{
	0.700, 0.243, 0.229, 0.095, 0.139, 0.087, 0.288, 0.199, 0.124, 0.090,
}

// PianoTimbre is the default timbre profile.
var PianoTimbre = MustTimbre("piano", PianoWeights)

// Timbre is a fixed harmonic weighting. Weight i scales harmonic i+1 of the
// fundamental. It is immutable and safe to share between oscillators.
type Timbre struct {
	name    string
	weights []float64
	gain    float64
}

// NewTimbre returns a timbre with the given harmonic weights. The output is
// scaled by the inverse of the summed absolute weights so a single tone never
// leaves [-1, 1].
func NewTimbre(name string, weights []float64) (Timbre, error) {
	var total float64
	for _, w := range weights {
		total += math.Abs(w)
	}
	if total == 0 {
		return Timbre{}, ErrEmptyTimbre
	}
	return Timbre{
		name:    name,
		weights: append([]float64(nil), weights...),
		gain:    1 / total,
	}, nil
}

// MustTimbre is like NewTimbre but panics on error.
func MustTimbre(name string, weights []float64) Timbre {
	t, err := NewTimbre(name, weights)
	if err != nil {
		panic("tone.MustTimbre: " + err.Error())
	}
	return t
}

// Name returns the profile name.
func (t Timbre) Name() string { return t.name }

// Harmonics returns the number of harmonics in the profile.
func (t Timbre) Harmonics() int { return len(t.weights) }

// Shape returns the timbral sample for a normalized phase in [0, 1).
func (t Timbre) Shape(phase float64) float64 {
	var sum float64
	for i, w := range t.weights {
		_, p := math.Modf(phase * float64(i+1))
		sum += w * math.Sin(2*math.Pi*p)
	}
	return sum * t.gain
}
