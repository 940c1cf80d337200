package tone

import "math"

// Oscillator is a phase accumulator at a fixed frequency. It is not safe for
// concurrent use; only the render goroutine advances it.
type Oscillator struct {
	freq   float64
	step   float64
	phase  float64
	timbre Timbre
}

// NewOscillator returns an oscillator at freq Hz for the given sample rate,
// starting at phase zero.
func NewOscillator(freq, sampleRate float64, timbre Timbre) *Oscillator {
	return &Oscillator{
		freq:   freq,
		step:   freq / sampleRate,
		timbre: timbre,
	}
}

// Freq returns the oscillator frequency in Hz.
func (o *Oscillator) Freq() float64 { return o.freq }

// Phase returns the current normalized phase in [0, 1).
func (o *Oscillator) Phase() float64 { return o.phase }

// Advance returns the timbral sample at the current phase and moves the phase
// forward by one sample period.
func (o *Oscillator) Advance() float64 {
	s := o.timbre.Shape(o.phase)
	_, o.phase = math.Modf(o.phase + o.step)
	return s
}
