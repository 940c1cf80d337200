// Package tone provides tone identity, timbre profiles and the oscillator bank
// that synthesizes one harmonically enriched sample per tone per render cycle.
package tone

import (
	"cmp"
	"strconv"
)

// Signal identities used for non-USB tones.
const (
	// SignalLid identifies the laptop lid switch.
	SignalLid = "Lid"
)

// Key identifies one controllable tone. Two keys are equal when both the
// signal identity and the frequency match, so signals sharing both are mixed
// as a single tone.
type Key struct {
	// Signal is the signal identity, e.g. a USB port path or "Lid".
	Signal string
	// Freq is the tone frequency in Hz.
	Freq float64
}

// NewKey returns the key for signal at freq Hz.
func NewKey(signal string, freq float64) Key {
	return Key{Signal: signal, Freq: freq}
}

// String returns the key as "signal#freq".
func (k Key) String() string {
	return k.Signal + "#" + strconv.FormatFloat(k.Freq, 'g', -1, 64)
}

// Compare orders keys by signal, then frequency.
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(k.Signal, other.Signal); c != 0 {
		return c
	}
	return cmp.Compare(k.Freq, other.Freq)
}
