package tone

import (
	"fmt"
	"slices"
)

// Bank holds one oscillator per tone. Entries are fixed at construction and
// kept in key order, so Advance always visits them in the same order.
type Bank struct {
	keys  []Key
	oscs  []*Oscillator
	index map[Key]int
}

// NewBank builds a bank with one oscillator per distinct key. Duplicate keys
// collapse into one entry.
func NewBank(keys []Key, sampleRate float64, timbre Timbre) (*Bank, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", sampleRate)
	}

	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, Key.Compare)
	sorted = slices.Compact(sorted)

	b := &Bank{
		keys:  sorted,
		oscs:  make([]*Oscillator, len(sorted)),
		index: make(map[Key]int, len(sorted)),
	}
	for i, k := range sorted {
		if k.Freq <= 0 || k.Freq >= sampleRate/2 {
			return nil, fmt.Errorf("tone %s: frequency must be between 0 and %v Hz", k, sampleRate/2)
		}
		b.oscs[i] = NewOscillator(k.Freq, sampleRate, timbre)
		b.index[k] = i
	}
	return b, nil
}

// Len returns the number of oscillators.
func (b *Bank) Len() int { return len(b.keys) }

// Keys returns the bank keys in advance order.
func (b *Bank) Keys() []Key { return slices.Clone(b.keys) }

// Index returns the position of key in advance order.
func (b *Bank) Index(key Key) (int, bool) {
	i, ok := b.index[key]
	return i, ok
}

// Advance advances every oscillator exactly once, writing sample i to dst[i].
// dst must hold at least Len values.
func (b *Bank) Advance(dst []float64) {
	for i, o := range b.oscs {
		dst[i] = o.Advance()
	}
}
