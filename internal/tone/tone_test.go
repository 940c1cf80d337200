package tone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 48000

func TestKeyEquality(t *testing.T) {
	a := NewKey("1-1", 440)
	b := NewKey("1-1", 440)
	c := NewKey("1-1", 880)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	set := map[Key]struct{}{a: {}, b: {}, c: {}}
	assert.Len(t, set, 2)

	assert.Equal(t, "Lid#220", NewKey(SignalLid, 220).String())
	assert.Equal(t, "1-1.2#261.63", NewKey("1-1.2", 261.63).String())
}

func TestKeyCompare(t *testing.T) {
	assert.Negative(t, NewKey("1-1", 880).Compare(NewKey("1-2", 440)))
	assert.Negative(t, NewKey("1-1", 440).Compare(NewKey("1-1", 880)))
	assert.Zero(t, NewKey("Lid", 220).Compare(NewKey("Lid", 220)))
}

func TestNewTimbreRejectsEmpty(t *testing.T) {
	_, err := NewTimbre("none", nil)
	require.ErrorIs(t, err, ErrEmptyTimbre)

	_, err = NewTimbre("zeros", []float64{0, 0})
	require.ErrorIs(t, err, ErrEmptyTimbre)

	assert.Panics(t, func() { MustTimbre("none", nil) })
}

func TestTimbreShapeStaysInRange(t *testing.T) {
	assert.Equal(t, "piano", PianoTimbre.Name())
	assert.Equal(t, 10, PianoTimbre.Harmonics())

	for i := range 10000 {
		phase := float64(i) / 10000
		s := PianoTimbre.Shape(phase)
		require.LessOrEqual(t, math.Abs(s), 1.0, "phase %v", phase)
	}
	assert.InDelta(t, 0, PianoTimbre.Shape(0), 1e-12)
}

func TestTimbreSingleHarmonicIsSine(t *testing.T) {
	sine := MustTimbre("sine", []float64{0.5})
	for _, phase := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9} {
		assert.InDelta(t, math.Sin(2*math.Pi*phase), sine.Shape(phase), 1e-12)
	}
}

func TestTimbreCopiesWeights(t *testing.T) {
	weights := []float64{1, 0}
	tb := MustTimbre("copy", weights)
	weights[1] = 1
	assert.InDelta(t, 1, tb.Shape(0.25), 1e-12)
}

func TestOscillatorPhaseIsContinuous(t *testing.T) {
	o := NewOscillator(440, testSampleRate, PianoTimbre)
	assert.Equal(t, 440.0, o.Freq())

	maxStep := 2 * math.Pi * 440 / testSampleRate
	prev := math.Sin(2 * math.Pi * o.Phase())
	for n := 1; n <= testSampleRate; n++ {
		o.Advance()

		want := math.Mod(float64(n)*440/testSampleRate, 1)
		got := o.Phase()
		diff := math.Abs(got - want)
		diff = math.Min(diff, 1-diff)
		require.Less(t, diff, 1e-9, "sample %d", n)

		raw := math.Sin(2 * math.Pi * o.Phase())
		require.LessOrEqual(t, math.Abs(raw-prev), maxStep+1e-12, "sample %d", n)
		prev = raw
	}
}

func TestOscillatorAdvanceReturnsShapeOfCurrentPhase(t *testing.T) {
	o := NewOscillator(220, testSampleRate, PianoTimbre)
	for range 100 {
		want := PianoTimbre.Shape(o.Phase())
		assert.Equal(t, want, o.Advance())
	}
}

func TestNewBankCollapsesDuplicatesAndSorts(t *testing.T) {
	b, err := NewBank([]Key{
		NewKey(SignalLid, 220),
		NewKey("1-1", 440),
		NewKey("1-1", 440),
		NewKey("1-2", 880),
	}, testSampleRate, PianoTimbre)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []Key{
		NewKey("1-1", 440),
		NewKey("1-2", 880),
		NewKey(SignalLid, 220),
	}, b.Keys())

	i, ok := b.Index(NewKey(SignalLid, 220))
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = b.Index(NewKey("9-9", 100))
	assert.False(t, ok)
}

func TestNewBankRejectsBadInput(t *testing.T) {
	_, err := NewBank(nil, 0, PianoTimbre)
	require.Error(t, err)

	_, err = NewBank([]Key{NewKey("1-1", 0)}, testSampleRate, PianoTimbre)
	require.Error(t, err)

	_, err = NewBank([]Key{NewKey("1-1", 30000)}, testSampleRate, PianoTimbre)
	require.Error(t, err)
}

func TestBankAdvanceMatchesStandaloneOscillators(t *testing.T) {
	keys := []Key{NewKey("1-1", 440), NewKey("1-2", 880)}
	b, err := NewBank(keys, testSampleRate, PianoTimbre)
	require.NoError(t, err)

	refs := []*Oscillator{
		NewOscillator(440, testSampleRate, PianoTimbre),
		NewOscillator(880, testSampleRate, PianoTimbre),
	}

	dst := make([]float64, b.Len())
	for range 1000 {
		b.Advance(dst)
		for i, ref := range refs {
			require.Equal(t, ref.Advance(), dst[i])
		}
	}
}

func BenchmarkBankAdvance(b *testing.B) {
	keys := []Key{NewKey("1-1", 440), NewKey("1-2", 880), NewKey(SignalLid, 220)}
	bank, err := NewBank(keys, testSampleRate, PianoTimbre)
	require.NoError(b, err)
	dst := make([]float64, bank.Len())
	for b.Loop() {
		bank.Advance(dst)
	}
}
