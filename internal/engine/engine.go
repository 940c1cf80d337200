// Package engine provides the real-time render loop that mixes the tones of
// all active signals into a mono S16 stream.
package engine

import (
	"math"
	"slices"

	"github.com/oszuidwest/signaltone/internal/audio"
	"github.com/oszuidwest/signaltone/internal/signals"
	"github.com/oszuidwest/signaltone/internal/tone"
)

// LevelUpdateSamples is the number of samples between level updates.
const LevelUpdateSamples = 12000

// LevelCallback receives output level updates from the render goroutine.
// It must return quickly and must not block.
type LevelCallback func(levels audio.Levels)

// Engine renders the mix of active tones. Render methods must only be called
// from one goroutine at a time, normally the audio backend's pull goroutine.
// The oscillator bank is owned by the engine and advanced on every cycle.
type Engine struct {
	bank   *tone.Bank
	active *signals.ActiveSet

	samples  []float64
	selected []int
	snapshot map[tone.Key]struct{}
	gen      uint64
	synced   bool

	levelData audio.LevelData
	onLevels  LevelCallback
}

// New returns an engine mixing the tones of bank selected by active.
func New(bank *tone.Bank, active *signals.ActiveSet, onLevels LevelCallback) *Engine {
	return &Engine{
		bank:     bank,
		active:   active,
		samples:  make([]float64, bank.Len()),
		selected: make([]int, 0, bank.Len()),
		snapshot: make(map[tone.Key]struct{}, bank.Len()),
		onLevels: onLevels,
	}
}

// RenderSample renders one output sample, taking a fresh view of the active
// set first.
func (e *Engine) RenderSample() int16 {
	e.refresh()
	s := e.next()
	e.meter(s)
	return s
}

// Fill renders len(buf) samples. The active set is read once per call.
func (e *Engine) Fill(buf []int16) {
	e.refresh()
	for i := range buf {
		buf[i] = e.next()
	}
	e.meterBlock(buf)
}

// next advances every oscillator once and mixes the selected ones.
func (e *Engine) next() int16 {
	e.bank.Advance(e.samples)
	if len(e.selected) == 0 {
		return 0
	}
	var sum float64
	for _, i := range e.selected {
		sum += e.samples[i]
	}
	return Quantize(sum)
}

// refresh re-reads the active set when it changed since the last copy.
func (e *Engine) refresh() {
	if e.synced && e.active.Generation() == e.gen {
		return
	}
	e.gen = e.active.CopyInto(e.snapshot)
	e.synced = true

	e.selected = e.selected[:0]
	for k := range e.snapshot {
		if i, ok := e.bank.Index(k); ok {
			e.selected = append(e.selected, i)
		}
	}
	// Keep summation in bank order so the mix is deterministic.
	slices.Sort(e.selected)
}

func (e *Engine) meter(s int16) {
	if e.onLevels == nil {
		return
	}
	one := [1]int16{s}
	e.meterBlock(one[:])
}

func (e *Engine) meterBlock(buf []int16) {
	if e.onLevels == nil {
		return
	}
	audio.ProcessSamples(buf, &e.levelData)
	if e.levelData.SampleCount >= LevelUpdateSamples {
		e.onLevels(audio.CalculateLevels(&e.levelData))
		e.levelData.Reset()
	}
}

// Quantize clamps a mixed sample to [-1, 1] and converts it to S16.
func Quantize(x float64) int16 {
	x = max(-1, min(1, x))
	return int16(math.Round(x * math.MaxInt16))
}
