// Package audio defines the output device contract and the level metering of
// the rendered tone stream. Native backends live in the output subpackage so
// that the metering and the null device build without cgo.
package audio

import "math"

const (
	// MinDB is the minimum dB level (silence).
	MinDB = -60.0
	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
	// ClipThreshold is slightly below max to catch near-clips.
	ClipThreshold int16 = 32760
)

// LevelData holds raw sample accumulator data for level calculation.
type LevelData struct {
	SumSquares  float64
	Peak        float64
	ClipCount   int
	SampleCount int
}

// ProcessSamples accumulates level data for mono S16 samples.
func ProcessSamples(samples []int16, data *LevelData) {
	for _, s := range samples {
		v := float64(s)
		data.SumSquares += v * v

		if abs := math.Abs(v); abs > data.Peak {
			data.Peak = abs
		}
		if s >= ClipThreshold || s <= -ClipThreshold {
			data.ClipCount++
		}
		data.SampleCount++
	}
}

// Levels contains calculated audio levels in dB.
type Levels struct {
	RMS   float64 `json:"rms"`
	Peak  float64 `json:"peak"`
	Clips int     `json:"clips,omitzero"`
}

// CalculateLevels computes RMS and peak levels from accumulated sample data.
func CalculateLevels(data *LevelData) Levels {
	if data.SampleCount == 0 {
		return Levels{RMS: MinDB, Peak: MinDB}
	}

	rms := math.Sqrt(data.SumSquares / float64(data.SampleCount))

	// Convert to dB (reference: MaxSampleValue for 16-bit audio)
	db := 20 * math.Log10(rms/MaxSampleValue)
	peakDB := 20 * math.Log10(data.Peak/MaxSampleValue)

	return Levels{
		RMS:   max(db, MinDB),
		Peak:  max(peakDB, MinDB),
		Clips: data.ClipCount,
	}
}

// Reset resets accumulators for the next measurement period.
func (d *LevelData) Reset() {
	d.SampleCount = 0
	d.SumSquares = 0
	d.Peak = 0
	d.ClipCount = 0
}
