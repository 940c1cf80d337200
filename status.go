package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/oszuidwest/signaltone/internal/audio"
	"github.com/oszuidwest/signaltone/internal/eventlog"
	"github.com/oszuidwest/signaltone/internal/producer"
)

// statusInterval is how often levels and producer states are logged.
const statusInterval = 10 * time.Second

// levelMeter stores the latest output levels published by the render engine.
// update runs on the audio goroutine and only performs atomic stores.
type levelMeter struct {
	rms   atomic.Uint64
	peak  atomic.Uint64
	clips atomic.Int64
	set   atomic.Bool
}

func (m *levelMeter) update(l audio.Levels) {
	m.rms.Store(math.Float64bits(l.RMS))
	m.peak.Store(math.Float64bits(l.Peak))
	m.clips.Store(int64(l.Clips))
	m.set.Store(true)
}

// levels returns the latest levels, or silence before the first update.
func (m *levelMeter) levels() audio.Levels {
	if !m.set.Load() {
		return audio.Levels{RMS: audio.MinDB, Peak: audio.MinDB}
	}
	return audio.Levels{
		RMS:   math.Float64frombits(m.rms.Load()),
		Peak:  math.Float64frombits(m.peak.Load()),
		Clips: int(m.clips.Load()),
	}
}

// reportStatus logs output levels and producer states at debug level until
// ctx is cancelled.
func reportStatus(ctx context.Context, sup *producer.Supervisor, meter *levelMeter, interval time.Duration) {
	peaks := audio.NewPeakHolder()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			levels := meter.levels()
			slog.Debug("output levels",
				"rms_db", levels.RMS, "peak_db", levels.Peak,
				"held_peak_db", peaks.Update(levels.Peak, now), "clips", levels.Clips)
			for _, st := range sup.Statuses() {
				slog.Debug("producer status", "producer", st.Name, "state", st.State)
			}
		}
	}
}

// printEvents writes the newest n event log entries to w as JSON lines,
// oldest first.
func printEvents(w io.Writer, path string, n int) error {
	if path == "" {
		return errors.New("no event_log configured")
	}
	events, _, err := eventlog.ReadLast(path, n, 0, eventlog.FilterAll)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for i := len(events) - 1; i >= 0; i-- {
		if err := enc.Encode(&events[i]); err != nil {
			return err
		}
	}
	return nil
}
