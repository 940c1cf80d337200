package signals

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/oszuidwest/signaltone/internal/tone"
)

var (
	usbKey = tone.NewKey("1-1", 440)
	lidKey = tone.NewKey(tone.SignalLid, 220)
)

func TestNewActiveSetIsEmpty(t *testing.T) {
	s := NewActiveSet()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Snapshot())
	assert.Zero(t, s.Generation())
}

func TestActivateIsIdempotent(t *testing.T) {
	s := NewActiveSet()
	s.Activate(usbKey)
	gen := s.Generation()

	s.Activate(usbKey)
	assert.Equal(t, gen, s.Generation())
	assert.Equal(t, map[tone.Key]struct{}{usbKey: {}}, s.Snapshot())
}

func TestDeactivateIsIdempotent(t *testing.T) {
	s := NewActiveSet()
	s.Deactivate(usbKey)
	assert.Zero(t, s.Generation())
	assert.Empty(t, s.Snapshot())

	s.Activate(usbKey)
	s.Deactivate(usbKey)
	gen := s.Generation()
	s.Deactivate(usbKey)
	assert.Equal(t, gen, s.Generation())
	assert.False(t, s.Contains(usbKey))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewActiveSet()
	s.Activate(usbKey)

	snap := s.Snapshot()
	s.Activate(lidKey)
	delete(snap, usbKey)

	assert.Empty(t, snap)
	assert.True(t, s.Contains(usbKey))
	assert.True(t, s.Contains(lidKey))
}

func TestCopyIntoReplacesContents(t *testing.T) {
	s := NewActiveSet()
	s.Activate(lidKey)

	dst := map[tone.Key]struct{}{usbKey: {}}
	gen := s.CopyInto(dst)

	assert.Equal(t, s.Generation(), gen)
	assert.Equal(t, map[tone.Key]struct{}{lidKey: {}}, dst)
}

func TestSetDispatches(t *testing.T) {
	s := NewActiveSet()
	s.Set(lidKey, true)
	assert.True(t, s.Contains(lidKey))
	s.Set(lidKey, false)
	assert.False(t, s.Contains(lidKey))
}

type setOp struct {
	key tone.Key
	on  bool
}

// Snapshot holds exactly the keys whose most recent operation was Activate.
// No-op calls leave the generation unchanged and CopyInto agrees with Snapshot.
func TestSnapshotMatchesLastOperation(t *testing.T) {
	keys := []tone.Key{usbKey, lidKey, tone.NewKey("1-2", 880), tone.NewKey("2-1.4", 330)}
	opGen := rapid.Custom(func(rt *rapid.T) setOp {
		return setOp{
			key: rapid.SampledFrom(keys).Draw(rt, "key"),
			on:  rapid.Bool().Draw(rt, "on"),
		}
	})

	rapid.Check(t, func(rt *rapid.T) {
		s := NewActiveSet()
		last := map[tone.Key]bool{}

		for _, op := range rapid.SliceOf(opGen).Draw(rt, "ops") {
			before := s.Generation()
			changed := s.Contains(op.key) != op.on
			s.Set(op.key, op.on)
			if changed {
				require.Greater(rt, s.Generation(), before)
			} else {
				require.Equal(rt, before, s.Generation())
			}
			last[op.key] = op.on
		}

		want := map[tone.Key]struct{}{}
		for k, on := range last {
			if on {
				want[k] = struct{}{}
			}
		}
		require.Equal(rt, want, s.Snapshot())

		dst := map[tone.Key]struct{}{tone.NewKey("stale", 1): {}}
		require.Equal(rt, s.Generation(), s.CopyInto(dst))
		require.Equal(rt, want, dst)
	})
}

func TestConcurrentProducersAndReader(t *testing.T) {
	s := NewActiveSet()
	keys := []tone.Key{usbKey, lidKey, tone.NewKey("1-2", 880)}

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 1000 {
				s.Set(k, i%2 == 0)
			}
			s.Activate(k)
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		dst := make(map[tone.Key]struct{})
		for range 1000 {
			s.CopyInto(dst)
			assert.LessOrEqual(t, len(dst), len(keys))
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, len(keys), s.Len())
}
