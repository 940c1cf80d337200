// Package signals provides the shared set of currently active tones.
package signals

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/oszuidwest/signaltone/internal/tone"
)

// ActiveSet is the set of tone keys whose signal is currently on.
// It is safe for concurrent use. Producers write to it; the render engine
// copies it out once per render cycle and never mixes under the lock.
type ActiveSet struct {
	mu   sync.Mutex
	keys map[tone.Key]struct{}
	gen  atomic.Uint64
}

// NewActiveSet returns an empty set.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{keys: make(map[tone.Key]struct{})}
}

// Activate marks key as active. Activating an active key is a no-op.
func (s *ActiveSet) Activate(key tone.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return
	}
	s.keys[key] = struct{}{}
	s.gen.Add(1)
}

// Deactivate marks key as inactive. Deactivating an inactive key is a no-op.
func (s *ActiveSet) Deactivate(key tone.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; !ok {
		return
	}
	delete(s.keys, key)
	s.gen.Add(1)
}

// Set activates or deactivates key.
func (s *ActiveSet) Set(key tone.Key, on bool) {
	if on {
		s.Activate(key)
	} else {
		s.Deactivate(key)
	}
}

// Contains reports whether key is active.
func (s *ActiveSet) Contains(key tone.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

// Len returns the number of active keys.
func (s *ActiveSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Snapshot returns a copy of the active keys.
func (s *ActiveSet) Snapshot() map[tone.Key]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.keys)
}

// Generation returns a counter that changes whenever the set changes.
// Reading it takes no lock.
func (s *ActiveSet) Generation() uint64 {
	return s.gen.Load()
}

// CopyInto replaces the contents of dst with the active keys and returns the
// generation that was copied. It does not allocate once dst has grown to the
// largest set size seen.
func (s *ActiveSet) CopyInto(dst map[tone.Key]struct{}) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(dst)
	for k := range s.keys {
		dst[k] = struct{}{}
	}
	return s.gen.Load()
}
