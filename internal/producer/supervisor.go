package producer

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oszuidwest/signaltone/internal/types"
)

// Sentinel errors for Start.
var (
	ErrAlreadyRunning = errors.New("supervisor already running")
	ErrStopping       = errors.New("supervisor is stopping")
)

// Supervisor owns the goroutines of a fixed set of producers.
type Supervisor struct {
	mu        sync.Mutex
	producers []Producer
	exited    []types.ProducerState // Final state, empty while running
	cancel    context.CancelFunc
	running   bool
	stopping  chan struct{} // Closed when an in-progress Stop has drained
	wg        sync.WaitGroup
}

// NewSupervisor creates a supervisor for producers.
func NewSupervisor(producers ...Producer) *Supervisor {
	return &Supervisor{producers: producers}
}

// Start launches every producer with a context derived from ctx.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping != nil {
		return ErrStopping
	}
	if s.running {
		return ErrAlreadyRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.exited = make([]types.ProducerState, len(s.producers))

	for i, p := range s.producers {
		s.wg.Go(func() { s.run(ctx, i, p) })
	}
	slog.Info("producers started", "count", len(s.producers))
	return nil
}

// Stop cancels all producers and waits for them to return. Concurrent calls
// all wait for the same drain, and Start fails with ErrStopping until it is
// complete.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if done := s.stopping; done != nil {
		s.mu.Unlock()
		<-done
		return
	}
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := make(chan struct{})
	s.stopping = done
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.stopping = nil
	s.mu.Unlock()
	close(done)
	slog.Info("producers stopped")
}

// Statuses reports the state of every producer in registration order.
func (s *Supervisor) Statuses() []types.ProducerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]types.ProducerStatus, len(s.producers))
	for i, p := range s.producers {
		state := p.State()
		if i < len(s.exited) && s.exited[i] != "" {
			state = s.exited[i]
		}
		statuses[i] = types.ProducerStatus{Name: p.Name(), State: state}
	}
	return statuses
}

// run executes one producer and records how it ended. A panic is contained
// to the producer that raised it.
func (s *Supervisor) run(ctx context.Context, i int, p Producer) {
	state := types.ProducerStopped
	defer func() {
		if r := recover(); r != nil {
			slog.Error("producer panicked", "producer", p.Name(), "panic", r)
			state = types.ProducerError
		}
		s.mu.Lock()
		s.exited[i] = state
		s.mu.Unlock()
	}()

	err := p.Run(ctx)
	switch {
	case err != nil:
		slog.Error("producer failed", "producer", p.Name(), "error", err)
		state = types.ProducerError
	case p.State() == types.ProducerDisabled:
		state = types.ProducerDisabled
	}
}
