package audio

import (
	"fmt"
	"sync"
	"time"
)

// nullOutput pulls samples at the real-time rate and discards them.
// It is used on headless machines and in tests.
type nullOutput struct {
	mu     sync.Mutex
	opts   Options
	stopCh chan struct{}
	done   chan struct{}
}

// NewNullOutput returns an Output that pulls from its source at the real-time
// rate of opts and discards the samples.
func NewNullOutput(opts Options) Output {
	return &nullOutput{opts: opts}
}

func (o *nullOutput) Start(src Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopCh != nil {
		return fmt.Errorf("null output already started")
	}
	o.stopCh = make(chan struct{})
	o.done = make(chan struct{})
	go o.run(src, o.stopCh, o.done)
	return nil
}

func (o *nullOutput) run(src Source, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]int16, o.opts.BufferSize)
	ticker := time.NewTicker(o.opts.BufferDuration())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			src.Fill(buf)
		}
	}
}

func (o *nullOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopCh == nil {
		return nil
	}
	close(o.stopCh)
	<-o.done
	o.stopCh = nil
	return nil
}
