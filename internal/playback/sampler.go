package playback

import (
	"context"
	"sync"
	"time"
)

// progressSource is the controller surface the sampler needs. It never
// mutates session state directly.
type progressSource interface {
	samplePosition() (epoch uint64, positionMs int, ok bool)
	reportProgress(epoch uint64, positionMs int)
}

// Sampler polls the playback position at a fixed cadence and reports it at
// most once per whole second of media time.
type Sampler struct {
	source   progressSource
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newSampler(source progressSource, interval time.Duration) *Sampler {
	return &Sampler{
		source:   source,
		interval: interval,
	}
}

func (s *Sampler) start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// stop cancels the loop and waits for it to exit. A primitive call already in
// progress is allowed to finish.
func (s *Sampler) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sampler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var epoch uint64
	lastSecond := -1

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ctx.Err() != nil {
			return
		}

		sampled, pos, ok := s.source.samplePosition()
		if !ok {
			// Not playing or not ready yet
			continue
		}
		if sampled != epoch {
			epoch = sampled
			lastSecond = -1
		}

		second := pos / 1000
		if second <= lastSecond {
			continue
		}
		lastSecond = second
		s.source.reportProgress(epoch, pos)
	}
}
