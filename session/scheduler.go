package session

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs a task on a fixed interval in one goroutine. The task runs
// synchronously, so a slow task delays the next tick instead of
// overlapping it.
type Scheduler struct {
	interval time.Duration
	task     func(context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(interval time.Duration, task func(context.Context)) *Scheduler {
	return &Scheduler{interval: interval, task: task}
}

// Start launches the loop. It returns false when already running.
func (s *Scheduler) Start(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, done)
	return true
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		// The parent context may end the loop without a Stop.
		s.mu.Lock()
		if s.done == done {
			s.cancel()
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}()

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// A Stop racing the ticker wins.
			if ctx.Err() != nil {
				return
			}
			s.task(ctx)
		}
	}
}

// Stop cancels the loop and waits for an in-flight task to finish. It
// returns false when the scheduler was not running. Stop must not be
// called from inside the task.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
