package gossip

import (
	"context"
	"sync"
	"time"
)

// Submit hands a function to the node's serialized loop.
type Submit func(fn func())

type task struct {
	interval time.Duration
	fn       func()
}

// Scheduler fires the periodic advertisement and prune actions, plus any
// extra tasks registered before Start. Every tick is submitted; ticks are
// never skipped based on what peers have acknowledged.
type Scheduler struct {
	advertInterval time.Duration
	pruneInterval  time.Duration
	extra          []task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. Non-positive intervals fall back to
// 1s for advertisement and 3s for pruning.
func NewScheduler(advertInterval, pruneInterval time.Duration) *Scheduler {
	if advertInterval <= 0 {
		advertInterval = 1 * time.Second
	}
	if pruneInterval <= 0 {
		pruneInterval = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		advertInterval: advertInterval,
		pruneInterval:  pruneInterval,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// AddTask registers another periodic action. It must be called before Start.
func (s *Scheduler) AddTask(interval time.Duration, fn func()) {
	s.extra = append(s.extra, task{interval: interval, fn: fn})
}

// Start launches one ticker loop per action.
func (s *Scheduler) Start(submit Submit, advertise, prune func()) {
	s.loop(s.advertInterval, submit, advertise)
	s.loop(s.pruneInterval, submit, prune)
	for _, t := range s.extra {
		s.loop(t.interval, submit, t.fn)
	}
}

// Stop stops all loops and waits for them to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(interval time.Duration, submit Submit, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				submit(fn)
			}
		}
	}()
}
