// Package debounce runs keyed tasks after a quiescence window, keeping only the
// most recently scheduled task per key.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Task is invoked when a scheduled window elapses. gen identifies the scheduling
// call; completions must check Current(key, gen) before applying their result.
type Task func(ctx context.Context, gen uint64)

type pending struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler holds at most one pending task per key.
type Scheduler struct {
	mu      sync.Mutex
	next    uint64
	current map[string]uint64
	tasks   map[string]*pending
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		current: make(map[string]uint64),
		tasks:   make(map[string]*pending),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule replaces any pending task under key with fn, to run after delay.
// It returns the generation assigned to fn, or 0 once the scheduler is stopped.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn Task) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0
	}
	s.stopLocked(key)

	s.next++
	gen := s.next
	s.current[key] = gen

	s.wg.Add(1)
	p := &pending{gen: gen}
	p.timer = time.AfterFunc(delay, func() { s.fire(key, gen, fn) })
	s.tasks[key] = p
	return gen
}

func (s *Scheduler) fire(key string, gen uint64, fn Task) {
	defer s.wg.Done()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if p, ok := s.tasks[key]; ok && p.gen == gen {
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	fn(s.ctx, gen)
}

// Current reports whether gen is still the latest generation scheduled under key.
func (s *Scheduler) Current(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.current[key]
	return ok && cur == gen
}

// Pending reports whether a task under key is waiting for its window to elapse.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Cancel drops any pending task under key and invalidates in-flight ones.
// It reports whether an unfired task was dropped.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := s.stopLocked(key)
	delete(s.current, key)
	return dropped
}

// stopLocked stops the pending timer under key. Caller holds s.mu.
func (s *Scheduler) stopLocked(key string) bool {
	p, ok := s.tasks[key]
	if !ok {
		return false
	}
	delete(s.tasks, key)
	if p.timer.Stop() {
		s.wg.Done()
		return true
	}
	return false
}

// Stop cancels every pending task, cancels the context handed to running tasks
// and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for key := range s.tasks {
		s.stopLocked(key)
	}
	s.current = make(map[string]uint64)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
