// Package readertest provides deterministic test doubles for the reader
// package: a manual clock scheduler and fake audio and speech channels.
package readertest

import (
	"sort"
	"sync"
	"time"

	"github.com/jacixn/inkami/reader"
)

// Scheduler is a reader.Scheduler driven by a manual clock. Dispatched
// callbacks run on Flush and timers fire on Advance.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	queue  []func()
	timers []*Timer
}

// NewScheduler creates a scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Timer is a pending callback of Scheduler.
type Timer struct {
	s       *Scheduler
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// Stop cancels the timer.
func (t *Timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// At returns the clock time the timer fires at.
func (t *Timer) At() time.Duration { return t.at }

// Dispatch queues fn until the next Flush.
func (s *Scheduler) Dispatch(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// AfterFunc schedules fn at now+d.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) reader.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &Timer{s: s, at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Now returns the manual clock.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Flush runs dispatched callbacks until none are left.
func (s *Scheduler) Flush() int {
	n := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return n
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		fn()
		n++
	}
}

// Advance moves the clock forward by d, firing due timers in order and
// flushing dispatched callbacks after each one.
func (s *Scheduler) Advance(d time.Duration) {
	s.Flush()
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
		s.Flush()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

func (s *Scheduler) nextDue(target time.Duration) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].at == live[j].at {
			return live[i].seq < live[j].seq
		}
		return live[i].at < live[j].at
	})
	t := live[0]
	if t.at > target {
		return nil
	}
	t.fired = true
	s.now = t.at
	return t
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (s *Scheduler) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
