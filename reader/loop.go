package reader

import (
	"context"
	"sync"
	"time"
)

// Loop is the owner loop of the reader. Callbacks dispatched from any
// goroutine are queued and run one at a time by whoever drains the loop,
// either Run or an event loop calling Wait and Drain.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Dispatch queues fn. It never blocks.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc dispatches fn once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Dispatch(fn) })
}

// Pending returns the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs every queued callback, including callbacks queued while
// draining, and returns how many ran. It must only be called from the
// goroutine that owns the reader state.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
		n++
	}
}

// Wait blocks until a callback is queued or ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	for {
		if l.Pending() > 0 {
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run drains the loop until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
}
