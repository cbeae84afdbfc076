package reader_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jacixn/inkami/reader"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := reader.NewLoop()
	var got []int
	for i := range 5 {
		l.Dispatch(func() { got = append(got, i) })
	}
	// callbacks queued while draining run in the same drain
	l.Dispatch(func() { l.Dispatch(func() { got = append(got, 99) }) })

	if n := l.Drain(); n != 7 {
		t.Fatalf("Drain() = %d, want 7", n)
	}
	want := []int{0, 1, 2, 3, 4, 99}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestLoopDispatchFromGoroutines(t *testing.T) {
	l := reader.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	done := make(chan struct{})
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Dispatch(func() {
				count++
				if count == 10 {
					close(done)
				}
			})
		}()
	}

	go func() { _ = l.Run(ctx) }()
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callbacks did not run")
	}
}

func TestLoopAfterFunc(t *testing.T) {
	l := reader.NewLoop()
	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	l.Drain()

	select {
	case <-fired:
	default:
		t.Fatal("timer callback did not run on drain")
	}

	stopped := l.AfterFunc(time.Hour, func() { t.Error("stopped timer fired") })
	if !stopped.Stop() {
		t.Error("Stop() = false for pending timer")
	}
}

func TestLoopWaitCancelled(t *testing.T) {
	l := reader.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait() on cancelled context returned nil")
	}
}
