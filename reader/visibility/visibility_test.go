package visibility_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jacixn/inkami/reader/readertest"
	"github.com/jacixn/inkami/reader/visibility"
)

type fakeFullscreen struct {
	enterErr error
	entered  int
	exited   int
}

func (f *fakeFullscreen) Enter() error {
	f.entered++
	return f.enterErr
}

func (f *fakeFullscreen) Exit() error {
	f.exited++
	return nil
}

func TestHideAfterIdle(t *testing.T) {
	sched := readertest.NewScheduler()
	fs := &fakeFullscreen{}
	s := visibility.New(sched, 0, fs)

	var changes []bool
	s.OnChange = func(v bool) { changes = append(changes, v) }

	s.EnterFocus()
	if !s.Focused() || !s.Visible() || s.Fallback() {
		t.Fatalf("focused=%v visible=%v fallback=%v", s.Focused(), s.Visible(), s.Fallback())
	}
	sched.Advance(4999 * time.Millisecond)
	if !s.Visible() {
		t.Fatal("hidden before the idle period")
	}
	sched.Advance(time.Millisecond)
	if s.Visible() {
		t.Fatal("still visible after 5s idle")
	}
	if len(changes) != 1 || changes[0] {
		t.Errorf("changes = %v, want [false]", changes)
	}
	if fs.entered != 1 {
		t.Errorf("entered = %d", fs.entered)
	}
}

func TestActivityRearms(t *testing.T) {
	sched := readertest.NewScheduler()
	s := visibility.New(sched, 5*time.Second, nil)
	s.EnterFocus()

	sched.Advance(4 * time.Second)
	s.Activity()
	sched.Advance(4 * time.Second)
	if !s.Visible() {
		t.Fatal("activity did not re-arm the timer")
	}
	sched.Advance(time.Second)
	if s.Visible() {
		t.Fatal("not hidden 5s after the last activity")
	}

	s.Activity()
	if !s.Visible() {
		t.Error("activity did not show the controls")
	}
	if sched.PendingTimers() != 1 {
		t.Errorf("pending timers = %d, want 1", sched.PendingTimers())
	}
}

func TestExitFocusForcesVisible(t *testing.T) {
	sched := readertest.NewScheduler()
	fs := &fakeFullscreen{}
	s := visibility.New(sched, 5*time.Second, fs)

	s.EnterFocus()
	sched.Advance(5 * time.Second)
	s.ExitFocus()
	if s.Focused() || !s.Visible() {
		t.Fatalf("focused=%v visible=%v", s.Focused(), s.Visible())
	}
	if fs.exited != 1 {
		t.Errorf("exited = %d", fs.exited)
	}
	if sched.PendingTimers() != 0 {
		t.Errorf("pending timers = %d", sched.PendingTimers())
	}

	s.Activity()
	sched.Advance(10 * time.Second)
	if !s.Visible() {
		t.Error("activity outside focused mode hid the controls")
	}
}

func TestExitCancelsPendingHide(t *testing.T) {
	sched := readertest.NewScheduler()
	s := visibility.New(sched, 5*time.Second, nil)
	s.EnterFocus()
	sched.Advance(3 * time.Second)
	s.ExitFocus()
	s.EnterFocus()
	sched.Advance(3 * time.Second)
	if !s.Visible() {
		t.Error("stale timer from the first focus session fired")
	}
}

func TestFullscreenFailureFallsBack(t *testing.T) {
	sched := readertest.NewScheduler()
	fs := &fakeFullscreen{enterErr: errors.New("not a tty")}
	s := visibility.New(sched, 5*time.Second, fs)

	s.Toggle()
	if !s.Focused() || !s.Fallback() {
		t.Fatalf("focused=%v fallback=%v", s.Focused(), s.Fallback())
	}
	sched.Advance(5 * time.Second)
	if s.Visible() {
		t.Error("fallback mode did not hide the controls")
	}

	s.Toggle()
	if s.Focused() || !s.Visible() {
		t.Errorf("focused=%v visible=%v", s.Focused(), s.Visible())
	}
	if fs.exited != 0 {
		t.Error("Exit called although Enter failed")
	}
}
