// Package visibility auto-hides the playback controls in focused mode.
package visibility

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/jacixn/inkami/reader"
)

// DefaultHideAfter is the idle period before controls hide.
const DefaultHideAfter = 5 * time.Second

// Fullscreen is an optional platform capability.
type Fullscreen interface {
	Enter() error
	Exit() error
}

// Scheduler shows controls on activity and hides them after an idle period,
// only while focused. Methods must run on the owner loop.
type Scheduler struct {
	sched     reader.Scheduler
	hideAfter time.Duration
	fs        Fullscreen
	logger    *log.Logger

	// OnChange is called when the controls are shown or hidden.
	OnChange func(visible bool)

	focused  bool
	visible  bool
	fallback bool
	timer    reader.Timer
	gen      int
}

// New creates a scheduler. fs may be nil, in which case focus is tracked
// internally only.
func New(sched reader.Scheduler, hideAfter time.Duration, fs Fullscreen) *Scheduler {
	if hideAfter <= 0 {
		hideAfter = DefaultHideAfter
	}
	return &Scheduler{
		sched:     sched,
		hideAfter: hideAfter,
		fs:        fs,
		visible:   true,
		logger:    log.Default().WithPrefix("visibility"),
	}
}

// Focused reports whether focused mode is on.
func (s *Scheduler) Focused() bool { return s.focused }

// Visible reports whether the controls are shown.
func (s *Scheduler) Visible() bool { return s.visible }

// Fallback reports whether focus is tracked without the platform
// capability.
func (s *Scheduler) Fallback() bool { return s.fallback }

// EnterFocus switches to focused mode, shows the controls and arms the
// hide timer.
func (s *Scheduler) EnterFocus() {
	if s.focused {
		s.Activity()
		return
	}
	s.fallback = false
	switch {
	case s.fs == nil:
		s.fallback = true
	default:
		if err := s.fs.Enter(); err != nil {
			s.logger.Debug("fullscreen unavailable, using internal flag", "err", err)
			s.fallback = true
		}
	}
	s.focused = true
	s.show()
	s.arm()
}

// ExitFocus leaves focused mode and forces the controls visible.
func (s *Scheduler) ExitFocus() {
	if !s.focused {
		return
	}
	if s.fs != nil && !s.fallback {
		if err := s.fs.Exit(); err != nil {
			s.logger.Debug("exit fullscreen", "err", err)
		}
	}
	s.focused = false
	s.fallback = false
	s.disarm()
	s.show()
}

// Toggle flips focused mode.
func (s *Scheduler) Toggle() {
	if s.focused {
		s.ExitFocus()
		return
	}
	s.EnterFocus()
}

// Activity records user input. It is ignored outside focused mode.
func (s *Scheduler) Activity() {
	if !s.focused {
		return
	}
	s.show()
	s.arm()
}

// Close cancels the hide timer.
func (s *Scheduler) Close() {
	s.disarm()
}

func (s *Scheduler) arm() {
	s.disarm()
	gen := s.gen
	s.timer = s.sched.AfterFunc(s.hideAfter, func() { s.hide(gen) })
}

func (s *Scheduler) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) hide(gen int) {
	if gen != s.gen || !s.focused {
		return
	}
	s.timer = nil
	s.set(false)
}

func (s *Scheduler) show() { s.set(true) }

func (s *Scheduler) set(visible bool) {
	if s.visible == visible {
		return
	}
	s.visible = visible
	if s.OnChange != nil {
		s.OnChange(visible)
	}
}
