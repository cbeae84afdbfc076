// Package scroll keeps the viewport centered on the active bubble.
package scroll

import (
	"math"
	"time"

	"github.com/jacixn/inkami/reader"
)

// Config tunes the follow animation.
type Config struct {
	// Settle is the quiet period before animating, so rapid bubble
	// changes do not make the view jump around.
	Settle   time.Duration
	Duration time.Duration
	Frame    time.Duration
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{
		Settle:   120 * time.Millisecond,
		Duration: 350 * time.Millisecond,
		Frame:    16 * time.Millisecond,
	}
}

// Geometry places a bubble inside the scrollable content.
type Geometry struct {
	Box           reader.Box // bubble box in page image pixels
	ImageHeight   float64    // page image height in pixels
	ContentTop    float64    // offset of the page inside the content
	ContentHeight float64    // rendered height of the page
	Viewport      float64    // visible height
}

// TargetOffset returns the scroll offset that centers the bubble: its
// center scaled from image to content units, minus half the viewport,
// never negative.
func TargetOffset(g Geometry) float64 {
	scale := 1.0
	if g.ImageHeight > 0 {
		scale = g.ContentHeight / g.ImageHeight
	}
	return math.Max(0, g.ContentTop+g.Box.CenterY()*scale-g.Viewport/2)
}

// EaseOutCubic maps linear progress t in [0, 1] to eased progress.
func EaseOutCubic(t float64) float64 {
	t = math.Min(1, math.Max(0, t))
	return 1 - math.Pow(1-t, 3)
}

type animation struct {
	from, to float64
	elapsed  time.Duration
}

// Synchronizer animates the scroll offset toward the active bubble. All
// methods must run on the owner loop.
type Synchronizer struct {
	sched reader.Scheduler
	cfg   Config
	apply func(offset float64)

	offset float64
	anim   *animation
	timer  reader.Timer
}

// NewSynchronizer creates a synchronizer that reports offsets to apply.
func NewSynchronizer(sched reader.Scheduler, cfg Config, apply func(offset float64)) *Synchronizer {
	if cfg.Frame <= 0 {
		cfg.Frame = DefaultConfig().Frame
	}
	return &Synchronizer{sched: sched, cfg: cfg, apply: apply}
}

// Offset returns the current offset.
func (s *Synchronizer) Offset() float64 { return s.offset }

// Animating reports whether a settle delay or animation is pending.
func (s *Synchronizer) Animating() bool { return s.anim != nil }

// Target returns the offset being animated to.
func (s *Synchronizer) Target() (float64, bool) {
	if s.anim == nil {
		return 0, false
	}
	return s.anim.to, true
}

// Follow replaces any animation in flight with one toward g.
func (s *Synchronizer) Follow(g Geometry) {
	s.Cancel()
	a := &animation{to: TargetOffset(g)}
	s.anim = a
	s.timer = s.sched.AfterFunc(s.cfg.Settle, func() { s.begin(a) })
}

// SetOffset records a manual scroll and stops the animation.
func (s *Synchronizer) SetOffset(offset float64) {
	s.Cancel()
	s.offset = math.Max(0, offset)
}

// Cancel stops the settle delay and the animation.
func (s *Synchronizer) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.anim = nil
}

func (s *Synchronizer) begin(a *animation) {
	if s.anim != a {
		return
	}
	a.from = s.offset
	if a.from == a.to || s.cfg.Duration <= 0 {
		s.finish(a)
		return
	}
	s.timer = s.sched.AfterFunc(s.cfg.Frame, func() { s.step(a) })
}

func (s *Synchronizer) step(a *animation) {
	if s.anim != a {
		return
	}
	a.elapsed += s.cfg.Frame
	if a.elapsed >= s.cfg.Duration {
		s.finish(a)
		return
	}
	t := float64(a.elapsed) / float64(s.cfg.Duration)
	s.set(a.from + (a.to-a.from)*EaseOutCubic(t))
	s.timer = s.sched.AfterFunc(s.cfg.Frame, func() { s.step(a) })
}

func (s *Synchronizer) finish(a *animation) {
	s.anim = nil
	s.timer = nil
	s.set(a.to)
}

func (s *Synchronizer) set(offset float64) {
	s.offset = offset
	if s.apply != nil {
		s.apply(offset)
	}
}
