package reader_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/readertest"
)

type harness struct {
	engine *reader.Engine
	sched  *readertest.Scheduler
	audio  *readertest.Audio
	speech *readertest.Speech
}

func newHarness(t *testing.T, ch reader.Chapter, mutate ...func(*reader.Config)) *harness {
	t.Helper()
	cfg := reader.DefaultConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	h := &harness{
		sched:  readertest.NewScheduler(),
		audio:  readertest.NewAudio(),
		speech: readertest.NewSpeech(),
	}
	h.engine = reader.NewEngine(cfg, h.sched, reader.WithAudio(h.audio), reader.WithSpeech(h.speech))
	h.engine.SetChapter(ch)
	return h
}

func (h *harness) alive() int {
	return readertest.Alive(h.audio.Channels(), h.speech.Channels())
}

// endAudio finishes the latest audio channel and flushes its callback.
func (h *harness) endAudio() {
	h.audio.Last().End()
	h.sched.Flush()
}

func TestEnginePlaySelectsFirstBubble(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2, 1))

	if err := h.engine.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	st := h.engine.State()
	if st.BubbleID != "p0b0" || st.Page != 0 || !st.Playing {
		t.Fatalf("state = %+v, want p0b0 playing on page 0", st)
	}
	if st.Status != reader.StatusPlaying {
		t.Errorf("status = %v, want playing", st.Status)
	}
	if got := h.audio.Last().Src; got != "http://localhost:8000/audio/p0b0.mp3" {
		t.Errorf("audio src = %q", got)
	}
	if st.Channel != reader.ChannelAudio {
		t.Errorf("channel = %v, want audio", st.Channel)
	}
}

func TestEnginePlayEmptyChapter(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 0))
	if err := h.engine.Play(); !errors.Is(err, reader.ErrNothingToPlay) {
		t.Fatalf("Play() error = %v, want ErrNothingToPlay", err)
	}
	if h.engine.State().Playing {
		t.Error("engine should not be playing")
	}
}

func TestEngineAutoAdvanceFiresOnce(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2, 2))
	_ = h.engine.Play()

	h.endAudio()
	if !h.engine.AdvancePending() {
		t.Fatal("expected a pending advance after natural end")
	}
	if h.sched.PendingTimers() != 1 {
		t.Fatalf("pending timers = %d, want 1", h.sched.PendingTimers())
	}

	h.sched.Advance(599 * time.Millisecond)
	if got := h.engine.State().BubbleID; got != "p0b0" {
		t.Fatalf("advanced early to %q", got)
	}

	h.sched.Advance(time.Millisecond)
	if got := h.engine.State().BubbleID; got != "p0b1" {
		t.Fatalf("bubble = %q, want p0b1", got)
	}
	if n := len(h.audio.Channels()); n != 2 {
		t.Fatalf("channels = %d, want 2", n)
	}

	// no second advance without another end
	h.sched.Advance(5 * time.Second)
	if got := h.engine.State().BubbleID; got != "p0b1" {
		t.Fatalf("bubble = %q after idle wait, want p0b1", got)
	}
}

func TestEngineAdvanceCrossesPages(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 1, 0, 1))
	_ = h.engine.Play()

	h.endAudio()
	h.sched.Advance(time.Second)

	st := h.engine.State()
	if st.BubbleID != "p2b0" || st.Page != 2 {
		t.Fatalf("state = %+v, want p2b0 on page 2", st)
	}
}

func TestEngineAdvanceDelay(t *testing.T) {
	tests := []struct {
		name  string
		base  time.Duration
		speed float64
		want  time.Duration
	}{
		{"normal speed", 600 * time.Millisecond, 1.0, 600 * time.Millisecond},
		{"double speed", 600 * time.Millisecond, 2.0, 300 * time.Millisecond},
		{"half speed", 600 * time.Millisecond, 0.5, 1200 * time.Millisecond},
		{"floor", 400 * time.Millisecond, 2.0, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, readertest.Chapter("c1", 2), func(c *reader.Config) {
				c.Playback.AdvanceDelay = tt.base
			})
			if err := h.engine.SetSpeed(tt.speed); err != nil {
				t.Fatal(err)
			}
			_ = h.engine.Play()
			h.endAudio()

			h.sched.Advance(tt.want - time.Millisecond)
			if got := h.engine.State().BubbleID; got != "p0b0" {
				t.Fatalf("advanced before %v", tt.want)
			}
			h.sched.Advance(time.Millisecond)
			if got := h.engine.State().BubbleID; got != "p0b1" {
				t.Fatalf("did not advance at %v", tt.want)
			}
		})
	}
}

func TestEngineNavigationCancelsPendingAdvance(t *testing.T) {
	tests := []struct {
		name string
		op   func(e *reader.Engine) error
		want string
	}{
		{"next", (*reader.Engine).Next, "p0b2"},
		{"prev", (*reader.Engine).Prev, "p0b0"},
		{"select page", func(e *reader.Engine) error { return e.SelectPage(1) }, "p1b0"},
		{"set bubble", func(e *reader.Engine) error { return e.SetBubble("p1b1") }, "p1b1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, readertest.Chapter("c1", 3, 2))
			_ = h.engine.SetBubble("p0b1")
			_ = h.engine.Play()
			h.endAudio()

			if err := tt.op(h.engine); err != nil {
				t.Fatalf("op error = %v", err)
			}
			if h.engine.AdvancePending() {
				t.Fatal("advance still pending after navigation")
			}

			h.sched.Advance(2 * time.Second)
			if got := h.engine.State().BubbleID; got != tt.want {
				t.Fatalf("bubble = %q, want %q", got, tt.want)
			}
			// one channel for p0b1 and one for the navigation target
			if n := len(h.audio.Channels()); n != 2 {
				t.Fatalf("channels = %d, want 2", n)
			}
			if h.alive() != 1 {
				t.Fatalf("alive channels = %d, want 1", h.alive())
			}
		})
	}
}

func TestEngineAtMostOneChannel(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 3, 3))
	_ = h.engine.Play()

	ops := []func() error{
		h.engine.Next,
		h.engine.Next,
		func() error { return h.engine.SelectPage(1) },
		h.engine.Prev,
		func() error { return h.engine.SetBubble("p1b2") },
		h.engine.Restart,
		h.engine.Play,
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
		if n := h.alive(); n != 1 {
			t.Fatalf("after op %d: alive channels = %d, want 1", i, n)
		}
	}

	h.engine.Pause()
	if n := h.alive(); n != 0 {
		t.Fatalf("after pause: alive channels = %d, want 0", n)
	}
}

func TestEngineStaleEndIgnored(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 3))
	_ = h.engine.Play()
	first := h.audio.Last()

	_ = h.engine.Next()
	first.End()
	h.sched.Flush()

	if h.engine.AdvancePending() {
		t.Fatal("end of a replaced channel scheduled an advance")
	}
	h.sched.Advance(time.Second)
	if got := h.engine.State().BubbleID; got != "p0b1" {
		t.Fatalf("bubble = %q, want p0b1", got)
	}
}

func TestEngineSetSpeedAppliesLive(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2))
	_ = h.engine.Play()
	ch := h.audio.Last()

	if err := h.engine.SetSpeed(1.5); err != nil {
		t.Fatal(err)
	}
	if n := len(h.audio.Channels()); n != 1 {
		t.Fatalf("speed change restarted playback: %d channels", n)
	}
	if got := ch.Rate(); got != 1.5 {
		t.Errorf("channel rate = %v, want 1.5", got)
	}

	_ = h.engine.Next()
	if got := h.audio.Last().Rate(); got != 1.5 {
		t.Errorf("next channel rate = %v, want 1.5", got)
	}
}

func TestEngineSetSpeedValidation(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 1))
	for _, s := range []float64{0, 0.49, 2.01, -1} {
		if err := h.engine.SetSpeed(s); !errors.Is(err, reader.ErrInvalidSpeed) {
			t.Errorf("SetSpeed(%v) error = %v, want ErrInvalidSpeed", s, err)
		}
	}
	if h.engine.Speed() != 1.0 {
		t.Errorf("speed = %v, want unchanged 1.0", h.engine.Speed())
	}
}

func TestEngineChapterIdentityReset(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2, 2))
	_ = h.engine.SetSpeed(1.25)
	_ = h.engine.SetBubble("p1b1")
	_ = h.engine.Play()
	h.engine.ReportError(reader.KindNetwork, errors.New("boom"))
	ch := h.audio.Last()

	h.engine.SetChapter(readertest.Chapter("c2", 3))

	st := h.engine.State()
	if st.Page != 0 || st.BubbleID != "" || st.Playing || len(st.Errors) != 0 {
		t.Fatalf("state after identity change = %+v", st)
	}
	if st.Speed != 1.25 {
		t.Errorf("speed = %v, want preserved 1.25", st.Speed)
	}
	if !ch.Stopped() {
		t.Error("channel of the old chapter was not stopped")
	}
	if st.Status != reader.StatusIdle {
		t.Errorf("status = %v, want idle", st.Status)
	}
}

func TestEngineRefreshKeepsSelection(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2, 2))
	_ = h.engine.SetBubble("p1b0")
	_ = h.engine.Play()

	// a cover page arrives in front while processing
	next := readertest.Chapter("c1", 2, 2)
	cover := reader.Page{Items: []reader.BubbleItem{{BubbleID: "cover", Text: "Title"}}}
	next.Pages = append([]reader.Page{cover}, next.Pages...)
	h.engine.SetChapter(next)

	st := h.engine.State()
	if st.BubbleID != "p1b0" || st.Page != 2 || !st.Playing {
		t.Fatalf("state = %+v, want p1b0 on page 2", st)
	}
	if n := len(h.audio.Channels()); n != 1 {
		t.Errorf("refresh restarted playback: %d channels", n)
	}
}

func TestEngineRefreshSnapsVanishedSelection(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2, 2))
	_ = h.engine.SetBubble("p1b1")
	_ = h.engine.Play()
	old := h.audio.Last()

	h.engine.SetChapter(readertest.Chapter("c1", 1))

	st := h.engine.State()
	if st.BubbleID != "p0b0" || st.Page != 0 {
		t.Fatalf("state = %+v, want snap to p0b0", st)
	}
	if !st.Playing || !old.Stopped() {
		t.Fatal("playback should restart on the snapped bubble")
	}
	if got := h.audio.Last().Src; got != "http://localhost:8000/audio/p0b0.mp3" {
		t.Errorf("src = %q", got)
	}
}

func TestEngineRefreshClampsPage(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 0, 0, 0))
	if err := h.engine.SelectPage(2); err != nil {
		t.Fatal(err)
	}
	h.engine.SetChapter(readertest.Chapter("c1", 0))
	if got := h.engine.State().Page; got != 0 {
		t.Fatalf("page = %d, want clamped 0", got)
	}
}

func TestEngineSpeechFallbackWithoutAudio(t *testing.T) {
	ch := readertest.Chapter("c1", 2)
	ch.Pages[0].Items[0].AudioURL = ""
	h := newHarness(t, ch)

	_ = h.engine.Play()

	sp := h.speech.Last()
	if sp == nil {
		t.Fatal("expected speech fallback")
	}
	if sp.Text != "Line p0b0" || sp.Voice != "voice_default" {
		t.Errorf("utterance = %q/%q", sp.Text, sp.Voice)
	}
	st := h.engine.State()
	if !st.Playing || st.Channel != reader.ChannelSpeech {
		t.Fatalf("state = %+v", st)
	}
	if len(st.Errors) != 1 || st.Errors[0].Fatal || !errors.Is(st.Errors[0], reader.ErrNoAudio) {
		t.Fatalf("errors = %v, want one non-fatal no-audio error", st.Errors)
	}

	sp.End()
	h.sched.Advance(time.Second)
	if got := h.engine.State().BubbleID; got != "p0b1" {
		t.Fatalf("speech end did not advance: bubble = %q", got)
	}
}

func TestEngineNoAudioNoSpeech(t *testing.T) {
	ch := readertest.Chapter("c1", 2)
	ch.Pages[0].Items[0].AudioURL = ""
	h := newHarness(t, ch)
	h.speech.Unavailable = true

	_ = h.engine.Play()

	st := h.engine.State()
	if st.Playing {
		t.Fatal("engine should not be playing")
	}
	if len(st.Errors) == 0 || !st.Errors[len(st.Errors)-1].Fatal {
		t.Fatalf("errors = %v, want a fatal error", st.Errors)
	}
	if !errors.Is(st.Errors[len(st.Errors)-1], reader.ErrSpeechUnavailable) {
		t.Errorf("last error = %v", st.Errors[len(st.Errors)-1])
	}
	if h.sched.PendingTimers() != 0 {
		t.Error("auto-advance scheduled after total failure")
	}
}

func TestEngineEmptyTextFails(t *testing.T) {
	ch := readertest.Chapter("c1", 1)
	ch.Pages[0].Items[0].AudioURL = ""
	ch.Pages[0].Items[0].Text = "   "
	h := newHarness(t, ch)

	_ = h.engine.Play()
	st := h.engine.State()
	if st.Playing || !errors.Is(st.Errors[len(st.Errors)-1], reader.ErrEmptyText) {
		t.Fatalf("state = %+v", st)
	}
	if len(h.speech.Channels()) != 0 {
		t.Error("spoke empty text")
	}
}

func TestEngineAudioFailureFallsBack(t *testing.T) {
	t.Run("sync", func(t *testing.T) {
		h := newHarness(t, readertest.Chapter("c1", 1))
		h.audio.PlayError = errors.New("autoplay rejected")

		_ = h.engine.Play()
		if h.speech.Last() == nil || !h.engine.State().Playing {
			t.Fatal("expected speech fallback")
		}
		if errs := h.engine.State().Errors; len(errs) != 1 || errs[0].Kind != reader.KindAudio {
			t.Fatalf("errors = %v", errs)
		}
	})

	t.Run("async", func(t *testing.T) {
		h := newHarness(t, readertest.Chapter("c1", 1))
		_ = h.engine.Play()

		h.audio.Last().Fail(errors.New("decode failed"))
		h.sched.Flush()

		st := h.engine.State()
		if st.Channel != reader.ChannelSpeech || !st.Playing {
			t.Fatalf("state = %+v, want speech playing", st)
		}
		if h.alive() != 1 {
			t.Errorf("alive channels = %d", h.alive())
		}
	})
}

func TestEngineSpeechFailureIsFatal(t *testing.T) {
	ch := readertest.Chapter("c1", 2)
	ch.Pages[0].Items[0].AudioURL = ""
	h := newHarness(t, ch)
	_ = h.engine.Play()

	h.speech.Last().Fail(errors.New("synth crashed"))
	h.sched.Flush()

	st := h.engine.State()
	if st.Playing || !reader.IsFatal(st.Errors[len(st.Errors)-1]) {
		t.Fatalf("state = %+v", st)
	}
	h.sched.Advance(time.Second)
	if st := h.engine.State(); st.BubbleID != "p0b0" {
		t.Errorf("advanced after fatal error to %q", st.BubbleID)
	}
}

func TestEngineNavigationEnds(t *testing.T) {
	t.Run("next at end is a no-op", func(t *testing.T) {
		h := newHarness(t, readertest.Chapter("c1", 2))
		_ = h.engine.SetBubble("p0b1")
		_ = h.engine.Play()
		if err := h.engine.Next(); err != nil {
			t.Fatal(err)
		}
		if got := h.engine.State().BubbleID; got != "p0b1" {
			t.Fatalf("bubble = %q", got)
		}
		if n := len(h.audio.Channels()); n != 1 {
			t.Errorf("channels = %d, want 1", n)
		}
	})

	t.Run("next at end after the last bubble ended", func(t *testing.T) {
		h := newHarness(t, readertest.Chapter("c1", 2))
		_ = h.engine.SetBubble("p0b1")
		_ = h.engine.Play()
		h.endAudio()
		if !h.engine.AdvancePending() {
			t.Fatal("expected a pending advance after natural end")
		}

		if err := h.engine.Next(); err != nil {
			t.Fatal(err)
		}
		if h.engine.AdvancePending() || h.sched.PendingTimers() != 0 {
			t.Fatalf("advance still pending: timers = %d", h.sched.PendingTimers())
		}
		st := h.engine.State()
		if st.Playing || st.BubbleID != "p0b1" || st.Status != reader.StatusReady {
			t.Fatalf("state = %+v, want stopped on last bubble", st)
		}

		h.sched.Advance(2 * time.Second)
		if n := len(h.audio.Channels()); n != 1 {
			t.Errorf("channels = %d, want 1", n)
		}
	})

	t.Run("prev at start wraps", func(t *testing.T) {
		h := newHarness(t, readertest.Chapter("c1", 2, 1))
		_ = h.engine.Play()
		if err := h.engine.Prev(); err != nil {
			t.Fatal(err)
		}
		if got := h.engine.State(); got.BubbleID != "p1b0" || got.Page != 1 {
			t.Fatalf("state = %+v, want wrap to p1b0", got)
		}
	})

	t.Run("policy flips both", func(t *testing.T) {
		h := newHarness(t, readertest.Chapter("c1", 2), func(c *reader.Config) {
			c.Playback.Navigation = reader.NavigationPolicy{WrapPrev: false, WrapNext: true}
		})
		_ = h.engine.SetBubble("p0b0")
		_ = h.engine.Prev()
		if got := h.engine.State().BubbleID; got != "p0b0" {
			t.Fatalf("prev wrapped to %q", got)
		}
		_ = h.engine.SetBubble("p0b1")
		_ = h.engine.Next()
		if got := h.engine.State().BubbleID; got != "p0b0" {
			t.Fatalf("next did not wrap: %q", got)
		}
	})
}

func TestEngineChapterComplete(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 1))
	_ = h.engine.Play()
	h.endAudio()
	h.sched.Advance(time.Second)

	st := h.engine.State()
	if st.Playing || st.BubbleID != "p0b0" || st.Status != reader.StatusReady {
		t.Fatalf("state = %+v, want stopped on last bubble", st)
	}
}

func TestEngineSelectPage(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2, 0, 1))

	if err := h.engine.SelectPage(2); err != nil {
		t.Fatal(err)
	}
	st := h.engine.State()
	if st.BubbleID != "p2b0" || st.Playing {
		t.Fatalf("state = %+v, want p2b0 stopped", st)
	}
	if len(h.audio.Channels()) != 0 {
		t.Error("select page started playback while stopped")
	}

	_ = h.engine.Play()
	if err := h.engine.SelectPage(1); err != nil {
		t.Fatal(err)
	}
	st = h.engine.State()
	if st.BubbleID != "" || st.Playing || st.Page != 1 {
		t.Fatalf("state = %+v, want empty page with no selection", st)
	}
	if h.alive() != 0 {
		t.Error("channel alive on empty page")
	}

	if err := h.engine.SelectPage(3); !errors.Is(err, reader.ErrPageOutOfRange) {
		t.Errorf("SelectPage(3) error = %v", err)
	}
}

func TestEngineSetBubbleUnknown(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 1))
	if err := h.engine.SetBubble("nope"); !errors.Is(err, reader.ErrUnknownBubble) {
		t.Fatalf("error = %v", err)
	}
}

func TestEnginePauseIdempotent(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2))
	_ = h.engine.Play()
	h.endAudio()

	h.engine.Pause()
	h.engine.Pause()

	st := h.engine.State()
	if st.Playing || st.Status != reader.StatusPaused {
		t.Fatalf("state = %+v", st)
	}
	if h.sched.PendingTimers() != 0 {
		t.Error("pause left a pending advance")
	}

	_ = h.engine.Toggle()
	if !h.engine.State().Playing {
		t.Error("toggle did not resume")
	}
}

func TestEngineRestart(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 2, 2))
	_ = h.engine.SetBubble("p1b1")

	if err := h.engine.Restart(); err != nil {
		t.Fatal(err)
	}
	st := h.engine.State()
	if st.BubbleID != "p0b0" || !st.Playing || st.Page != 0 {
		t.Fatalf("state = %+v", st)
	}
}

func TestEngineOnChangeAndClearErrors(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 1))
	var got []reader.PlaybackState
	h.engine.OnChange(func(st reader.PlaybackState) { got = append(got, st) })

	h.engine.ReportError(reader.KindNetwork, errors.New("offline"))
	h.engine.ReportError(reader.KindState, errors.New("ignored"))
	if n := len(h.engine.State().Errors); n != 1 {
		t.Fatalf("errors = %d, want 1", n)
	}
	h.engine.ClearErrors()

	if len(got) != 2 {
		t.Fatalf("notifications = %d, want 2", len(got))
	}
	if len(got[1].Errors) != 0 {
		t.Error("clear did not empty errors")
	}
}

func TestEnginePosition(t *testing.T) {
	h := newHarness(t, readertest.Chapter("c1", 1))
	if _, ok := h.engine.Position(); ok {
		t.Fatal("position reported without a channel")
	}
	_ = h.engine.Play()
	h.audio.Last().SetPosition(1500 * time.Millisecond)
	pos, ok := h.engine.Position()
	if !ok || pos != 1500*time.Millisecond {
		t.Fatalf("Position() = %v, %v", pos, ok)
	}
}

type recordingPrefetcher struct{ srcs [][]string }

func (p *recordingPrefetcher) Prefetch(srcs []string) { p.srcs = append(p.srcs, srcs) }

func TestEnginePrefetch(t *testing.T) {
	sched := readertest.NewScheduler()
	pf := &recordingPrefetcher{}
	e := reader.NewEngine(reader.DefaultConfig(), sched,
		reader.WithAudio(readertest.NewAudio()), reader.WithPrefetcher(pf))
	e.SetChapter(readertest.Chapter("c1", 2, 2))

	_ = e.Play()
	if len(pf.srcs) != 1 || len(pf.srcs[0]) != 2 {
		t.Fatalf("prefetch = %v, want next two sources", pf.srcs)
	}
	if pf.srcs[0][1] != "http://localhost:8000/audio/p1b0.mp3" {
		t.Errorf("second prefetch = %q", pf.srcs[0][1])
	}
}
