package reader

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Prefetcher warms the audio of upcoming bubbles. Prefetch must not block.
type Prefetcher interface {
	Prefetch(srcs []string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithAudio sets the native audio output.
func WithAudio(out AudioOutput) Option {
	return func(e *Engine) { e.audio = out }
}

// WithSpeech sets the fallback speech synthesizer.
func WithSpeech(s SpeechSynthesizer) Option {
	return func(e *Engine) { e.speech = s }
}

// WithPrefetcher sets the prefetcher used after a bubble starts.
func WithPrefetcher(p Prefetcher) Option {
	return func(e *Engine) { e.prefetcher = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// channelToken identifies one channel. Callbacks carrying a token other than
// the active one are stale.
type channelToken struct {
	kind ChannelKind
}

// advanceToken identifies one scheduled auto-advance. It must not be zero
// sized: pointers to distinct zero-size values may compare equal.
type advanceToken struct {
	from string
}

// Engine walks the reading order of a chapter and owns the single playback
// channel. Every method must be called on the owner loop of its Scheduler.
type Engine struct {
	cfg        Config
	sched      Scheduler
	audio      AudioOutput
	speech     SpeechSynthesizer
	prefetcher Prefetcher
	logger     *log.Logger
	sm         *StateMachine

	chapter  Chapter
	index    *Index
	page     int
	bubbleID string
	playing  bool
	paused   bool
	speed    float64
	errors   []*PlaybackError

	channel Channel
	token   *channelToken

	pending      Timer
	pendingToken *advanceToken

	listeners []func(PlaybackState)
}

// NewEngine creates an engine with an empty chapter.
func NewEngine(cfg Config, sched Scheduler, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		sched:  sched,
		sm:     NewStateMachine(),
		index:  NewIndex(nil),
		speed:  cfg.Playback.Speed,
		logger: log.Default().WithPrefix("engine"),
	}
	if ValidateSpeed(e.speed) != nil {
		e.speed = DefaultSpeed
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnChange registers fn to be called on the owner loop after every state
// change.
func (e *Engine) OnChange(fn func(PlaybackState)) {
	e.listeners = append(e.listeners, fn)
}

// State returns a snapshot of the playback state.
func (e *Engine) State() PlaybackState {
	kind := ChannelNone
	if e.token != nil {
		kind = e.token.kind
	}
	return PlaybackState{
		Page:     e.page,
		BubbleID: e.bubbleID,
		Playing:  e.playing,
		Speed:    e.speed,
		Errors:   append([]*PlaybackError(nil), e.errors...),
		Status:   e.sm.Current(),
		Channel:  kind,
	}
}

// Status returns the current status.
func (e *Engine) Status() Status { return e.sm.Current() }

// Chapter returns the current chapter.
func (e *Engine) Chapter() Chapter { return e.chapter }

// Index returns the index of the current chapter.
func (e *Engine) Index() *Index { return e.index }

// Current returns the selected bubble, or nil.
func (e *Engine) Current() *BubbleItem {
	if e.bubbleID == "" {
		return nil
	}
	return e.index.Bubble(e.bubbleID)
}

// ActiveChannel returns the kind of the channel currently alive.
func (e *Engine) ActiveChannel() ChannelKind {
	if e.token == nil {
		return ChannelNone
	}
	return e.token.kind
}

// Position returns how far the active channel has played, when it can tell.
func (e *Engine) Position() (time.Duration, bool) {
	if pr, ok := e.channel.(PositionReporter); ok {
		return pr.Position(), true
	}
	return 0, false
}

// AdvancePending reports whether an auto-advance is scheduled.
func (e *Engine) AdvancePending() bool { return e.pendingToken != nil }

// Play starts playback of the selected bubble from its beginning, selecting
// the first bubble when nothing is selected.
func (e *Engine) Play() error {
	if e.index.Len() == 0 {
		return ErrNothingToPlay
	}
	if e.bubbleID == "" || e.index.Position(e.bubbleID) < 0 {
		first, _ := e.index.First()
		e.selectBubble(first)
	}
	e.start()
	return nil
}

// Pause stops the active channel and any pending advance.
func (e *Engine) Pause() {
	e.cancelAdvance()
	e.stopChannel()
	if e.playing {
		e.paused = true
	}
	e.playing = false
	e.notify()
}

// Toggle pauses when playing and plays otherwise.
func (e *Engine) Toggle() error {
	if e.playing {
		e.Pause()
		return nil
	}
	return e.Play()
}

// Next selects the bubble after the current one. At the end of the order it
// keeps the selection unless the navigation policy wraps forward; an advance
// already waiting there completes the chapter right away.
func (e *Engine) Next() error {
	if e.index.Len() == 0 {
		return ErrNothingToPlay
	}
	next, ok := e.index.At(e.index.Position(e.bubbleID) + 1)
	if !ok {
		if !e.cfg.Playback.Navigation.WrapNext {
			if e.pendingToken != nil {
				e.cancelAdvance()
				e.playing = false
				e.notify()
			}
			return nil
		}
		next, _ = e.index.First()
	}
	e.moveTo(next)
	return nil
}

// Prev selects the bubble before the current one. At the start of the order
// it wraps to the last bubble unless the navigation policy forbids it.
func (e *Engine) Prev() error {
	if e.index.Len() == 0 {
		return ErrNothingToPlay
	}
	pos := e.index.Position(e.bubbleID)
	prev, ok := e.index.At(pos - 1)
	if !ok {
		if !e.cfg.Playback.Navigation.WrapPrev {
			return nil
		}
		prev, _ = e.index.Last()
	}
	e.moveTo(prev)
	return nil
}

// SelectPage jumps to the first bubble of page i. Playback continues only if
// it was already running.
func (e *Engine) SelectPage(i int) error {
	if i < 0 || i >= e.index.Pages() {
		return ErrPageOutOfRange
	}
	e.cancelAdvance()
	e.stopChannel()
	e.page = i

	first, ok := e.index.PageFirst(i)
	if !ok {
		e.bubbleID = ""
		e.playing = false
		e.notify()
		return nil
	}
	e.bubbleID = first
	if e.playing {
		e.start()
		return nil
	}
	e.notify()
	return nil
}

// SetBubble selects id. Playback continues only if it was already running.
func (e *Engine) SetBubble(id string) error {
	if _, ok := e.index.Lookup(id); !ok {
		return ErrUnknownBubble
	}
	e.moveTo(id)
	return nil
}

// SetSpeed changes the playback speed. The active channel picks it up
// without restarting.
func (e *Engine) SetSpeed(speed float64) error {
	if err := ValidateSpeed(speed); err != nil {
		return err
	}
	e.speed = speed
	if e.channel != nil {
		e.channel.SetRate(speed)
	}
	e.notify()
	return nil
}

// Speed returns the playback speed.
func (e *Engine) Speed() float64 { return e.speed }

// Restart selects the first bubble and starts playing.
func (e *Engine) Restart() error {
	first, ok := e.index.First()
	if !ok {
		return ErrNothingToPlay
	}
	e.selectBubble(first)
	e.start()
	return nil
}

// SetChapter installs new chapter data. A different chapter id resets the
// playback state. The same id keeps the selection when it still exists and
// snaps to the first bubble otherwise.
func (e *Engine) SetChapter(ch Chapter) {
	changed := ch.ChapterID != e.chapter.ChapterID
	e.chapter = ch
	e.index = NewIndex(ch.Pages)
	if dropped := e.index.Dropped(); len(dropped) > 0 {
		e.logger.Debug("skipped reading order entries", "chapter", ch.ChapterID, "ids", dropped)
	}

	if changed {
		e.cancelAdvance()
		e.stopChannel()
		e.page = 0
		e.bubbleID = ""
		e.playing = false
		e.paused = false
		e.errors = nil
		e.logger.Debug("chapter loaded", "chapter", ch.ChapterID, "pages", e.index.Pages(), "bubbles", e.index.Len())
		e.notify()
		return
	}

	e.reconcile()
	e.notify()
}

func (e *Engine) reconcile() {
	if e.bubbleID == "" {
		e.page = min(max(e.page, 0), max(e.index.Pages()-1, 0))
		return
	}

	if loc, ok := e.index.Lookup(e.bubbleID); ok {
		e.page = loc.Page
		return
	}

	e.logger.Warn("selected bubble vanished after refresh", "bubble", e.bubbleID)
	first, ok := e.index.First()
	if !ok {
		e.cancelAdvance()
		e.stopChannel()
		e.bubbleID = ""
		e.playing = false
		e.page = 0
		return
	}
	e.selectBubble(first)
	if e.playing {
		e.start()
	}
}

// ReportError appends an error that happened outside the engine, such as a
// failed chapter refresh. State errors are only logged.
func (e *Engine) ReportError(kind ErrorKind, err error) {
	if err == nil {
		return
	}
	if kind == KindState {
		e.logger.Warn("state error", "err", err)
		return
	}
	e.record(NewPlaybackError(kind, "", err))
	e.notify()
}

// ClearErrors empties the error list.
func (e *Engine) ClearErrors() {
	e.errors = nil
	e.notify()
}

// Close stops everything. The engine stays usable.
func (e *Engine) Close() {
	e.Pause()
}

func (e *Engine) moveTo(id string) {
	e.cancelAdvance()
	e.selectBubble(id)
	if e.playing {
		e.start()
		return
	}
	e.notify()
}

func (e *Engine) selectBubble(id string) {
	e.bubbleID = id
	if loc, ok := e.index.Lookup(id); ok {
		e.page = loc.Page
	}
}

// start resolves the selected bubble into a channel.
func (e *Engine) start() {
	e.cancelAdvance()
	e.stopChannel()
	e.paused = false

	item := e.index.Bubble(e.bubbleID)
	if item == nil {
		e.playing = false
		e.notify()
		return
	}

	src := ResolveAudioURL(item.AudioURL, e.cfg.API.BaseURL)
	switch {
	case src == "":
		e.fallback(item, ErrNoAudio)
	case e.audio == nil:
		e.fallback(item, ErrNoAudioOutput)
	default:
		tok := &channelToken{kind: ChannelAudio}
		e.token = tok
		ch, err := e.audio.Play(src, e.speed, e.events(tok))
		if err != nil {
			e.token = nil
			e.fallback(item, err)
			return
		}
		e.attach(tok, ch)
		e.prefetch()
	}
}

// fallback speaks the bubble text after native audio was unusable.
func (e *Engine) fallback(item *BubbleItem, cause error) {
	e.record(NewPlaybackError(KindAudio, item.BubbleID, cause))

	text := strings.TrimSpace(item.Text)
	switch {
	case e.speech == nil || !e.speech.Available():
		e.fail(item.BubbleID, ErrSpeechUnavailable)
		return
	case text == "":
		e.fail(item.BubbleID, ErrEmptyText)
		return
	}

	tok := &channelToken{kind: ChannelSpeech}
	e.token = tok
	ch, err := e.speech.Speak(Utterance{Text: text, VoiceID: item.VoiceID, Rate: e.speed}, e.events(tok))
	if err != nil {
		e.token = nil
		e.fail(item.BubbleID, err)
		return
	}
	e.attach(tok, ch)
}

func (e *Engine) attach(tok *channelToken, ch Channel) {
	e.token = tok
	e.channel = ch
	e.playing = true
	e.logger.Debug("channel started", "bubble", e.bubbleID, "kind", tok.kind, "speed", e.speed)
	e.notify()
}

func (e *Engine) fail(bubbleID string, err error) {
	e.record(NewPlaybackError(KindSpeech, bubbleID, err))
	e.cancelAdvance()
	e.stopChannel()
	e.playing = false
	e.notify()
}

func (e *Engine) record(pe *PlaybackError) {
	e.logger.Warn("playback error", "kind", pe.Kind, "bubble", pe.BubbleID, "fatal", pe.Fatal, "err", pe.Err)
	e.errors = append(e.errors, pe)
}

func (e *Engine) events(tok *channelToken) ChannelEvents {
	return ChannelEvents{
		OnEnd: func() {
			e.sched.Dispatch(func() { e.channelEnded(tok) })
		},
		OnError: func(err error) {
			e.sched.Dispatch(func() { e.channelFailed(tok, err) })
		},
	}
}

func (e *Engine) channelEnded(tok *channelToken) {
	if tok != e.token {
		return
	}
	e.channel = nil
	e.token = nil

	adv := &advanceToken{from: e.bubbleID}
	e.pendingToken = adv
	delay := AdvanceDelay(e.cfg.Playback.AdvanceDelay, e.cfg.Playback.MinAdvanceDelay, e.speed)
	e.pending = e.sched.AfterFunc(delay, func() { e.fireAdvance(adv) })
	e.notify()
}

func (e *Engine) channelFailed(tok *channelToken, err error) {
	if tok != e.token {
		return
	}
	e.stopChannel()

	item := e.index.Bubble(e.bubbleID)
	if tok.kind == ChannelAudio && item != nil {
		e.fallback(item, err)
		return
	}
	e.fail(e.bubbleID, err)
}

func (e *Engine) fireAdvance(adv *advanceToken) {
	if adv != e.pendingToken {
		return
	}
	e.pending = nil
	e.pendingToken = nil
	e.autoAdvance()
}

// autoAdvance moves to the next bubble after a natural end. Past the last
// bubble playback stops.
func (e *Engine) autoAdvance() {
	if !e.playing {
		return
	}
	next, ok := e.index.At(e.index.Position(e.bubbleID) + 1)
	if !ok && e.cfg.Playback.Navigation.WrapNext {
		next, ok = e.index.First()
	}
	if !ok {
		e.logger.Debug("chapter complete", "chapter", e.chapter.ChapterID)
		e.playing = false
		e.notify()
		return
	}
	e.selectBubble(next)
	e.start()
}

func (e *Engine) prefetch() {
	n := e.cfg.Playback.Prefetch
	if e.prefetcher == nil || n <= 0 {
		return
	}
	pos := e.index.Position(e.bubbleID)
	var srcs []string
	for i := pos + 1; i <= pos+n; i++ {
		id, ok := e.index.At(i)
		if !ok {
			break
		}
		src := ResolveAudioURL(e.index.Bubble(id).AudioURL, e.cfg.API.BaseURL)
		if src != "" && !hasScheme(src, "data") {
			srcs = append(srcs, src)
		}
	}
	if len(srcs) > 0 {
		e.prefetcher.Prefetch(srcs)
	}
}

func (e *Engine) stopChannel() {
	if e.channel != nil {
		e.channel.Stop()
	}
	e.channel = nil
	e.token = nil
}

func (e *Engine) cancelAdvance() {
	if e.pending != nil {
		e.pending.Stop()
	}
	e.pending = nil
	e.pendingToken = nil
}

func (e *Engine) status() Status {
	switch {
	case e.bubbleID == "":
		return StatusIdle
	case e.playing:
		return StatusPlaying
	case e.paused:
		return StatusPaused
	default:
		return StatusReady
	}
}

func (e *Engine) notify() {
	to := e.status()
	if !e.sm.Transition(to) {
		e.logger.Warn("unexpected status transition", "from", e.sm.Current(), "to", to)
		e.sm = NewStateMachine()
		e.sm.Transition(to)
	}
	if len(e.listeners) == 0 {
		return
	}
	st := e.State()
	for _, fn := range e.listeners {
		fn(st)
	}
}
