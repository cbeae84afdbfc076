package reader

import (
	"context"
	"time"
)

// Channel is a single playing audio or speech stream.
type Channel interface {
	// SetRate changes the playback rate without restarting.
	SetRate(rate float64)

	// Stop ends playback. Callbacks are not invoked after Stop.
	Stop()
}

// PositionReporter is implemented by channels that know how far they have
// played, measured in source time.
type PositionReporter interface {
	Position() time.Duration
}

// ChannelEvents receives the outcome of a channel. Either callback may be
// invoked on any goroutine, at most once, and only one of them fires.
type ChannelEvents struct {
	OnEnd   func()
	OnError func(error)
}

// AudioOutput plays bubble audio resources.
type AudioOutput interface {
	// Play starts playing src at rate. A returned error means the channel
	// could not be created. Errors after creation arrive through ev.
	Play(src string, rate float64, ev ChannelEvents) (Channel, error)
}

// Utterance is a request for synthesized speech.
type Utterance struct {
	Text    string
	VoiceID string
	Rate    float64
}

// SpeechSynthesizer speaks bubble text when native audio is unavailable.
type SpeechSynthesizer interface {
	// Available reports whether speech can be produced at all.
	Available() bool

	// Speak starts speaking u. Errors after creation arrive through ev.
	Speak(u Utterance, ev ChannelEvents) (Channel, error)
}

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call stopped it.
	Stop() bool
}

// Scheduler runs callbacks on the owner loop.
type Scheduler interface {
	// Dispatch queues fn to run on the owner loop. Safe from any goroutine.
	Dispatch(fn func())

	// AfterFunc runs fn on the owner loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
}

// ChapterSource provides chapter data.
type ChapterSource interface {
	Fetch(ctx context.Context, chapterID string) (Chapter, error)
}
