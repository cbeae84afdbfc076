package readertest

import (
	"sync"
	"time"

	"github.com/jacixn/inkami/reader"
)

// Channel is a fake playback channel controlled by the test.
type Channel struct {
	mu       sync.Mutex
	Src      string
	Text     string
	Voice    string
	rates    []float64
	stopped  bool
	done     bool
	position time.Duration
	ev       reader.ChannelEvents
}

func newChannel(rate float64, ev reader.ChannelEvents) *Channel {
	return &Channel{rates: []float64{rate}, ev: ev}
}

// SetRate records the rate.
func (c *Channel) SetRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = append(c.rates, rate)
}

// Stop marks the channel stopped.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

// Position implements reader.PositionReporter.
func (c *Channel) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// SetPosition sets the reported playback position.
func (c *Channel) SetPosition(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = d
}

// Rate returns the latest rate.
func (c *Channel) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rates[len(c.rates)-1]
}

// Rates returns every rate the channel was given, starting with the initial
// one.
func (c *Channel) Rates() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.rates...)
}

// Stopped reports whether Stop was called.
func (c *Channel) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Alive reports whether the channel neither stopped nor finished.
func (c *Channel) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped && !c.done
}

// End simulates the natural end of playback. Like a real channel it still
// reports the end after Stop; the engine must ignore it.
func (c *Channel) End() {
	c.mu.Lock()
	c.done = true
	fn := c.ev.OnEnd
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Fail simulates an asynchronous playback error.
func (c *Channel) Fail(err error) {
	c.mu.Lock()
	c.done = true
	fn := c.ev.OnError
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Audio is a fake reader.AudioOutput.
type Audio struct {
	mu       sync.Mutex
	channels []*Channel
	// PlayError is returned by the next Play calls when set.
	PlayError error
	// Reject fails specific sources synchronously.
	Reject map[string]error
}

// NewAudio creates a fake audio output.
func NewAudio() *Audio {
	return &Audio{Reject: make(map[string]error)}
}

// Play records a new channel.
func (a *Audio) Play(src string, rate float64, ev reader.ChannelEvents) (reader.Channel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.PlayError != nil {
		return nil, a.PlayError
	}
	if err, ok := a.Reject[src]; ok {
		return nil, err
	}
	ch := newChannel(rate, ev)
	ch.Src = src
	a.channels = append(a.channels, ch)
	return ch, nil
}

// Channels returns every channel created so far.
func (a *Audio) Channels() []*Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Channel(nil), a.channels...)
}

// Last returns the most recent channel, or nil.
func (a *Audio) Last() *Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.channels) == 0 {
		return nil
	}
	return a.channels[len(a.channels)-1]
}

// Speech is a fake reader.SpeechSynthesizer.
type Speech struct {
	mu          sync.Mutex
	channels    []*Channel
	Unavailable bool
	SpeakError  error
}

// NewSpeech creates an available fake synthesizer.
func NewSpeech() *Speech {
	return &Speech{}
}

// Available reports whether the fake is available.
func (s *Speech) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Unavailable
}

// Speak records a new utterance channel.
func (s *Speech) Speak(u reader.Utterance, ev reader.ChannelEvents) (reader.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SpeakError != nil {
		return nil, s.SpeakError
	}
	ch := newChannel(u.Rate, ev)
	ch.Text = u.Text
	ch.Voice = u.VoiceID
	s.channels = append(s.channels, ch)
	return ch, nil
}

// Channels returns every utterance channel created so far.
func (s *Speech) Channels() []*Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Channel(nil), s.channels...)
}

// Last returns the most recent utterance channel, or nil.
func (s *Speech) Last() *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.channels) == 0 {
		return nil
	}
	return s.channels[len(s.channels)-1]
}

// Alive counts live channels across the given fakes.
func Alive(groups ...[]*Channel) int {
	n := 0
	for _, g := range groups {
		for _, c := range g {
			if c.Alive() {
				n++
			}
		}
	}
	return n
}
