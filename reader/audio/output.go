package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jacixn/inkami/reader"
)

// pollInterval is how often a stream checks whether its sink drained.
const pollInterval = 20 * time.Millisecond

// Output plays bubble audio on a device. It implements reader.AudioOutput.
type Output struct {
	device  Device
	fetcher *Fetcher
	volume  float64
	logger  *log.Logger
}

// NewOutput creates an output. A nil device makes every Play fail with
// ErrNoDevice, which the engine turns into a speech fallback.
func NewOutput(device Device, fetcher *Fetcher, volume float64) *Output {
	if volume <= 0 {
		volume = 1
	}
	return &Output{
		device:  device,
		fetcher: fetcher,
		volume:  volume,
		logger:  log.Default().WithPrefix("audio"),
	}
}

// Play fetches, decodes and plays src. Loading happens in the background;
// load failures arrive through ev.OnError.
func (o *Output) Play(src string, rate float64, ev reader.ChannelEvents) (reader.Channel, error) {
	if o.device == nil {
		return nil, ErrNoDevice
	}
	if o.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher", reader.ErrNoAudio)
	}
	s := o.Open(rate, ev)
	go func() {
		data, err := o.fetcher.Fetch(s.Context(), src)
		if err != nil {
			s.Fail(err)
			return
		}
		clip, err := Decode(data)
		if err != nil {
			s.Fail(fmt.Errorf("decode %s: %w", src, err))
			return
		}
		s.Start(clip)
	}()
	return s, nil
}

// Prefetch forwards to the fetcher.
func (o *Output) Prefetch(srcs []string) {
	if o.fetcher != nil {
		o.fetcher.Prefetch(srcs)
	}
}

// Open creates a stream that is not yet playing. The caller supplies the
// clip with Start or reports a failure with Fail.
func (o *Output) Open(rate float64, ev reader.ChannelEvents) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{out: o, ctx: ctx, cancel: cancel, rate: rate, ev: ev}
}

// Stream is one playing clip.
type Stream struct {
	out    *Output
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	rate    float64
	reader  *rateReader
	sink    Sink
	ev      reader.ChannelEvents
	stopped bool
	ended   bool
}

// Context is cancelled when the stream stops.
func (s *Stream) Context() context.Context { return s.ctx }

// Start begins playing clip. It is a no-op on a stopped stream.
func (s *Stream) Start(clip *Clip) {
	s.mu.Lock()
	if s.stopped || s.ended {
		s.mu.Unlock()
		return
	}
	if s.out.device == nil {
		s.mu.Unlock()
		s.Fail(ErrNoDevice)
		return
	}
	s.reader = newRateReader(clip, s.out.device.SampleRate(), s.rate, s.out.volume)
	s.sink = s.out.device.NewSink(s.reader)
	s.sink.Play()
	s.mu.Unlock()

	go s.monitor()
}

// Fail ends the stream with err unless it was stopped.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	if s.stopped || s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.closeSink()
	onError := s.ev.OnError
	s.mu.Unlock()

	s.cancel()
	s.out.logger.Debug("stream failed", "err", err)
	if onError != nil {
		onError(err)
	}
}

// SetRate changes the playback rate of the live stream.
func (s *Stream) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	if s.reader != nil {
		s.reader.setRate(rate)
	}
}

// Stop halts playback and suppresses callbacks that have not started.
func (s *Stream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.closeSink()
	s.mu.Unlock()
	s.cancel()
}

// Position returns the audible position in source time.
func (s *Stream) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader == nil {
		return 0
	}
	if s.sink == nil {
		return s.reader.position()
	}
	return s.reader.heard(s.sink.BufferedSize())
}

func (s *Stream) monitor() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.stopped || s.ended {
			s.mu.Unlock()
			return
		}
		if !s.reader.done() || s.sink.IsPlaying() {
			s.mu.Unlock()
			continue
		}
		s.ended = true
		s.closeSink()
		onEnd := s.ev.OnEnd
		s.mu.Unlock()

		s.cancel()
		if onEnd != nil {
			onEnd()
		}
		return
	}
}

// closeSink must be called with mu held.
func (s *Stream) closeSink() {
	if s.sink == nil {
		return
	}
	s.sink.Pause()
	if err := s.sink.Close(); err != nil {
		s.out.logger.Debug("close sink", "err", err)
	}
	s.sink = nil
}
