package audio

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// MemoryDevice is a Device that renders into memory instead of a sound
// card. It backs tests and silent headless runs.
type MemoryDevice struct {
	Rate int
	// Pace is the delay between chunks. Zero renders as fast as possible.
	Pace time.Duration

	mu    sync.Mutex
	sinks []*MemorySink
}

// NewMemoryDevice creates a memory device rendering at rate.
func NewMemoryDevice(rate int) *MemoryDevice {
	return &MemoryDevice{Rate: rate}
}

// SampleRate implements Device.
func (d *MemoryDevice) SampleRate() int { return d.Rate }

// NewSink implements Device.
func (d *MemoryDevice) NewSink(r io.Reader) Sink {
	s := &MemorySink{r: r, pace: d.Pace, stop: make(chan struct{})}
	d.mu.Lock()
	d.sinks = append(d.sinks, s)
	d.mu.Unlock()
	return s
}

// Sinks returns every sink created so far.
func (d *MemoryDevice) Sinks() []*MemorySink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MemorySink(nil), d.sinks...)
}

// MemorySink collects rendered PCM.
type MemorySink struct {
	r    io.Reader
	pace time.Duration

	mu      sync.Mutex
	buf     bytes.Buffer
	started bool
	playing bool
	closed  bool
	stop    chan struct{}
	once    sync.Once
}

// Play starts consuming the reader.
func (s *MemorySink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	s.playing = true
	go s.render()
}

func (s *MemorySink) render() {
	chunk := make([]byte, 4096)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		n, err := s.r.Read(chunk)
		s.mu.Lock()
		s.buf.Write(chunk[:n])
		if err != nil {
			s.playing = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		if s.pace > 0 {
			select {
			case <-s.stop:
				return
			case <-time.After(s.pace):
			}
		}
	}
}

// Pause stops rendering.
func (s *MemorySink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
}

// IsPlaying reports whether the sink is still rendering.
func (s *MemorySink) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// BufferedSize is always zero.
func (s *MemorySink) BufferedSize() int { return 0 }

// Close stops rendering for good.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Bytes returns the PCM rendered so far.
func (s *MemorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *MemorySink) halt() {
	s.once.Do(func() { close(s.stop) })
	s.playing = false
}
