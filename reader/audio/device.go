package audio

import (
	"errors"
	"io"
)

// ErrNoDevice is returned when no audio device can be opened.
var ErrNoDevice = errors.New("audio device not available")

// Device creates sinks on a sound card. Every sink consumes output PCM:
// 16-bit little endian stereo at SampleRate.
type Device interface {
	SampleRate() int
	NewSink(r io.Reader) Sink
}

// Sink plays the PCM read from its reader.
type Sink interface {
	Play()
	Pause()
	IsPlaying() bool
	// BufferedSize returns the bytes read from the reader but not yet heard.
	BufferedSize() int
	Close() error
}
