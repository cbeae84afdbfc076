package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"
)

// rateReader renders a clip as output PCM at a variable playback rate. The
// rate may change while the reader is being consumed.
type rateReader struct {
	mu      sync.Mutex
	clip    *Clip
	outRate int
	rate    float64
	volume  float64
	pos     float64 // in source frames
}

func newRateReader(clip *Clip, outRate int, rate, volume float64) *rateReader {
	return &rateReader{clip: clip, outRate: outRate, rate: rate, volume: volume}
}

// Read implements io.Reader with linear interpolation between source frames.
func (r *rateReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := r.clip.Frames()
	if r.pos >= float64(frames) {
		return 0, io.EOF
	}

	step := float64(r.clip.SampleRate) / float64(r.outRate) * r.rate
	n := 0
	for n+BytesPerFrame <= len(p) {
		i := int(r.pos)
		if i >= frames {
			break
		}
		frac := r.pos - float64(i)
		j := min(i+1, frames-1)
		for ch := range Channels {
			a := float64(r.clip.Samples[i*Channels+ch])
			b := float64(r.clip.Samples[j*Channels+ch])
			v := (a + (b-a)*frac) * r.volume
			v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
			binary.LittleEndian.PutUint16(p[n+2*ch:], uint16(int16(v)))
		}
		n += BytesPerFrame
		r.pos += step
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *rateReader) setRate(rate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate = rate
}

// position returns how much of the clip has been rendered, in source time.
func (r *rateReader) position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := min(r.pos, float64(r.clip.Frames()))
	return time.Duration(pos / float64(r.clip.SampleRate) * float64(time.Second))
}

// heard returns the position minus buffered output bytes not yet played.
func (r *rateReader) heard(buffered int) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	step := float64(r.clip.SampleRate) / float64(r.outRate) * r.rate
	pos := min(r.pos, float64(r.clip.Frames())) - float64(buffered/BytesPerFrame)*step
	if pos < 0 {
		return 0
	}
	return time.Duration(pos / float64(r.clip.SampleRate) * float64(time.Second))
}

func (r *rateReader) done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos >= float64(r.clip.Frames())
}
