package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Output format of every stream: 16-bit signed little endian stereo.
const (
	Channels       = 2
	BitDepth       = 16
	BytesPerFrame  = Channels * BitDepth / 8
	DefaultPCMRate = 22050
)

var errEmptyPCM = errors.New("empty PCM data")

// PCMFormat describes raw PCM input.
type PCMFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// BytesPerFrame returns the size of one frame in bytes.
func (f PCMFormat) BytesPerFrame() int {
	return f.BitDepth / 8 * f.Channels
}

// Clip is decoded audio held in memory as interleaved stereo samples.
type Clip struct {
	SampleRate int
	Samples    []int16 // L, R, L, R, ...
}

// Frames returns the number of stereo frames.
func (c *Clip) Frames() int {
	return len(c.Samples) / Channels
}

// Duration returns the play time at normal speed.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(c.Frames()) / float64(c.SampleRate) * float64(time.Second))
}

// NewClipFromPCM converts 16-bit little endian PCM in the given format to a
// stereo clip. Mono input is duplicated onto both channels.
func NewClipFromPCM(data []byte, format PCMFormat) (*Clip, error) {
	if len(data) == 0 {
		return nil, errEmptyPCM
	}
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", format.BitDepth)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", format.Channels)
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", format.SampleRate)
	}

	frameSize := format.BytesPerFrame()
	frames := len(data) / frameSize
	clip := &Clip{SampleRate: format.SampleRate, Samples: make([]int16, frames*Channels)}
	for i := range frames {
		off := i * frameSize
		l := int16(binary.LittleEndian.Uint16(data[off:]))
		r := l
		if format.Channels == 2 {
			r = int16(binary.LittleEndian.Uint16(data[off+2:]))
		}
		clip.Samples[2*i] = l
		clip.Samples[2*i+1] = r
	}
	return clip, nil
}

// Silence returns a clip of d seconds of silence.
func Silence(d time.Duration, sampleRate int) *Clip {
	frames := int(d.Seconds() * float64(sampleRate))
	return &Clip{SampleRate: sampleRate, Samples: make([]int16, frames*Channels)}
}

// Concat joins clips of the same sample rate.
func Concat(clips ...*Clip) (*Clip, error) {
	if len(clips) == 0 {
		return nil, errEmptyPCM
	}
	out := &Clip{SampleRate: clips[0].SampleRate}
	for _, c := range clips {
		if c.SampleRate != out.SampleRate {
			return nil, fmt.Errorf("sample rate mismatch: %d and %d", out.SampleRate, c.SampleRate)
		}
		out.Samples = append(out.Samples, c.Samples...)
	}
	return out, nil
}
