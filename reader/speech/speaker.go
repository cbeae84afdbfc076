// Package speech provides the synthesized fallback narration used when a
// bubble has no playable audio.
package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/jacixn/inkami/internal/cache"
	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/audio"
)

// Synthesizer turns text into audio.
type Synthesizer interface {
	Name() string
	Available() bool
	Synthesize(ctx context.Context, text, voice string) (*audio.Clip, error)
}

// Speaker speaks utterances through an audio output. It implements
// reader.SpeechSynthesizer.
type Speaker struct {
	synth  Synthesizer
	out    *audio.Output
	cache  *cache.Manager
	logger *log.Logger
}

// NewSpeaker creates a speaker. Either argument may be nil, which makes the
// speaker unavailable.
func NewSpeaker(synth Synthesizer, out *audio.Output, c *cache.Manager) *Speaker {
	return &Speaker{
		synth:  synth,
		out:    out,
		cache:  c,
		logger: log.Default().WithPrefix("speech"),
	}
}

// Engine returns the synthesizer name, or "" when none is set.
func (s *Speaker) Engine() string {
	if s.synth == nil {
		return ""
	}
	return s.synth.Name()
}

// Available implements reader.SpeechSynthesizer.
func (s *Speaker) Available() bool {
	return s.synth != nil && s.out != nil && s.synth.Available()
}

// Speak implements reader.SpeechSynthesizer. Synthesis runs in the
// background; failures arrive through ev.OnError.
func (s *Speaker) Speak(u reader.Utterance, ev reader.ChannelEvents) (reader.Channel, error) {
	if !s.Available() {
		return nil, reader.ErrSpeechUnavailable
	}
	text := PrepareText(u.Text)
	if text == "" {
		return nil, reader.ErrEmptyText
	}

	st := s.out.Open(u.Rate, ev)
	go func() {
		clip, err := s.clip(st.Context(), text, u.VoiceID)
		if err != nil {
			st.Fail(err)
			return
		}
		st.Start(clip)
	}()
	return st, nil
}

func (s *Speaker) clip(ctx context.Context, text, voice string) (*audio.Clip, error) {
	if s.cache == nil {
		return s.synth.Synthesize(ctx, text, voice)
	}
	key := cache.Key("speech", s.synth.Name(), voice, text)
	data, err := s.cache.Load(key, func() ([]byte, error) {
		clip, err := s.synth.Synthesize(ctx, text, voice)
		if err != nil {
			return nil, err
		}
		return encodeClip(clip), nil
	})
	if err != nil {
		return nil, err
	}
	return decodeClip(data)
}

var errBadClip = errors.New("corrupt cached clip")

// encodeClip serializes a clip as a sample rate header followed by
// little endian samples.
func encodeClip(c *audio.Clip) []byte {
	buf := make([]byte, 4+2*len(c.Samples))
	binary.LittleEndian.PutUint32(buf, uint32(c.SampleRate))
	for i, v := range c.Samples {
		binary.LittleEndian.PutUint16(buf[4+2*i:], uint16(v))
	}
	return buf
}

func decodeClip(data []byte) (*audio.Clip, error) {
	if len(data) < 4 || (len(data)-4)%audio.BytesPerFrame != 0 {
		return nil, errBadClip
	}
	c := &audio.Clip{
		SampleRate: int(binary.LittleEndian.Uint32(data)),
		Samples:    make([]int16, (len(data)-4)/2),
	}
	for i := range c.Samples {
		c.Samples[i] = int16(binary.LittleEndian.Uint16(data[4+2*i:]))
	}
	return c, nil
}

// Select picks the synthesizer for cfg.Engine. auto prefers a local piper
// and falls back to Google. It returns nil for "none" or when the requested
// engine cannot run.
func Select(cfg reader.SpeechConfig, opts ...GoogleOption) (Synthesizer, error) {
	piper := NewPiper(cfg.Piper)
	switch cfg.Engine {
	case reader.SpeechNone:
		return nil, nil
	case reader.SpeechPiper:
		if !piper.Available() {
			return nil, fmt.Errorf("%w: piper binary %q or model missing", reader.ErrSpeechUnavailable, cfg.Piper.Binary)
		}
		return piper, nil
	case reader.SpeechGoogle:
		return NewGoogle(cfg.Google, opts...), nil
	case reader.SpeechAuto, "":
		if piper.Available() {
			return piper, nil
		}
		return NewGoogle(cfg.Google, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown speech engine %q", reader.ErrInvalidConfig, cfg.Engine)
	}
}
