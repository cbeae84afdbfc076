// Package session wires a chapter source, the playback engine and the audio
// and speech outputs around one owner loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/jacixn/inkami/internal/cache"
	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/audio"
	"github.com/jacixn/inkami/reader/source"
	"github.com/jacixn/inkami/reader/speech"
)

// ErrReadOnly is returned for API writes in fixture mode.
var ErrReadOnly = errors.New("fixture chapters are read-only")

// cacheTTL is how long cached audio survives without being read.
const cacheTTL = 7 * 24 * time.Hour

// Options select how a session reaches its chapter and the sound card.
type Options struct {
	// Fixture serves the chapter from a local file instead of the API.
	Fixture string
	// Device overrides the sound card.
	Device audio.Device
	// Mute renders audio in real time without a sound card.
	Mute bool
	// Synthesizer overrides the configured speech engine.
	Synthesizer speech.Synthesizer
}

// Session is one reading session.
type Session struct {
	Loop    *reader.Loop
	Engine  *reader.Engine
	Poller  *source.Poller
	Output  *audio.Output
	Speaker *speech.Speaker
	Cache   *cache.Manager

	// OnChapter is called on the loop after chapter data was applied.
	OnChapter func(reader.Chapter)

	cfg     reader.Config
	api     *source.HTTPSource
	fixture *source.FixtureSource
	started bool
	logger  *log.Logger
}

// New builds a session. Missing audio hardware or speech engines are not
// errors: playback degrades and reports through the engine error list.
func New(cfg reader.Config, opts Options) (*Session, error) {
	s := &Session{
		Loop:   reader.NewLoop(),
		cfg:    cfg,
		logger: log.Default().WithPrefix("session"),
	}

	if cfg.Cache.Enabled {
		m, err := OpenCache(cfg.Cache)
		if err != nil {
			s.logger.Warn("audio cache disabled", "err", err)
		} else {
			s.Cache = m
		}
	}

	fetcher := audio.NewFetcher(cfg.API.Timeout, audio.WithCache(s.Cache))
	s.Output = audio.NewOutput(s.device(opts), fetcher, cfg.Audio.Volume)

	synth := opts.Synthesizer
	if synth == nil {
		var err error
		if synth, err = speech.Select(cfg.Speech); err != nil {
			s.logger.Warn("speech fallback disabled", "err", err)
		}
	}
	s.Speaker = speech.NewSpeaker(synth, s.Output, s.Cache)

	var src reader.ChapterSource
	if opts.Fixture != "" {
		s.fixture = source.NewFixtureSource(opts.Fixture)
		src = s.fixture
	} else {
		s.api = source.NewHTTPSource(cfg.API)
		src = s.api
	}

	s.Engine = reader.NewEngine(cfg, s.Loop,
		reader.WithAudio(s.Output),
		reader.WithSpeech(s.Speaker),
		reader.WithPrefetcher(s.Output),
	)
	s.Poller = source.NewPoller(src, s.Loop, cfg.API.PollInterval, cfg.API.Timeout)
	s.Poller.OnChapter = s.applyChapter
	s.Poller.OnError = func(err error) { s.Engine.ReportError(reader.KindNetwork, err) }

	s.logger.Debug("session ready",
		"engine", s.Speaker.Engine(),
		"fixture", opts.Fixture,
		"cache", s.Cache != nil,
	)
	return s, nil
}

func (s *Session) device(opts Options) audio.Device {
	switch {
	case opts.Device != nil:
		return opts.Device
	case opts.Mute:
		dev := audio.NewMemoryDevice(s.cfg.Audio.SampleRate)
		// one 4096 byte chunk per tick keeps rendering near real time
		dev.Pace = time.Duration(float64(4096/audio.BytesPerFrame) / float64(s.cfg.Audio.SampleRate) * float64(time.Second))
		return dev
	}
	dev, err := audio.OpenDevice(s.cfg.Audio.SampleRate, s.cfg.Audio.Buffer)
	if err != nil {
		s.logger.Warn("no audio device, bubbles will fail to play", "err", err)
		return nil
	}
	return dev
}

// OpenCache opens the two level audio cache described by cfg.
func OpenCache(cfg reader.CacheConfig) (*cache.Manager, error) {
	dir := cfg.Dir
	if dir == "" {
		base, err := gap.NewScope(gap.User, "inkami").CacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache directory: %w", err)
		}
		dir = filepath.Join(base, "audio")
	}
	return cache.NewManager(cache.Config{
		MemoryCapacity:   int64(cfg.MemoryMB) << 20,
		DiskCapacity:     int64(cfg.DiskMB) << 20,
		DiskPath:         dir,
		CompressionLevel: cfg.CompressionLevel,
		TTL:              cacheTTL,
		CleanupInterval:  time.Hour,
	})
}

// Config returns the reader configuration.
func (s *Session) Config() reader.Config { return s.cfg }

// Fixture reports whether the chapter comes from a local file.
func (s *Session) Fixture() bool { return s.fixture != nil }

// Start begins loading chapterID. In fixture mode the file is watched and
// reloaded on change until ctx is done.
func (s *Session) Start(ctx context.Context, chapterID string) {
	s.Loop.Dispatch(func() { s.Poller.Start(chapterID) })
	if s.fixture == nil {
		return
	}
	err := s.fixture.Watch(ctx, func() {
		s.Loop.Dispatch(s.Poller.Refresh)
	})
	if err != nil {
		s.logger.Warn("fixture reload disabled", "err", err)
	}
}

func (s *Session) applyChapter(ch reader.Chapter) {
	first := !s.started
	s.started = true
	s.Engine.SetChapter(ch)
	if first && s.cfg.Playback.AutoPlay && s.Engine.Index().Len() > 0 {
		if err := s.Engine.Play(); err != nil {
			s.logger.Debug("autoplay", "err", err)
		}
	}
	if s.OnChapter != nil {
		s.OnChapter(ch)
	}
}

// UpdateSpeaker patches a speaker and refreshes the chapter once the server
// accepted it. It blocks and may be called from any goroutine.
func (s *Session) UpdateSpeaker(ctx context.Context, speakerID string, upd reader.SpeakerUpdate) error {
	if s.api == nil {
		return ErrReadOnly
	}
	if err := s.api.UpdateSpeaker(ctx, speakerID, upd); err != nil {
		return err
	}
	s.Loop.Dispatch(s.Poller.Refresh)
	return nil
}

// Close stops playback and polling and flushes the cache. The loop must no
// longer be drained concurrently.
func (s *Session) Close() error {
	s.Poller.Stop()
	s.Engine.Close()
	s.Loop.Drain()
	if s.Cache != nil {
		return s.Cache.Close()
	}
	return nil
}
