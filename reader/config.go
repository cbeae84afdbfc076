package reader

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Config contains all reader configuration options.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Playback PlaybackConfig `yaml:"playback"`
	Audio    AudioConfig    `yaml:"audio"`
	Speech   SpeechConfig   `yaml:"speech"`
	Cache    CacheConfig    `yaml:"cache"`
	View     ViewConfig     `yaml:"view"`
}

// APIConfig configures the chapter API.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" env:"INKAMI_API_BASE_URL"`
	PollInterval      time.Duration `yaml:"poll_interval" env:"INKAMI_API_POLL_INTERVAL"`
	Timeout           time.Duration `yaml:"timeout" env:"INKAMI_API_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"INKAMI_API_REQUESTS_PER_SECOND"`
}

// NavigationPolicy decides what happens at the ends of the reading order.
type NavigationPolicy struct {
	WrapPrev bool `yaml:"wrap_prev" env:"INKAMI_WRAP_PREV"`
	WrapNext bool `yaml:"wrap_next" env:"INKAMI_WRAP_NEXT"`
}

// PlaybackConfig configures the playback engine.
type PlaybackConfig struct {
	Speed           float64          `yaml:"speed" env:"INKAMI_SPEED"`
	AdvanceDelay    time.Duration    `yaml:"advance_delay" env:"INKAMI_ADVANCE_DELAY"`
	MinAdvanceDelay time.Duration    `yaml:"min_advance_delay" env:"INKAMI_MIN_ADVANCE_DELAY"`
	AutoPlay        bool             `yaml:"autoplay" env:"INKAMI_AUTOPLAY"`
	Prefetch        int              `yaml:"prefetch" env:"INKAMI_PREFETCH"`
	Navigation      NavigationPolicy `yaml:"navigation"`
}

// AudioConfig configures native audio output.
type AudioConfig struct {
	SampleRate int           `yaml:"sample_rate" env:"INKAMI_SAMPLE_RATE"`
	Buffer     time.Duration `yaml:"buffer" env:"INKAMI_AUDIO_BUFFER"`
	Volume     float64       `yaml:"volume" env:"INKAMI_VOLUME"`
}

// SpeechConfig configures fallback speech synthesis.
type SpeechConfig struct {
	Engine string       `yaml:"engine" env:"INKAMI_SPEECH_ENGINE"`
	Piper  PiperConfig  `yaml:"piper"`
	Google GoogleConfig `yaml:"google"`
}

// PiperConfig contains piper engine settings.
type PiperConfig struct {
	Binary  string            `yaml:"binary" env:"INKAMI_PIPER_BINARY"`
	Model   string            `yaml:"model" env:"INKAMI_PIPER_MODEL"`
	Voices  map[string]string `yaml:"voices"`
	Timeout time.Duration     `yaml:"timeout" env:"INKAMI_PIPER_TIMEOUT"`
}

// GoogleConfig contains settings of the Google Translate speech endpoint.
type GoogleConfig struct {
	Language          string        `yaml:"language" env:"INKAMI_GOOGLE_LANGUAGE"`
	TLD               string        `yaml:"tld" env:"INKAMI_GOOGLE_TLD"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"INKAMI_GOOGLE_REQUESTS_PER_MINUTE"`
	Timeout           time.Duration `yaml:"timeout" env:"INKAMI_GOOGLE_TIMEOUT"`
}

// CacheConfig configures the audio cache.
type CacheConfig struct {
	Enabled          bool   `yaml:"enabled" env:"INKAMI_CACHE_ENABLED"`
	Dir              string `yaml:"dir" env:"INKAMI_CACHE_DIR"`
	MemoryMB         int    `yaml:"memory_mb" env:"INKAMI_CACHE_MEMORY_MB"`
	DiskMB           int    `yaml:"disk_mb" env:"INKAMI_CACHE_DISK_MB"`
	CompressionLevel int    `yaml:"compression_level" env:"INKAMI_CACHE_COMPRESSION_LEVEL"`
}

// ViewConfig configures scroll following and focused mode.
type ViewConfig struct {
	ScrollSettle      time.Duration `yaml:"scroll_settle" env:"INKAMI_SCROLL_SETTLE"`
	ScrollDuration    time.Duration `yaml:"scroll_duration" env:"INKAMI_SCROLL_DURATION"`
	HideControlsAfter time.Duration `yaml:"hide_controls_after" env:"INKAMI_HIDE_CONTROLS_AFTER"`
}

// Speech engine names.
const (
	SpeechAuto   = "auto"
	SpeechPiper  = "piper"
	SpeechGoogle = "google"
	SpeechNone   = "none"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			PollInterval:      3 * time.Second,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 4,
		},
		Playback: PlaybackConfig{
			Speed:           DefaultSpeed,
			AdvanceDelay:    600 * time.Millisecond,
			MinAdvanceDelay: 250 * time.Millisecond,
			Prefetch:        2,
			Navigation:      NavigationPolicy{WrapPrev: true},
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			Buffer:     100 * time.Millisecond,
			Volume:     1.0,
		},
		Speech: SpeechConfig{
			Engine: SpeechAuto,
			Piper: PiperConfig{
				Binary:  "piper",
				Timeout: 30 * time.Second,
			},
			Google: GoogleConfig{
				Language:          "en",
				TLD:               "com",
				RequestsPerMinute: 60,
				Timeout:           10 * time.Second,
			},
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryMB:         32,
			DiskMB:           512,
			CompressionLevel: 2,
		},
		View: ViewConfig{
			ScrollSettle:      120 * time.Millisecond,
			ScrollDuration:    350 * time.Millisecond,
			HideControlsAfter: 5 * time.Second,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api base url %q is not an absolute URL", ErrInvalidConfig, c.API.BaseURL)
	}
	if c.API.PollInterval < time.Second || c.API.PollInterval > time.Minute {
		return fmt.Errorf("%w: poll_interval must be between 1s and 1m, got %v", ErrInvalidConfig, c.API.PollInterval)
	}
	if c.API.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: requests_per_second must be positive", ErrInvalidConfig)
	}

	if err := ValidateSpeed(c.Playback.Speed); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Playback.AdvanceDelay < 0 || c.Playback.MinAdvanceDelay < 0 {
		return fmt.Errorf("%w: advance delays cannot be negative", ErrInvalidConfig)
	}
	if c.Playback.Prefetch < 0 || c.Playback.Prefetch > 10 {
		return fmt.Errorf("%w: prefetch must be between 0 and 10, got %d", ErrInvalidConfig, c.Playback.Prefetch)
	}

	validSampleRates := []int{22050, 24000, 44100, 48000}
	if !slices.Contains(validSampleRates, c.Audio.SampleRate) {
		return fmt.Errorf("%w: invalid sample rate %d: must be one of %v", ErrInvalidConfig, c.Audio.SampleRate, validSampleRates)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 2 {
		return fmt.Errorf("%w: volume must be between 0.0 and 2.0, got %f", ErrInvalidConfig, c.Audio.Volume)
	}

	c.Speech.Engine = strings.ToLower(c.Speech.Engine)
	validEngines := []string{SpeechAuto, SpeechPiper, SpeechGoogle, SpeechNone}
	if !slices.Contains(validEngines, c.Speech.Engine) {
		return fmt.Errorf("%w: invalid speech engine %q: must be one of %v", ErrInvalidConfig, c.Speech.Engine, validEngines)
	}
	if c.Speech.Google.RequestsPerMinute < 1 {
		return fmt.Errorf("%w: google requests_per_minute must be at least 1", ErrInvalidConfig)
	}

	if c.Cache.CompressionLevel < 1 || c.Cache.CompressionLevel > 4 {
		return fmt.Errorf("%w: compression_level must be between 1 and 4, got %d", ErrInvalidConfig, c.Cache.CompressionLevel)
	}
	if c.Cache.MemoryMB < 0 || c.Cache.DiskMB < 0 {
		return fmt.Errorf("%w: cache sizes cannot be negative", ErrInvalidConfig)
	}

	if c.View.ScrollDuration <= 0 {
		return fmt.Errorf("%w: scroll_duration must be positive", ErrInvalidConfig)
	}
	if c.View.HideControlsAfter < time.Second {
		return fmt.Errorf("%w: hide_controls_after must be at least 1s", ErrInvalidConfig)
	}
	return nil
}
