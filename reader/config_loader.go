package reader

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the reader configuration. Values come from the
// defaults, then from viper (config file and flags), then from INKAMI_*
// environment variables.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig loads the reader configuration from v.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	// API settings
	setString(v, "api.base_url", &cfg.API.BaseURL)
	setDuration(v, "api.poll_interval", &cfg.API.PollInterval)
	setDuration(v, "api.timeout", &cfg.API.Timeout)
	setFloat(v, "api.requests_per_second", &cfg.API.RequestsPerSecond)

	// Playback settings
	setFloat(v, "playback.speed", &cfg.Playback.Speed)
	setDuration(v, "playback.advance_delay", &cfg.Playback.AdvanceDelay)
	setDuration(v, "playback.min_advance_delay", &cfg.Playback.MinAdvanceDelay)
	setBool(v, "playback.autoplay", &cfg.Playback.AutoPlay)
	setInt(v, "playback.prefetch", &cfg.Playback.Prefetch)
	setBool(v, "playback.navigation.wrap_prev", &cfg.Playback.Navigation.WrapPrev)
	setBool(v, "playback.navigation.wrap_next", &cfg.Playback.Navigation.WrapNext)

	// Audio settings
	setInt(v, "audio.sample_rate", &cfg.Audio.SampleRate)
	setDuration(v, "audio.buffer", &cfg.Audio.Buffer)
	setFloat(v, "audio.volume", &cfg.Audio.Volume)

	// Speech settings
	setString(v, "speech.engine", &cfg.Speech.Engine)
	setString(v, "speech.piper.binary", &cfg.Speech.Piper.Binary)
	setString(v, "speech.piper.model", &cfg.Speech.Piper.Model)
	setDuration(v, "speech.piper.timeout", &cfg.Speech.Piper.Timeout)
	if v.IsSet("speech.piper.voices") {
		cfg.Speech.Piper.Voices = v.GetStringMapString("speech.piper.voices")
	}
	setString(v, "speech.google.language", &cfg.Speech.Google.Language)
	setString(v, "speech.google.tld", &cfg.Speech.Google.TLD)
	setInt(v, "speech.google.requests_per_minute", &cfg.Speech.Google.RequestsPerMinute)
	setDuration(v, "speech.google.timeout", &cfg.Speech.Google.Timeout)

	// Cache settings
	setBool(v, "cache.enabled", &cfg.Cache.Enabled)
	setString(v, "cache.dir", &cfg.Cache.Dir)
	setInt(v, "cache.memory_mb", &cfg.Cache.MemoryMB)
	setInt(v, "cache.disk_mb", &cfg.Cache.DiskMB)
	setInt(v, "cache.compression_level", &cfg.Cache.CompressionLevel)

	// View settings
	setDuration(v, "view.scroll_settle", &cfg.View.ScrollSettle)
	setDuration(v, "view.scroll_duration", &cfg.View.ScrollDuration)
	setDuration(v, "view.hide_controls_after", &cfg.View.HideControlsAfter)

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid reader configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults sets default values in viper for the reader configuration.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.poll_interval", d.API.PollInterval)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.requests_per_second", d.API.RequestsPerSecond)

	v.SetDefault("playback.speed", d.Playback.Speed)
	v.SetDefault("playback.advance_delay", d.Playback.AdvanceDelay)
	v.SetDefault("playback.min_advance_delay", d.Playback.MinAdvanceDelay)
	v.SetDefault("playback.autoplay", d.Playback.AutoPlay)
	v.SetDefault("playback.prefetch", d.Playback.Prefetch)
	v.SetDefault("playback.navigation.wrap_prev", d.Playback.Navigation.WrapPrev)
	v.SetDefault("playback.navigation.wrap_next", d.Playback.Navigation.WrapNext)

	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.buffer", d.Audio.Buffer)
	v.SetDefault("audio.volume", d.Audio.Volume)

	v.SetDefault("speech.engine", d.Speech.Engine)
	v.SetDefault("speech.piper.binary", d.Speech.Piper.Binary)
	v.SetDefault("speech.piper.timeout", d.Speech.Piper.Timeout)
	v.SetDefault("speech.google.language", d.Speech.Google.Language)
	v.SetDefault("speech.google.tld", d.Speech.Google.TLD)
	v.SetDefault("speech.google.requests_per_minute", d.Speech.Google.RequestsPerMinute)
	v.SetDefault("speech.google.timeout", d.Speech.Google.Timeout)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("cache.disk_mb", d.Cache.DiskMB)
	v.SetDefault("cache.compression_level", d.Cache.CompressionLevel)

	v.SetDefault("view.scroll_settle", d.View.ScrollSettle)
	v.SetDefault("view.scroll_duration", d.View.ScrollDuration)
	v.SetDefault("view.hide_controls_after", d.View.HideControlsAfter)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setFloat(v *viper.Viper, key string, dst *float64) {
	if v.IsSet(key) {
		*dst = v.GetFloat64(key)
	}
}

func setDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}
