package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	ChapterID   string
	EnableMouse bool
	// Start in focused mode with auto-hiding controls.
	Focused bool

	WordHighlight bool          `env:"INKAMI_WORD_HIGHLIGHT" envDefault:"true"`
	TickInterval  time.Duration `env:"INKAMI_UI_TICK"        envDefault:"100ms"`

	// For debugging the UI
	AltScreen bool `env:"INKAMI_ALT_SCREEN" envDefault:"true"`
}
