package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# mouse support (tap a bubble to select it)
mouse: false
# log debug messages
debug: false

# chapter API
api:
  base_url: "http://localhost:8000"
  # how often a processing chapter is refetched (1s to 60s)
  poll_interval: "3s"
  timeout: "30s"
  requests_per_second: 4

playback:
  # 0.5, 0.75, 1.0, 1.25, 1.5 or 2.0
  speed: 1.0
  # pause between bubbles, shortened at higher speeds
  advance_delay: "600ms"
  min_advance_delay: "250ms"
  autoplay: false
  # bubbles whose audio is fetched ahead of time
  prefetch: 2
  navigation:
    wrap_prev: true
    wrap_next: false

audio:
  # 22050, 24000, 44100 or 48000
  sample_rate: 44100
  buffer: "100ms"
  # 0.0 to 2.0
  volume: 1.0

# fallback speech for bubbles without usable audio
speech:
  # auto, piper, google or none
  engine: "auto"
  piper:
    binary: "piper"
    # model: "~/.local/share/piper/en_US-lessac-medium.onnx"
    timeout: "30s"
    # voice ids of the chapter mapped to piper models
    # voices:
    #   voice_old_man: "~/.local/share/piper/en_GB-alan-medium.onnx"
  google:
    language: "en"
    tld: "com"
    requests_per_minute: 60
    timeout: "10s"

cache:
  enabled: true
  # dir: "~/.cache/inkami/audio"
  memory_mb: 32
  disk_mb: 512
  # zstd level, 1 (fastest) to 4 (best)
  compression_level: 2

view:
  scroll_settle: "120ms"
  scroll_duration: "350ms"
  # hide the controls in focus mode after this much inactivity
  hide_controls_after: "5s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the inkami config file",
	Long:    paragraph(fmt.Sprintf("\n%s the inkami config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("inkami config\ninkami config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("inkami", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
