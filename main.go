// Package main provides the entry point for the inkami CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/jacixn/inkami/internal/session"
	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	fixture    string
	headless   bool
	focused    bool
	mute       bool
	mouse      bool

	rootCmd = &cobra.Command{
		Use:   "inkami [CHAPTER]",
		Short: "Read narrated manga chapters in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead narrated manga chapters, %s.", keyword("one bubble at a time")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}

	readCmd = &cobra.Command{
		Use:     "read [CHAPTER]",
		Short:   "Read a chapter",
		Long:    paragraph(fmt.Sprintf("\n%s a chapter from the API, or from a local fixture file.", keyword("Read"))),
		Example: paragraph("inkami read c42\ninkami read --fixture chapter.yml\ninkami read c42 --headless --speed 1.5"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    execute,
	}
)

func validateOptions(args []string) (string, error) {
	mouse = viper.GetBool("mouse")

	var chapterID string
	if len(args) > 0 {
		chapterID = args[0]
	}
	if fixture != "" {
		p, err := homedir.Expand(fixture)
		if err != nil {
			return "", fmt.Errorf("unable to expand fixture path: %w", err)
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("unable to open fixture: %w", err)
		}
		fixture = p
		if chapterID == "" {
			chapterID = "fixture"
		}
	}
	if chapterID == "" {
		return "", errors.New("missing chapter id (or --fixture)")
	}

	if !headless && !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Debug("stdout is not a terminal, reading headless")
		headless = true
	}
	return chapterID, nil
}

func loadReaderConfig() (reader.Config, error) {
	cfg, err := reader.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}
	if cfg.Cache.Dir != "" {
		if cfg.Cache.Dir, err = homedir.Expand(cfg.Cache.Dir); err != nil {
			return cfg, fmt.Errorf("unable to expand cache dir: %w", err)
		}
	}
	if cfg.Speech.Piper.Model != "" {
		if cfg.Speech.Piper.Model, err = homedir.Expand(cfg.Speech.Piper.Model); err != nil {
			return cfg, fmt.Errorf("unable to expand piper model: %w", err)
		}
	}
	return cfg, nil
}

func execute(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && fixture == "" {
		return cmd.Help()
	}
	chapterID, err := validateOptions(args)
	if err != nil {
		return err
	}
	cfg, err := loadReaderConfig()
	if err != nil {
		return err
	}
	if headless {
		// nobody is there to press play
		cfg.Playback.AutoPlay = true
		log.SetOutput(os.Stderr)
	}

	s, err := session.New(cfg, session.Options{Fixture: fixture, Mute: mute})
	if err != nil {
		return fmt.Errorf("unable to start session: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if headless {
		err = s.Narrate(ctx, chapterID, os.Stdout)
	} else {
		err = runTUI(ctx, s, chapterID)
	}
	if cerr := s.Close(); cerr != nil {
		log.Warn("closing session", "err", cerr)
	}
	return err
}

func runTUI(ctx context.Context, s *session.Session, chapterID string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.ChapterID = chapterID
	cfg.EnableMouse = mouse
	cfg.Focused = focused

	if _, err := ui.NewProgram(ctx, cfg, s).Run(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().String("api", "", "chapter API base URL")
	rootCmd.PersistentFlags().Bool("debug", false, "log debug messages")

	for _, c := range []*cobra.Command{rootCmd, readCmd} {
		f := c.Flags()
		f.StringVarP(&fixture, "fixture", "f", "", "read a chapter from a local JSON or YAML file")
		f.BoolVar(&headless, "headless", false, "narrate without the reader interface")
		f.BoolVar(&focused, "focus", false, "start in focus mode")
		f.BoolVar(&mute, "mute", false, "play without a sound card")
		f.BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
		f.Float64P("speed", "s", reader.DefaultSpeed, "playback speed (0.5 to 2)")
		f.Bool("autoplay", false, "start playing once the chapter loads")
	}

	// Config bindings
	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		// flags of whichever command runs win over the config file
		for key, flag := range map[string]string{
			"mouse":             "mouse",
			"playback.speed":    "speed",
			"playback.autoplay": "autoplay",
		} {
			if fl := cmd.Flags().Lookup(flag); fl != nil {
				_ = viper.BindPFlag(key, fl)
			}
		}
		if viper.GetBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
	}

	viper.SetDefault("mouse", false)
	viper.SetDefault("debug", false)
	reader.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(readCmd, configCmd, speakerCmd, jobCmd, cacheCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "inkami")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "inkami")}, dirs...)
	}

	if c := os.Getenv("INKAMI_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("inkami")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("inkami")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "inkami.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
