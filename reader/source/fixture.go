package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/jacixn/inkami/reader"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 100 * time.Millisecond

// FixtureSource serves a chapter from a JSON or YAML file. It backs the
// demo mode and offline development.
type FixtureSource struct {
	path   string
	logger *log.Logger
}

// NewFixtureSource creates a source reading path.
func NewFixtureSource(path string) *FixtureSource {
	return &FixtureSource{path: path, logger: log.Default().WithPrefix("fixture")}
}

// Path returns the fixture file.
func (f *FixtureSource) Path() string { return f.path }

// Fetch implements reader.ChapterSource. The file is read on every call so
// edits show up on the next poll.
func (f *FixtureSource) Fetch(ctx context.Context, chapterID string) (reader.Chapter, error) {
	if err := ctx.Err(); err != nil {
		return reader.Chapter{}, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return reader.Chapter{}, fmt.Errorf("read fixture: %w", err)
	}
	ch, err := ParseChapter(data, filepath.Ext(f.path))
	if err != nil {
		return reader.Chapter{}, fmt.Errorf("%s: %w", f.path, err)
	}
	if ch.ChapterID == "" {
		ch.ChapterID = chapterID
	}
	if ch.ChapterID == "" {
		ch.ChapterID = strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path))
	}
	if ch.Status == "" {
		ch.Status = reader.ChapterReady
	}
	return ch, nil
}

// ParseChapter decodes a chapter. ext selects YAML for ".yaml" and ".yml";
// anything else is sniffed, JSON first.
func ParseChapter(data []byte, ext string) (reader.Chapter, error) {
	var ch reader.Chapter
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err := yaml.Unmarshal(data, &ch)
		return ch, err
	case ".json":
		err := json.Unmarshal(data, &ch)
		return ch, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err := json.Unmarshal(data, &ch)
		return ch, err
	}
	err := yaml.Unmarshal(data, &ch)
	return ch, err
}

// Watch calls onChange whenever the fixture file is written, until ctx is
// done. The directory is watched so editors that replace the file on save
// are followed.
func (f *FixtureSource) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch fixture: %w", err)
	}
	abs, err := filepath.Abs(f.path)
	if err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch fixture: %w", err)
	}

	go func() {
		defer w.Close() //nolint:errcheck
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				f.logger.Debug("fixture changed", "op", ev.Op.String())
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, onChange)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.logger.Warn("fixture watcher", "err", err)
			}
		}
	}()
	return nil
}
