package session_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jacixn/inkami/internal/session"
	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/audio"
	"github.com/jacixn/inkami/reader/readertest"
)

func wavURI(frames int) string {
	var data bytes.Buffer
	for range frames {
		_ = binary.Write(&data, binary.LittleEndian, int16(1000))
	}
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+data.Len()))
	b.WriteString("WAVEfmt ")
	for _, v := range []any{uint32(16), uint16(1), uint16(1), uint32(8000), uint32(16000), uint16(2), uint16(16)} {
		_ = binary.Write(&b, binary.LittleEndian, v)
	}
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(data.Len()))
	b.Write(data.Bytes())
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(b.Bytes())
}

func testConfig() reader.Config {
	cfg := reader.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.Speech.Engine = reader.SpeechNone
	cfg.Playback.AdvanceDelay = 0
	cfg.Playback.MinAdvanceDelay = 0
	cfg.Audio.SampleRate = 8000
	return cfg
}

// onLoop runs fn on the session loop and waits for it.
func onLoop(t *testing.T, s *session.Session, fn func()) {
	t.Helper()
	done := make(chan struct{})
	s.Loop.Dispatch(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not run callback")
	}
}

func TestFixtureAutoplay(t *testing.T) {
	ch := readertest.Chapter("c1", 2)
	for i := range ch.Pages[0].Items {
		ch.Pages[0].Items[i].AudioURL = wavURI(400)
	}
	data, err := json.Marshal(ch)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "c1.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Playback.AutoPlay = true
	dev := audio.NewMemoryDevice(8000)
	s, err := session.New(cfg, session.Options{Fixture: path, Device: dev})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Fixture() {
		t.Error("Fixture() = false")
	}

	var (
		mu      sync.Mutex
		visited []string
	)
	finished := make(chan struct{})
	var once sync.Once
	s.Engine.OnChange(func(st reader.PlaybackState) {
		mu.Lock()
		if n := len(visited); st.BubbleID != "" && (n == 0 || visited[n-1] != st.BubbleID) {
			visited = append(visited, st.BubbleID)
		}
		mu.Unlock()
		if st.BubbleID == "p0b1" && !st.Playing {
			once.Do(func() { close(finished) })
		}
	})

	ctx := run(t, s, "c1")
	select {
	case <-finished:
	case <-ctx.Done():
		t.Fatal("chapter did not play through")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(visited) != 2 || visited[0] != "p0b0" || visited[1] != "p0b1" {
		t.Errorf("visited = %v", visited)
	}
	if n := len(dev.Sinks()); n != 2 {
		t.Errorf("sinks = %d, want 2", n)
	}

	err = s.UpdateSpeaker(context.Background(), "spk", reader.SpeakerUpdate{DisplayName: "Ann"})
	if !errors.Is(err, session.ErrReadOnly) {
		t.Errorf("UpdateSpeaker err = %v, want ErrReadOnly", err)
	}
}

func TestMissingAudioFallsBackWithoutSpeech(t *testing.T) {
	ch := readertest.Chapter("c1", 1)
	ch.Pages[0].Items[0].AudioURL = ""
	data, _ := json.Marshal(ch)
	path := filepath.Join(t.TempDir(), "c1.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := session.New(testConfig(), session.Options{Fixture: path, Device: audio.NewMemoryDevice(8000)})
	if err != nil {
		t.Fatal(err)
	}
	run(t, s, "c1")
	waitFor(t, func() bool {
		var n int
		onLoop(t, s, func() { n = s.Engine.Index().Len() })
		return n > 0
	})

	var playErr error
	var st reader.PlaybackState
	onLoop(t, s, func() {
		playErr = s.Engine.Play()
		st = s.Engine.State()
	})
	if playErr != nil {
		t.Fatalf("Play: %v", playErr)
	}
	if st.Playing {
		t.Error("playing without any channel")
	}
	if len(st.Errors) != 2 {
		t.Fatalf("errors = %v, want audio and speech", st.Errors)
	}
	if st.Errors[0].Kind != reader.KindAudio || !errors.Is(st.Errors[0], reader.ErrNoAudio) {
		t.Errorf("first error = %v", st.Errors[0])
	}
	if !st.Errors[1].Fatal || !errors.Is(st.Errors[1], reader.ErrSpeechUnavailable) {
		t.Errorf("second error = %v", st.Errors[1])
	}
}

func TestAPISpeakerUpdateRefreshes(t *testing.T) {
	var gets, patches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chapters/{id}", func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		ch := readertest.Chapter(r.PathValue("id"), 1)
		_ = json.NewEncoder(w).Encode(ch)
	})
	mux.HandleFunc("PATCH /api/speakers/{id}", func(w http.ResponseWriter, r *http.Request) {
		patches.Add(1)
		var upd reader.SpeakerUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil || upd.DisplayName != "Ann" {
			http.Error(w, `{"detail":"bad update"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig()
	cfg.API.BaseURL = srv.URL
	cfg.API.Timeout = 2 * time.Second
	s, err := session.New(cfg, session.Options{Mute: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx := run(t, s, "c9")

	waitFor(t, func() bool { return gets.Load() >= 1 })
	if err := s.UpdateSpeaker(ctx, "spk", reader.SpeakerUpdate{DisplayName: "Ann"}); err != nil {
		t.Fatalf("UpdateSpeaker: %v", err)
	}
	waitFor(t, func() bool { return gets.Load() >= 2 })
	if patches.Load() != 1 {
		t.Errorf("patches = %d", patches.Load())
	}

	var id string
	onLoop(t, s, func() { id = s.Engine.Chapter().ChapterID })
	if id != "c9" {
		t.Errorf("chapter = %q", id)
	}
}

func TestNarrateStops(t *testing.T) {
	played := readertest.Chapter("c1", 2)
	for i := range played.Pages[0].Items {
		played.Pages[0].Items[i].AudioURL = wavURI(400)
	}
	broken := readertest.Chapter("c1", 2)
	for i := range broken.Pages[0].Items {
		broken.Pages[0].Items[i].AudioURL = ""
	}

	tests := []struct {
		name    string
		chapter reader.Chapter
		wantErr error
		lines   int
	}{
		{"played through", played, nil, 2},
		{"first bubble fails", broken, reader.ErrSpeechUnavailable, 0},
		{"empty chapter", readertest.Chapter("c1"), nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.chapter)
			if err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), "c1.json")
			if err := os.WriteFile(path, data, 0o600); err != nil {
				t.Fatal(err)
			}

			cfg := testConfig()
			cfg.Playback.AutoPlay = true
			s, err := session.New(cfg, session.Options{Fixture: path, Device: audio.NewMemoryDevice(8000)})
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { _ = s.Close() })

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			var out bytes.Buffer
			err = s.Narrate(ctx, "c1", &out)

			if ctx.Err() != nil {
				t.Fatal("narration did not stop on its own")
			}
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Narrate() = %v", err)
			}
			if tt.wantErr != nil && (!errors.Is(err, tt.wantErr) || !reader.IsFatal(err)) {
				t.Fatalf("Narrate() = %v, want fatal %v", err, tt.wantErr)
			}
			if got := bytes.Count(out.Bytes(), []byte("\n")); got != tt.lines {
				t.Errorf("printed %d lines, want %d: %q", got, tt.lines, out.String())
			}
		})
	}
}

// run drives the session loop until the test ends, then closes the session.
func run(t *testing.T, s *session.Session, chapterID string) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	done := make(chan struct{})
	go func() {
		_ = s.Loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	s.Start(ctx, chapterID)
	return ctx
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
