package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/audio"
)

// googleChunk is the longest text the translate endpoint accepts per request.
const googleChunk = 200

// Google synthesizes speech with the Google Translate TTS endpoint. It
// needs no key and returns MP3.
type Google struct {
	client   *http.Client
	endpoint string
	language string
	limiter  *rate.Limiter
}

// GoogleOption configures Google.
type GoogleOption func(*Google)

// WithEndpoint overrides the translate_tts URL.
func WithEndpoint(u string) GoogleOption {
	return func(g *Google) { g.endpoint = u }
}

// WithGoogleClient sets the HTTP client.
func WithGoogleClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.client = c }
}

// NewGoogle creates a Google synthesizer from cfg.
func NewGoogle(cfg reader.GoogleConfig, opts ...GoogleOption) *Google {
	tld := cfg.TLD
	if tld == "" {
		tld = "com"
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	perMinute := max(cfg.RequestsPerMinute, 1)
	g := &Google{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: "https://translate.google." + tld + "/translate_tts",
		language: lang,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 3),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements Synthesizer.
func (g *Google) Name() string { return "google" }

// Available is always true; reachability is only known per request.
func (g *Google) Available() bool { return true }

// Synthesize implements Synthesizer. Voices are not selectable.
func (g *Google) Synthesize(ctx context.Context, text, _ string) (*audio.Clip, error) {
	chunks := SplitText(text, googleChunk)
	clips := make([]*audio.Clip, 0, len(chunks))
	for i, chunk := range chunks {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("google tts: %w", err)
		}
		data, err := g.fetch(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, err
		}
		clip, err := audio.DecodeMP3(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("google tts: %w", err)
		}
		clips = append(clips, clip)
	}
	if len(clips) == 0 {
		return nil, reader.ErrEmptyText
	}
	return audio.Concat(clips...)
}

func (g *Google) fetch(ctx context.Context, text string, idx, total int) ([]byte, error) {
	q := url.Values{
		"ie":      {"UTF-8"},
		"client":  {"tw-ob"},
		"tl":      {g.language},
		"q":       {text},
		"idx":     {strconv.Itoa(idx)},
		"total":   {strconv.Itoa(total)},
		"textlen": {strconv.Itoa(runeLen(text))},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google tts: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google tts: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
