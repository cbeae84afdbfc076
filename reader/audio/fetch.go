package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jacixn/inkami/internal/cache"
)

// maxResourceSize bounds a single audio download.
const maxResourceSize = 64 << 20

// ErrBadDataURI is returned for malformed data: URIs.
var ErrBadDataURI = errors.New("malformed data URI")

// Fetcher loads audio resources from http(s) URLs, data: URIs and local
// files, caching remote payloads.
type Fetcher struct {
	client  *http.Client
	cache   *cache.Manager
	timeout time.Duration
	logger  *log.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithCache caches remote payloads in m.
func WithCache(m *cache.Manager) FetcherOption {
	return func(f *Fetcher) { f.cache = m }
}

// NewFetcher creates a fetcher. timeout bounds background prefetches.
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  log.Default().WithPrefix("audio"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the bytes behind src.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case hasPrefixFold(src, "data:"):
		return DecodeDataURI(src)
	case hasPrefixFold(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(u.Path)
	case hasPrefixFold(src, "http://"), hasPrefixFold(src, "https://"):
		if f.cache == nil {
			return f.download(ctx, src)
		}
		return f.cache.Load(cache.Key("audio", src), func() ([]byte, error) {
			return f.download(ctx, src)
		})
	default:
		return os.ReadFile(src)
	}
}

// Prefetch downloads srcs into the cache in the background.
func (f *Fetcher) Prefetch(srcs []string) {
	if f.cache == nil {
		return
	}
	for _, src := range srcs {
		if !hasPrefixFold(src, "http://") && !hasPrefixFold(src, "https://") {
			continue
		}
		if f.cache.Contains(cache.Key("audio", src)) {
			continue
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
			defer cancel()
			if _, err := f.Fetch(ctx, src); err != nil {
				f.logger.Debug("prefetch failed", "src", src, "err", err)
			}
		}()
	}
}

func (f *Fetcher) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio: %s: %s", src, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	if len(data) > maxResourceSize {
		return nil, fmt.Errorf("fetch audio: %s exceeds %d bytes", src, maxResourceSize)
	}
	return data, nil
}

// DecodeDataURI returns the payload of a base64 or percent-encoded data URI.
func DecodeDataURI(uri string) ([]byte, error) {
	if !hasPrefixFold(uri, "data:") {
		return nil, ErrBadDataURI
	}
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, ErrBadDataURI
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some encoders drop the padding
			if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBadDataURI, err)
			}
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDataURI, err)
	}
	return []byte(s), nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
