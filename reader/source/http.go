// Package source loads chapters from the narration API or from local
// fixture files, and keeps them fresh while they are being processed.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jacixn/inkami/reader"
)

// maxResponseSize bounds an API response body.
const maxResponseSize = 16 << 20

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is makes 404 responses match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// HTTPSource talks to the chapter API.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.httpClient = c }
}

// NewHTTPSource creates an API client for cfg.BaseURL.
func NewHTTPSource(cfg reader.APIConfig, opts ...HTTPOption) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	s := &HTTPSource{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseURL returns the API root.
func (s *HTTPSource) BaseURL() string { return s.baseURL }

// request makes an HTTP request to the API
func (s *HTTPSource) request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.httpClient.Do(req)
}

// parseResponse reads and unmarshals the response body
func parseResponse[T any](resp *http.Response) (T, error) {
	var result T
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return result, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &errResp) == nil {
			if errResp.Detail != "" {
				msg = errResp.Detail
			} else if errResp.Error != "" {
				msg = errResp.Error
			}
		}
		return result, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

// Fetch implements reader.ChapterSource.
func (s *HTTPSource) Fetch(ctx context.Context, chapterID string) (reader.Chapter, error) {
	return s.GetChapter(ctx, chapterID)
}

// GetChapter returns a chapter with its pages.
func (s *HTTPSource) GetChapter(ctx context.Context, chapterID string) (reader.Chapter, error) {
	resp, err := s.request(ctx, http.MethodGet, "/api/chapters/"+url.PathEscape(chapterID), nil)
	if err != nil {
		return reader.Chapter{}, fmt.Errorf("get chapter %s: %w", chapterID, err)
	}
	ch, err := parseResponse[reader.Chapter](resp)
	if err != nil {
		return reader.Chapter{}, fmt.Errorf("get chapter %s: %w", chapterID, err)
	}
	if ch.ChapterID == "" {
		ch.ChapterID = chapterID
	}
	return ch, nil
}

// UpdateSpeaker renames a speaker or changes its voice.
func (s *HTTPSource) UpdateSpeaker(ctx context.Context, speakerID string, upd reader.SpeakerUpdate) error {
	if upd == (reader.SpeakerUpdate{}) {
		return errors.New("speaker update is empty")
	}
	resp, err := s.request(ctx, http.MethodPatch, "/api/speakers/"+url.PathEscape(speakerID), upd)
	if err != nil {
		return fmt.Errorf("update speaker %s: %w", speakerID, err)
	}
	if _, err := parseResponse[json.RawMessage](resp); err != nil {
		return fmt.Errorf("update speaker %s: %w", speakerID, err)
	}
	return nil
}

// GetJob returns the status of a processing job.
func (s *HTTPSource) GetJob(ctx context.Context, jobID string) (reader.JobStatus, error) {
	resp, err := s.request(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return reader.JobStatus{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	job, err := parseResponse[reader.JobStatus](resp)
	if err != nil {
		return reader.JobStatus{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return job, nil
}
