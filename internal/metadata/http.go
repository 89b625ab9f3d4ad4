package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const defaultWatchBase = "https://www.youtube.com"

var (
	descriptionPattern = regexp.MustCompile(`"shortDescription":("(?:[^"\\]|\\.)*")`)
	keywordsPattern    = regexp.MustCompile(`"keywords":(\[.*?\])`)
)

// HTTPFetcher scrapes a video's watch page for the player response
// description and keyword list.
type HTTPFetcher struct {
	client  *http.Client
	baseURL string
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithBaseURL overrides the watch-page host, used in tests.
func WithBaseURL(base string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.baseURL = strings.TrimRight(base, "/")
	}
}

// NewHTTPFetcher builds the production metadata fetcher.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	fetcher := &HTTPFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultWatchBase,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch downloads and extracts the raw metadata for a video.
func (f *HTTPFetcher) Fetch(ctx context.Context, externalID string) (*Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/watch?v="+externalID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch watch page: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	raw := &Raw{}
	if match := descriptionPattern.FindSubmatch(body); match != nil {
		var description string
		if err := json.Unmarshal(match[1], &description); err != nil {
			return nil, fmt.Errorf("decode description: %w", err)
		}
		raw.Description = description
	}
	if match := keywordsPattern.FindSubmatch(body); match != nil {
		var keywords []string
		if err := json.Unmarshal(match[1], &keywords); err != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
		raw.Keywords = keywords
	}
	return raw, nil
}
