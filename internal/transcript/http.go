package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const defaultWatchBase = "https://www.youtube.com"

var captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// HTTPFetcher scrapes a video's watch page for its caption track list and
// downloads the timed-text document of the best track.
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

// NewHTTPFetcher builds the production transcript fetcher.
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

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// Fetch downloads the transcript for the given video identifier.
func (f *HTTPFetcher) Fetch(ctx context.Context, externalID string) (*Result, error) {
	page, err := f.get(ctx, f.baseURL+"/watch?v="+externalID)
	if err != nil {
		return nil, err
	}

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return nil, err
	}
	track := pickTrack(tracks)

	body, err := f.get(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	text, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrNotFound
	}

	return &Result{Text: text, Language: NormalizeLanguage(track.LanguageCode)}, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d: %w", url, resp.StatusCode, ErrNotFound)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

func parseCaptionTracks(page []byte) ([]captionTrack, error) {
	match := captionTracksPattern.FindSubmatch(page)
	if match == nil {
		return nil, ErrDisabled
	}
	var tracks []captionTrack
	if err := json.Unmarshal(match[1], &tracks); err != nil {
		return nil, fmt.Errorf("decode caption tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, ErrDisabled
	}
	return tracks, nil
}

// pickTrack prefers a human-authored track over auto-generated ("asr").
func pickTrack(tracks []captionTrack) captionTrack {
	for _, track := range tracks {
		if track.Kind != "asr" {
			return track
		}
	}
	return tracks[0]
}

type timedText struct {
	Lines []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func parseTimedText(body []byte) (string, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decode timed text: %w", err)
	}
	parts := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		value := strings.TrimSpace(html.UnescapeString(line.Value))
		if value == "" {
			continue
		}
		parts = append(parts, value)
	}
	return strings.Join(parts, " "), nil
}

// NormalizeLanguage reduces a caption language code to its base language,
// "en-US" and "en-GB" both becoming "en". Unparseable codes pass through
// lowercased.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}
