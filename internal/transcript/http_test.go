package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseCaptionTracks(t *testing.T) {
	page := []byte(`var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"https://example.com/tt?lang=en","languageCode":"en","kind":"asr"},{"baseUrl":"https://example.com/tt?lang=en-GB","languageCode":"en-GB"}]}}};`)
	tracks, err := parseCaptionTracks(page)
	if err != nil {
		t.Fatalf("parse caption tracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected two tracks, got %d", len(tracks))
	}
	picked := pickTrack(tracks)
	if picked.LanguageCode != "en-GB" {
		t.Fatalf("expected the human track picked over asr, got %q", picked.LanguageCode)
	}
}

func TestParseCaptionTracksMissingIsDisabled(t *testing.T) {
	if _, err := parseCaptionTracks([]byte("<html>no captions here</html>")); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestParseTimedText(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0" dur="2">hello &amp; welcome</text>
  <text start="2" dur="2">  </text>
  <text start="4" dur="2">to the show</text>
</transcript>`)
	text, err := parseTimedText(body)
	if err != nil {
		t.Fatalf("parse timed text: %v", err)
	}
	if text != "hello & welcome to the show" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"en":    "en",
		"en-US": "en",
		"en-GB": "en",
		"pt-BR": "pt",
		"":      "",
		"x!!":   "x!!",
	}
	for code, want := range cases {
		if got := NormalizeLanguage(code); got != want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestHTTPFetcherEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"captionTracks":[{"baseUrl":"%s/timedtext","languageCode":"en-US"}]}`, server.URL)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<transcript><text start="0" dur="1">first line</text><text start="1" dur="1">second line</text></transcript>`)
	})

	fetcher := NewHTTPFetcher(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	result, err := fetcher.Fetch(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Text != "first line second line" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if result.Language != "en" {
		t.Fatalf("expected normalized language en, got %q", result.Language)
	}
}

func TestHTTPFetcherDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>plain watch page</html>")
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if _, err := fetcher.Fetch(context.Background(), "abc123"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
