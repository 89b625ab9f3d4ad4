package websub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"briefing/internal/testsupport"
	"briefing/internal/websub"
)

func TestSubscribeSendsHubForm(t *testing.T) {
	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = r.PostForm
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.WebSub.HubURL = server.URL
	cfg.WebSub.CallbackURL = "https://briefing.example.com/websub"
	cfg.WebSub.Secret = "s3cret"

	client := websub.New(cfg, websub.WithHTTPClient(server.Client()))
	if !client.Enabled() {
		t.Fatal("client with callback must be enabled")
	}
	if err := client.Subscribe(context.Background(), "UC1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if got.Get("hub.mode") != "subscribe" {
		t.Fatalf("unexpected mode: %q", got.Get("hub.mode"))
	}
	if got.Get("hub.topic") != "https://www.youtube.com/feeds/videos.xml?channel_id=UC1" {
		t.Fatalf("unexpected topic: %q", got.Get("hub.topic"))
	}
	if got.Get("hub.callback") != "https://briefing.example.com/websub" {
		t.Fatalf("unexpected callback: %q", got.Get("hub.callback"))
	}
	if got.Get("hub.secret") != "s3cret" || got.Get("hub.verify") != "async" {
		t.Fatalf("unexpected form: %v", got)
	}
}

func TestUnsubscribeRejectedByHub(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.WebSub.HubURL = server.URL
	cfg.WebSub.CallbackURL = "https://briefing.example.com/websub"

	client := websub.New(cfg, websub.WithHTTPClient(server.Client()))
	if err := client.Unsubscribe(context.Background(), "UC1"); err == nil {
		t.Fatal("expected error for non-2xx hub response")
	}
}

func TestDisabledWithoutCallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := websub.New(cfg)
	if client.Enabled() {
		t.Fatal("client without callback must be disabled")
	}
}
