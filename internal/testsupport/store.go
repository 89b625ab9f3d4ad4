package testsupport

import (
	"context"
	"testing"

	"briefing/internal/config"
	"briefing/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewChannel creates a channel for tests using the provided store.
func NewChannel(t testing.TB, st *store.Store, externalID, title string) *store.Channel {
	t.Helper()

	channel, err := st.EnsureChannel(context.Background(), externalID, title, "")
	if err != nil {
		t.Fatalf("store.EnsureChannel: %v", err)
	}
	return channel
}

// NewVideo creates a video on the given channel for tests.
func NewVideo(t testing.TB, st *store.Store, channelID int64, externalID, title string) *store.Video {
	t.Helper()

	video := &store.Video{
		ChannelID:  channelID,
		ExternalID: externalID,
		Title:      title,
		URL:        "https://www.youtube.com/watch?v=" + externalID,
	}
	if err := st.InsertVideo(context.Background(), video); err != nil {
		t.Fatalf("store.InsertVideo: %v", err)
	}
	return video
}

// NewSubscriber creates a subscriber for tests.
func NewSubscriber(t testing.TB, st *store.Store, email string) *store.Subscriber {
	t.Helper()

	subscriber, err := st.AddSubscriber(context.Background(), email, "")
	if err != nil {
		t.Fatalf("store.AddSubscriber: %v", err)
	}
	return subscriber
}
