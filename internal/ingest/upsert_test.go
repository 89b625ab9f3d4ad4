package ingest_test

import (
	"context"
	"testing"
	"time"

	"briefing/internal/ingest"
	"briefing/internal/logging"
	"briefing/internal/store"
	"briefing/internal/testsupport"
)

func feedOf(notifications ...ingest.Notification) *ingest.Feed {
	return &ingest.Feed{Notifications: notifications}
}

func notification(channelID, videoID, title string) ingest.Notification {
	published := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return ingest.Notification{
		ChannelID:    channelID,
		VideoID:      videoID,
		ChannelTitle: "Example Channel",
		VideoTitle:   title,
		Description:  "About the video.",
		PublishedAt:  &published,
	}
}

func TestApplyCreatesVideoWithEligibleTracks(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	result, err := ingest.Apply(ctx, st, feedOf(notification("UC1", "vid1", "A Great Video")), logging.NewNop())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Created != 1 || result.Updated != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	video, err := st.VideoByExternalID(ctx, "vid1")
	if err != nil || video == nil {
		t.Fatalf("video not stored: %v", err)
	}
	if video.Title != "A Great Video" || video.Description != "About the video." {
		t.Fatalf("unexpected listing: %+v", video)
	}
	if video.URL != "https://www.youtube.com/watch?v=vid1" {
		t.Fatalf("unexpected url: %q", video.URL)
	}

	eligible, err := st.EligibleTranscripts(ctx, time.Now().UTC(), 10)
	if err != nil || len(eligible) != 1 {
		t.Fatalf("new video must be transcript-eligible: %v %v", eligible, err)
	}

	channel, err := st.ChannelByExternalID(ctx, "UC1")
	if err != nil || channel == nil {
		t.Fatalf("channel not stored: %v", err)
	}
	if channel.Title != "Example Channel" {
		t.Fatalf("unexpected channel title: %q", channel.Title)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	batch := feedOf(notification("UC1", "vid1", "A Great Video"))

	if _, err := ingest.Apply(ctx, st, batch, logging.NewNop()); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	result, err := ingest.Apply(ctx, st, batch, logging.NewNop())
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if result.Created != 0 || result.Updated != 0 {
		t.Fatalf("identical notification must be a no-op, got %+v", result)
	}
}

func TestApplyRefreshesListingWithoutTouchingTracks(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := ingest.Apply(ctx, st, feedOf(notification("UC1", "vid1", "Old Title")), logging.NewNop()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Simulate a completed transcript, then a feed refresh with a new title.
	video, err := st.VideoByExternalID(ctx, "vid1")
	if err != nil || video == nil {
		t.Fatalf("video not stored: %v", err)
	}
	track := store.Track{Status: store.StatusReady}
	if err := st.SetTranscriptResult(ctx, video.ID, track, "words", "en", time.Now().UTC()); err != nil {
		t.Fatalf("set transcript: %v", err)
	}

	updated := notification("UC1", "vid1", "New Title")
	result, err := ingest.Apply(ctx, st, feedOf(updated), logging.NewNop())
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected one update, got %+v", result)
	}

	video, err = st.VideoByExternalID(ctx, "vid1")
	if err != nil || video == nil {
		t.Fatalf("video not stored: %v", err)
	}
	if video.Title != "New Title" {
		t.Fatalf("title not refreshed: %q", video.Title)
	}
	if video.Transcript.Status != store.StatusReady || video.TranscriptText != "words" {
		t.Fatalf("refresh must not reset the transcript track: %+v", video.Transcript)
	}
}

func TestApplyKeepsStoredFieldsWhenFeedValuesEmpty(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := ingest.Apply(ctx, st, feedOf(notification("UC1", "vid1", "A Title")), logging.NewNop()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	sparse := ingest.Notification{ChannelID: "UC1", VideoID: "vid1"}
	result, err := ingest.Apply(ctx, st, feedOf(sparse), logging.NewNop())
	if err != nil {
		t.Fatalf("apply sparse: %v", err)
	}
	if result.Updated != 0 {
		t.Fatalf("empty fields must not count as changes, got %+v", result)
	}

	video, err := st.VideoByExternalID(ctx, "vid1")
	if err != nil || video == nil {
		t.Fatalf("video not stored: %v", err)
	}
	if video.Title != "A Title" || video.Description != "About the video." {
		t.Fatalf("stored listing clobbered: %+v", video)
	}
}

func TestApplyUntitledVideoFallsBackToID(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	n := ingest.Notification{ChannelID: "UC1", VideoID: "vid9"}
	if _, err := ingest.Apply(ctx, st, feedOf(n), logging.NewNop()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	video, err := st.VideoByExternalID(ctx, "vid9")
	if err != nil || video == nil {
		t.Fatalf("video not stored: %v", err)
	}
	if video.Title != "vid9" {
		t.Fatalf("expected id fallback title, got %q", video.Title)
	}
}

func TestApplyTombstonesDeletedVideo(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := ingest.Apply(ctx, st, feedOf(notification("UC1", "vid1", "A Great Video")), logging.NewNop()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	tombstones := &ingest.Feed{Deleted: []string{"vid1", "never-seen"}}
	result, err := ingest.Apply(ctx, st, tombstones, logging.NewNop())
	if err != nil {
		t.Fatalf("apply tombstones: %v", err)
	}
	if result.Tombstoned != 1 {
		t.Fatalf("expected one tombstoned video, got %+v", result)
	}

	video, err := st.VideoByExternalID(ctx, "vid1")
	if err != nil || video == nil {
		t.Fatalf("video not stored: %v", err)
	}
	if !video.Tombstoned {
		t.Fatalf("video must be tombstoned: %+v", video)
	}

	eligible, err := st.EligibleTranscripts(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("eligible transcripts: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("tombstoned video must leave the eligibility pool, got %d", len(eligible))
	}

	// A repeated tombstone is a no-op.
	result, err = ingest.Apply(ctx, st, tombstones, logging.NewNop())
	if err != nil {
		t.Fatalf("apply tombstones again: %v", err)
	}
	if result.Tombstoned != 0 {
		t.Fatalf("repeated tombstone must be a no-op, got %+v", result)
	}
}

func TestApplySameExternalIDAcrossChannels(t *testing.T) {
	ctx := context.Background()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	feed := feedOf(
		notification("UC1", "shared", "First Channel Upload"),
		notification("UC2", "shared", "Second Channel Upload"),
	)
	result, err := ingest.Apply(ctx, st, feed, logging.NewNop())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Created != 2 {
		t.Fatalf("expected a video per channel, got %+v", result)
	}

	first, err := st.ChannelByExternalID(ctx, "UC1")
	if err != nil || first == nil {
		t.Fatalf("first channel not stored: %v", err)
	}
	second, err := st.ChannelByExternalID(ctx, "UC2")
	if err != nil || second == nil {
		t.Fatalf("second channel not stored: %v", err)
	}

	one, err := st.VideoByChannelAndExternalID(ctx, first.ID, "shared")
	if err != nil || one == nil {
		t.Fatalf("first video not stored: %v", err)
	}
	two, err := st.VideoByChannelAndExternalID(ctx, second.ID, "shared")
	if err != nil || two == nil {
		t.Fatalf("second video not stored: %v", err)
	}
	if one.ID == two.ID || one.Title != "First Channel Upload" || two.Title != "Second Channel Upload" {
		t.Fatalf("videos must resolve per channel: %+v %+v", one, two)
	}

	// A refresh for one channel must not leak onto the other.
	if _, err := ingest.Apply(ctx, st, feedOf(notification("UC2", "shared", "Renamed Upload")), logging.NewNop()); err != nil {
		t.Fatalf("apply refresh: %v", err)
	}
	one, err = st.VideoByChannelAndExternalID(ctx, first.ID, "shared")
	if err != nil || one == nil {
		t.Fatalf("first video not stored: %v", err)
	}
	if one.Title != "First Channel Upload" {
		t.Fatalf("refresh leaked across channels: %q", one.Title)
	}
}
