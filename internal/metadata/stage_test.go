package metadata_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"briefing/internal/logging"
	"briefing/internal/metadata"
	"briefing/internal/store"
	"briefing/internal/testsupport"
)

type fakeFetcher struct {
	raws map[string]*metadata.Raw
	errs map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, externalID string) (*metadata.Raw, error) {
	if err, ok := f.errs[externalID]; ok {
		return nil, err
	}
	if raw, ok := f.raws[externalID]; ok {
		return raw, nil
	}
	return &metadata.Raw{}, nil
}

func readyTranscript(t *testing.T, st *store.Store, videoID int64) {
	t.Helper()
	if err := st.SetTranscriptResult(context.Background(), videoID, store.Track{Status: store.StatusReady}, "text", "en", time.Now().UTC()); err != nil {
		t.Fatalf("set transcript ready: %v", err)
	}
}

func TestProcessBatchPersistsCleanedMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	video := testsupport.NewVideo(t, st, channel.ID, "vid1", "First")
	readyTranscript(t, st, video.ID)

	fetcher := &fakeFetcher{raws: map[string]*metadata.Raw{
		"vid1": {
			Description: "Intro line\n0:00 Chapter\nVisit https://example.com #golang",
			Keywords:    []string{"Go", "go", "Testing"},
		},
	}}
	stage := metadata.NewStage(cfg, st, fetcher, logging.NewNop())

	processed, err := stage.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected one processed video, got %d", processed)
	}

	loaded, err := st.VideoByID(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("load video: %v", err)
	}
	if loaded.Metadata.Status != store.StatusReady {
		t.Fatalf("expected ready metadata, got %s", loaded.Metadata.Status)
	}
	if !reflect.DeepEqual(loaded.Tags, []string{"go", "testing"}) {
		t.Fatalf("unexpected tags: %v", loaded.Tags)
	}
	if !reflect.DeepEqual(loaded.Hashtags, []string{"golang"}) {
		t.Fatalf("unexpected hashtags: %v", loaded.Hashtags)
	}
	if loaded.CleanDescription != "Intro line\nVisit https://example.com #golang" {
		t.Fatalf("unexpected clean description: %q", loaded.CleanDescription)
	}
	if loaded.MetadataFetchedAt == nil {
		t.Fatal("fetched_at should be stamped")
	}
}

func TestProcessBatchSchedulesRetryOnFetchError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	video := testsupport.NewVideo(t, st, channel.ID, "vid1", "First")
	readyTranscript(t, st, video.ID)

	fetcher := &fakeFetcher{errs: map[string]error{"vid1": errors.New("timeout")}}
	stage := metadata.NewStage(cfg, st, fetcher, logging.NewNop())

	if _, err := stage.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	loaded, err := st.VideoByID(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("load video: %v", err)
	}
	track := loaded.Metadata
	if track.Status != store.StatusPending || track.RetryCount != 1 || track.NextRetryAt == nil {
		t.Fatalf("expected scheduled retry, got %+v", track)
	}
}

func TestProcessBatchSkipsPendingTranscripts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	testsupport.NewVideo(t, st, channel.ID, "vid1", "First")

	stage := metadata.NewStage(cfg, st, &fakeFetcher{}, logging.NewNop())
	processed, err := stage.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed != 0 {
		t.Fatalf("metadata should wait for the transcript, got %d", processed)
	}
}
