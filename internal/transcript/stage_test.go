package transcript_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"briefing/internal/logging"
	"briefing/internal/store"
	"briefing/internal/testsupport"
	"briefing/internal/transcript"
)

type fakeFetcher struct {
	results map[string]*transcript.Result
	errs    map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, externalID string) (*transcript.Result, error) {
	if err, ok := f.errs[externalID]; ok {
		return nil, err
	}
	if result, ok := f.results[externalID]; ok {
		return result, nil
	}
	return nil, transcript.ErrNotFound
}

func TestProcessBatchPersistsSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	video := testsupport.NewVideo(t, st, channel.ID, "vid1", "First")

	fetcher := &fakeFetcher{results: map[string]*transcript.Result{
		"vid1": {Text: "hello world", Language: "en"},
	}}
	stage := transcript.NewStage(cfg, st, fetcher, logging.NewNop())

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
	if loaded.Transcript.Status != store.StatusReady {
		t.Fatalf("expected ready transcript, got %s", loaded.Transcript.Status)
	}
	if loaded.TranscriptText != "hello world" || loaded.TranscriptLanguage != "en" {
		t.Fatalf("transcript content not persisted: %+v", loaded)
	}
	if loaded.TranscriptFetchedAt == nil {
		t.Fatal("fetched_at should be stamped")
	}
}

func TestProcessBatchSchedulesTransientRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	video := testsupport.NewVideo(t, st, channel.ID, "vid1", "First")

	fetcher := &fakeFetcher{errs: map[string]error{"vid1": transcript.ErrNotFound}}
	stage := transcript.NewStage(cfg, st, fetcher, logging.NewNop())

	before := time.Now().UTC()
	if _, err := stage.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	loaded, err := st.VideoByID(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("load video: %v", err)
	}
	track := loaded.Transcript
	if track.Status != store.StatusPending || track.RetryCount != 1 {
		t.Fatalf("expected scheduled retry, got %+v", track)
	}
	if track.NextRetryAt == nil {
		t.Fatal("transient failure must be scheduled")
	}
	wantEarliest := before.Add(time.Duration(cfg.Transcript.BackoffMinutes)*time.Minute - time.Minute)
	if track.NextRetryAt.Before(wantEarliest) {
		t.Fatalf("retry scheduled too early: %v", track.NextRetryAt)
	}
	if track.LastError == "" {
		t.Fatal("last error should be recorded")
	}

	// The scheduled video is no longer eligible this tick.
	eligible, err := st.EligibleTranscripts(context.Background(), time.Now(), 10)
	if err != nil {
		t.Fatalf("eligible transcripts: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("scheduled video should not be eligible, got %d", len(eligible))
	}
}

func TestProcessBatchFailsPermanentImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	video := testsupport.NewVideo(t, st, channel.ID, "vid1", "First")

	fetcher := &fakeFetcher{errs: map[string]error{"vid1": transcript.ErrDisabled}}
	stage := transcript.NewStage(cfg, st, fetcher, logging.NewNop())

	if _, err := stage.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}

	loaded, err := st.VideoByID(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("load video: %v", err)
	}
	track := loaded.Transcript
	if track.Status != store.StatusFailed {
		t.Fatalf("disabled captions should fail immediately, got %s", track.Status)
	}
	if track.RetryCount != 1 {
		t.Fatalf("the attempt should count once, got %d", track.RetryCount)
	}
	if track.NextRetryAt != nil {
		t.Fatal("failed track must not be scheduled")
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	good := testsupport.NewVideo(t, st, channel.ID, "good", "Good")
	bad := testsupport.NewVideo(t, st, channel.ID, "bad", "Bad")

	fetcher := &fakeFetcher{
		results: map[string]*transcript.Result{"good": {Text: "fine", Language: "en"}},
		errs:    map[string]error{"bad": errors.New("connection reset")},
	}
	stage := transcript.NewStage(cfg, st, fetcher, logging.NewNop())

	processed, err := stage.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected both videos handled, got %d", processed)
	}

	loadedGood, _ := st.VideoByID(context.Background(), good.ID)
	loadedBad, _ := st.VideoByID(context.Background(), bad.ID)
	if loadedGood.Transcript.Status != store.StatusReady {
		t.Fatalf("good video should succeed, got %s", loadedGood.Transcript.Status)
	}
	if loadedBad.Transcript.Status != store.StatusPending || loadedBad.Transcript.RetryCount != 1 {
		t.Fatalf("bad video should retry, got %+v", loadedBad.Transcript)
	}
}

type cancelingFetcher struct {
	inner  *fakeFetcher
	cancel context.CancelFunc
}

func (f *cancelingFetcher) Fetch(ctx context.Context, externalID string) (*transcript.Result, error) {
	result, err := f.inner.Fetch(ctx, externalID)
	f.cancel()
	return result, err
}

func TestProcessBatchShutdownPersistsCompletedFetches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	channel := testsupport.NewChannel(t, st, "UC1", "Example")
	first := testsupport.NewVideo(t, st, channel.ID, "vid1", "First")
	second := testsupport.NewVideo(t, st, channel.ID, "vid2", "Second")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &cancelingFetcher{
		inner: &fakeFetcher{results: map[string]*transcript.Result{
			"vid1": {Text: "hello", Language: "en"},
			"vid2": {Text: "never fetched", Language: "en"},
		}},
		cancel: cancel,
	}
	stage := transcript.NewStage(cfg, st, fetcher, logging.NewNop())

	processed, err := stage.ProcessBatch(ctx)
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed != 1 {
		t.Fatalf("only the fetch before the stop signal should count, got %d", processed)
	}

	loadedFirst, err := st.VideoByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	if loadedFirst.Transcript.Status != store.StatusReady || loadedFirst.TranscriptText != "hello" {
		t.Fatalf("completed fetch must be persisted despite shutdown: %+v", loadedFirst.Transcript)
	}

	loadedSecond, err := st.VideoByID(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("load second: %v", err)
	}
	if loadedSecond.Transcript.Status != store.StatusPending || loadedSecond.Transcript.RetryCount != 0 {
		t.Fatalf("unstarted video must be untouched: %+v", loadedSecond.Transcript)
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	stage := transcript.NewStage(cfg, st, &fakeFetcher{}, logging.NewNop())

	processed, err := stage.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected nothing processed, got %d", processed)
	}
}
