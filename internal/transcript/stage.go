package transcript

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"briefing/internal/config"
	"briefing/internal/logging"
	"briefing/internal/pipeline"
	"briefing/internal/services"
	"briefing/internal/store"
	"briefing/internal/throttle"
)

// Stage fetches transcripts for eligible videos through the throttle and
// persists every track transition of a batch in one transaction.
type Stage struct {
	store     *store.Store
	fetcher   Fetcher
	throttle  *throttle.Throttle
	policy    pipeline.Policy
	batchSize int
	logger    *slog.Logger
}

// NewStage builds the transcript stage from configuration.
func NewStage(cfg *config.Config, st *store.Store, fetcher Fetcher, logger *slog.Logger) *Stage {
	return &Stage{
		store:     st,
		fetcher:   fetcher,
		throttle:  throttle.New(cfg.Transcript.MaxConcurrency, time.Duration(cfg.Transcript.MinIntervalMS)*time.Millisecond),
		policy:    pipeline.Policy{BaseMinutes: cfg.Transcript.BackoffMinutes, MaxRetry: cfg.Transcript.MaxRetry},
		batchSize: cfg.Transcript.BatchSize,
		logger:    logging.NewComponentLogger(logger, "transcript"),
	}
}

// Name identifies the stage in worker logs.
func (s *Stage) Name() string { return "transcript" }

type outcome struct {
	video     *store.Video
	track     store.Track
	result    *Result
	fetchedAt time.Time
}

// ProcessBatch fetches transcripts for up to one batch of eligible videos.
// Individual failures become track transitions. A stop signal prevents
// further fetches from starting; transitions already produced are still
// persisted, on a non-cancelable context, before the worker winds down.
func (s *Stage) ProcessBatch(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	videos, err := s.store.EligibleTranscripts(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(videos) == 0 {
		return 0, nil
	}

	outcomes := make([]outcome, 0, len(videos))
	for _, video := range videos {
		if ctx.Err() != nil {
			break
		}
		videoCtx := services.WithVideoID(services.WithStage(ctx, s.Name()), video.ID)
		logger := logging.WithContext(videoCtx, s.logger)

		result, err := s.fetch(videoCtx, video.ExternalID)
		if err != nil {
			if ctx.Err() != nil {
				// Shutdown interrupted the fetch, not the upstream; the
				// video keeps its current track and is retried next run.
				break
			}
			classified := s.classify(err)
			track := video.Transcript
			pipeline.ApplyFailure(&track, s.policy, classified, now)
			logger.Warn("transcript fetch failed",
				logging.Error(classified),
				logging.String("status", string(track.Status)),
				logging.Int("retry_count", track.RetryCount))
			outcomes = append(outcomes, outcome{video: video, track: track})
			continue
		}

		track := video.Transcript
		pipeline.ApplySuccess(&track, now)
		logger.Info("transcript fetched",
			logging.String("language", result.Language),
			logging.Int("chars", len(result.Text)))
		outcomes = append(outcomes, outcome{video: video, track: track, result: result, fetchedAt: now})
	}

	if len(outcomes) == 0 {
		return 0, nil
	}
	persistCtx := context.WithoutCancel(ctx)
	err = s.store.WithTx(persistCtx, func(tx *store.Tx) error {
		for _, o := range outcomes {
			if o.result != nil {
				if err := tx.SetTranscriptResult(persistCtx, o.video.ID, o.track, o.result.Text, o.result.Language, o.fetchedAt); err != nil {
					return err
				}
				continue
			}
			if err := tx.SetTranscriptTrack(persistCtx, o.video.ID, o.track); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(outcomes), nil
}

func (s *Stage) fetch(ctx context.Context, externalID string) (*Result, error) {
	release, err := s.throttle.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.fetcher.Fetch(ctx, externalID)
}

func (s *Stage) classify(err error) error {
	if errors.Is(err, ErrDisabled) {
		return services.Wrap(services.ErrPermanent, s.Name(), "fetch", "captions disabled", err)
	}
	if errors.Is(err, ErrNotFound) {
		return services.Wrap(services.ErrTransient, s.Name(), "fetch", "transcript unavailable", err)
	}
	return services.Wrap(services.ErrTransient, s.Name(), "fetch", "", err)
}
