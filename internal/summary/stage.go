package summary

import (
	"context"
	"log/slog"
	"time"

	"briefing/internal/config"
	"briefing/internal/logging"
	"briefing/internal/pipeline"
	"briefing/internal/services"
	"briefing/internal/store"
)

// Stage generates summaries for transcript-ready videos. A success stamps
// the video and fans out notification jobs in the same transaction.
type Stage struct {
	store     *store.Store
	generator Generator
	fallback  Generator
	policy    pipeline.Policy
	batchSize int
	logger    *slog.Logger
}

// NewStage builds the summary stage. fallback may be nil; when set it is
// tried exactly once after a primary failure and its outcome is the one
// recorded.
func NewStage(cfg *config.Config, st *store.Store, generator, fallback Generator, logger *slog.Logger) *Stage {
	return &Stage{
		store:     st,
		generator: generator,
		fallback:  fallback,
		policy:    pipeline.Policy{BaseMinutes: cfg.Summary.BackoffMinutes, MaxRetry: cfg.Summary.MaxRetry},
		batchSize: cfg.Summary.BatchSize,
		logger:    logging.NewComponentLogger(logger, "summary"),
	}
}

// Name identifies the stage in worker logs.
func (s *Stage) Name() string { return "summary" }

type outcome struct {
	video       *store.Video
	track       store.Track
	content     *store.SummaryContent
	generatedAt time.Time
}

// ProcessBatch summarises up to one batch of eligible videos. Successful
// summaries stamp the video and enqueue notification jobs atomically with
// the track transition. A stop signal prevents further generations from
// starting; outcomes already produced are persisted before returning.
func (s *Stage) ProcessBatch(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	candidates, err := s.store.EligibleSummaries(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	outcomes := make([]outcome, 0, len(candidates))
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		video := candidate.Video
		track := store.NewTrack()
		if candidate.Summary != nil {
			track = candidate.Summary.Track
		}

		videoCtx := services.WithVideoID(services.WithStage(ctx, s.Name()), video.ID)
		logger := logging.WithContext(videoCtx, s.logger)

		result, err := s.generate(videoCtx, video, logger)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			pipeline.ApplyFailure(&track, s.policy, err, now)
			logger.Warn("summary generation failed",
				logging.Error(err),
				logging.String("status", string(track.Status)),
				logging.Int("retry_count", track.RetryCount))
			outcomes = append(outcomes, outcome{video: video, track: track})
			continue
		}

		pipeline.ApplySuccess(&track, now)
		logger.Info("summary generated",
			logging.String("model", result.Model),
			logging.Int("highlights", len(result.Highlights)))
		outcomes = append(outcomes, outcome{
			video: video,
			track: track,
			content: &store.SummaryContent{
				TLDR:       result.TLDR,
				Highlights: result.Highlights,
				KeyQuote:   result.KeyQuote,
				Model:      result.Model,
			},
			generatedAt: now,
		})
	}

	if len(outcomes) == 0 {
		return 0, nil
	}
	persistCtx := context.WithoutCancel(ctx)
	err = s.store.WithTx(persistCtx, func(tx *store.Tx) error {
		for _, o := range outcomes {
			if o.content == nil {
				if err := tx.UpsertSummary(persistCtx, o.video.ID, o.track, nil, nil); err != nil {
					return err
				}
				continue
			}
			generatedAt := o.generatedAt
			if err := tx.UpsertSummary(persistCtx, o.video.ID, o.track, o.content, &generatedAt); err != nil {
				return err
			}
			if err := tx.SetVideoSummaryReady(persistCtx, o.video.ID, generatedAt); err != nil {
				return err
			}
			if _, err := tx.EnqueueNotificationJobs(persistCtx, o.video.ID); err != nil {
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

// generate runs the primary generator and, when it fails on a non-empty
// transcript, the fallback exactly once.
func (s *Stage) generate(ctx context.Context, video *store.Video, logger *slog.Logger) (*Result, error) {
	input := Input{
		Title:            video.Title,
		Transcript:       video.TranscriptText,
		Tags:             video.Tags,
		Hashtags:         video.Hashtags,
		Sponsors:         video.Sponsors,
		CleanDescription: video.CleanDescription,
	}
	if input.Transcript == "" {
		return nil, services.Wrap(services.ErrValidation, s.Name(), "generate", "transcript is empty", nil)
	}

	result, err := s.generator.Generate(ctx, input)
	if err == nil {
		return result, nil
	}
	if s.fallback == nil || ctx.Err() != nil || services.IsValidation(err) {
		return nil, s.classify(err)
	}

	logger.Warn("primary generator failed, trying fallback", logging.Error(err))
	result, fallbackErr := s.fallback.Generate(ctx, input)
	if fallbackErr != nil {
		return nil, s.classify(fallbackErr)
	}
	return result, nil
}

func (s *Stage) classify(err error) error {
	if services.IsPermanent(err) {
		return err
	}
	return services.Wrap(services.ErrTransient, s.Name(), "generate", "", err)
}
