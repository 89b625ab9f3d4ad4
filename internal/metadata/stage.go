package metadata

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"briefing/internal/config"
	"briefing/internal/logging"
	"briefing/internal/pipeline"
	"briefing/internal/services"
	"briefing/internal/store"
)

// Stage enriches transcript-ready videos with cleaned metadata and drives
// the metadata progress track.
type Stage struct {
	store     *store.Store
	fetcher   Fetcher
	policy    pipeline.Policy
	batchSize int
	logger    *slog.Logger
}

// NewStage builds the metadata stage from configuration.
func NewStage(cfg *config.Config, st *store.Store, fetcher Fetcher, logger *slog.Logger) *Stage {
	return &Stage{
		store:     st,
		fetcher:   fetcher,
		policy:    pipeline.Policy{BaseMinutes: cfg.Metadata.BackoffMinutes, MaxRetry: cfg.Metadata.MaxRetry},
		batchSize: cfg.Metadata.BatchSize,
		logger:    logging.NewComponentLogger(logger, "metadata"),
	}
}

// Name identifies the stage in worker logs.
func (s *Stage) Name() string { return "metadata" }

type outcome struct {
	video     *store.Video
	track     store.Track
	content   *store.MetadataContent
	fetchedAt time.Time
}

// ProcessBatch enriches up to one batch of eligible videos, persisting all
// transitions in one transaction.
func (s *Stage) ProcessBatch(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	videos, err := s.store.EligibleMetadata(ctx, now, s.batchSize)
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

		raw, err := s.fetcher.Fetch(videoCtx, video.ExternalID)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			classified := services.Wrap(services.ErrTransient, s.Name(), "fetch", "", err)
			track := video.Metadata
			pipeline.ApplyFailure(&track, s.policy, classified, now)
			logger.Warn("metadata fetch failed",
				logging.Error(classified),
				logging.String("status", string(track.Status)),
				logging.Int("retry_count", track.RetryCount))
			outcomes = append(outcomes, outcome{video: video, track: track})
			continue
		}

		cleaned := CleanDescription(raw.Description)
		content := &store.MetadataContent{
			Description:      raw.Description,
			CleanDescription: cleaned.Description,
			Tags:             NormalizeTags(strings.Join(raw.Keywords, ", ")),
			Hashtags:         cleaned.Hashtags,
			URLs:             cleaned.URLs,
			Sponsors:         cleaned.Sponsors,
		}
		track := video.Metadata
		pipeline.ApplySuccess(&track, now)
		logger.Info("metadata enriched",
			logging.Int("tags", len(content.Tags)),
			logging.Int("urls", len(content.URLs)))
		outcomes = append(outcomes, outcome{video: video, track: track, content: content, fetchedAt: now})
	}

	if len(outcomes) == 0 {
		return 0, nil
	}
	persistCtx := context.WithoutCancel(ctx)
	err = s.store.WithTx(persistCtx, func(tx *store.Tx) error {
		for _, o := range outcomes {
			if o.content != nil {
				if err := tx.SetMetadataResult(persistCtx, o.video.ID, o.track, *o.content, o.fetchedAt); err != nil {
					return err
				}
				continue
			}
			if err := tx.SetMetadataTrack(persistCtx, o.video.ID, o.track); err != nil {
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
