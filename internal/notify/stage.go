package notify

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

// Stage delivers pending notification jobs. Jobs whose summary is not yet
// ready are skipped without counting an attempt; jobs whose video or
// subscriber row has vanished fail permanently.
type Stage struct {
	store     *store.Store
	sender    Sender
	policy    pipeline.Policy
	batchSize int
	logger    *slog.Logger
}

// NewStage builds the notification stage from configuration.
func NewStage(cfg *config.Config, st *store.Store, sender Sender, logger *slog.Logger) *Stage {
	return &Stage{
		store:     st,
		sender:    sender,
		policy:    pipeline.Policy{BaseMinutes: cfg.Notify.BackoffMinutes, MaxRetry: cfg.Notify.MaxRetry},
		batchSize: cfg.Notify.BatchSize,
		logger:    logging.NewComponentLogger(logger, "notify"),
	}
}

// Name identifies the stage in worker logs.
func (s *Stage) Name() string { return "notify" }

type outcome struct {
	job         *store.NotificationJob
	track       store.Track
	deliveredAt *time.Time
}

// ProcessBatch delivers up to one batch of eligible jobs and persists all
// transitions in one transaction. Skipped jobs are not counted. A stop
// signal prevents further jobs from starting, but every delivery already
// made is committed: once an email is out, its transition must land even
// when the worker context is cancelled, or the next run would resend it.
func (s *Stage) ProcessBatch(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	jobs, err := s.store.EligibleNotificationJobs(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	var batchErr error
	outcomes := make([]outcome, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		jobCtx := services.WithJobID(services.WithStage(ctx, s.Name()), job.ID)
		logger := logging.WithContext(jobCtx, s.logger)

		o, skip, err := s.deliver(jobCtx, job, now, logger)
		if err != nil {
			batchErr = err
			break
		}
		if skip {
			continue
		}
		outcomes = append(outcomes, o)
	}

	if len(outcomes) > 0 {
		persistCtx := context.WithoutCancel(ctx)
		err = s.store.WithTx(persistCtx, func(tx *store.Tx) error {
			for _, o := range outcomes {
				if err := tx.UpdateNotificationJob(persistCtx, o.job.ID, o.track, o.deliveredAt); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return len(outcomes), batchErr
}

// deliver attempts one job and returns its transition. skip is true when
// the job should be left untouched this tick.
func (s *Stage) deliver(ctx context.Context, job *store.NotificationJob, now time.Time, logger *slog.Logger) (outcome, bool, error) {
	track := job.Track

	video, err := s.store.VideoByID(ctx, job.VideoID)
	if err != nil {
		return outcome{}, false, err
	}
	subscriber, err := s.store.SubscriberByID(ctx, job.SubscriberID)
	if err != nil {
		return outcome{}, false, err
	}
	if video == nil || subscriber == nil {
		failure := services.Wrap(services.ErrPermanent, s.Name(), "deliver", "job references a missing row", nil)
		pipeline.ApplyFailure(&track, s.policy, failure, now)
		logger.Warn("notification job orphaned", logging.Error(failure))
		return outcome{job: job, track: track}, false, nil
	}

	summary, err := s.store.SummaryByVideoID(ctx, job.VideoID)
	if err != nil {
		return outcome{}, false, err
	}
	if summary == nil || summary.Track.Status != store.StatusReady {
		logger.Debug("summary not ready, skipping job")
		return outcome{}, true, nil
	}

	if subscriber.Email == "" {
		failure := services.Wrap(services.ErrTransient, s.Name(), "deliver", "subscriber email missing", nil)
		pipeline.ApplyFailure(&track, s.policy, failure, now)
		return outcome{job: job, track: track}, false, nil
	}

	subject, body, err := Render(video, summary, subscriber)
	if err != nil {
		pipeline.ApplyFailure(&track, s.policy, services.Wrap(services.ErrTransient, s.Name(), "render", "", err), now)
		return outcome{job: job, track: track}, false, nil
	}

	if err := s.sender.Send(ctx, Payload{To: subscriber.Email, Subject: subject, Body: body}); err != nil {
		if ctx.Err() != nil {
			// Interrupted mid-send by shutdown. The outcome is unknown, so
			// the job stays untouched and the next run retries it without
			// consuming retry budget.
			logger.Warn("delivery interrupted by shutdown", logging.Error(err))
			return outcome{}, true, nil
		}
		failure := services.Wrap(services.ErrTransient, s.Name(), "send", "", err)
		pipeline.ApplyFailure(&track, s.policy, failure, now)
		logger.Warn("email delivery failed",
			logging.Error(failure),
			logging.Int("retry_count", track.RetryCount))
		return outcome{job: job, track: track}, false, nil
	}

	pipeline.ApplySuccess(&track, now)
	deliveredAt := now
	logger.Info("notification delivered", logging.String("to", subscriber.Email))
	return outcome{job: job, track: track, deliveredAt: &deliveredAt}, false, nil
}
