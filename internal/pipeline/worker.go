package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"briefing/internal/logging"
	"briefing/internal/services"
)

// Stage processes one batch of eligible work and reports how many records
// it handled. Errors cover batch-level failures only; per-record outcomes
// are persisted by the stage itself.
type Stage interface {
	Name() string
	ProcessBatch(ctx context.Context) (int, error)
}

// Worker drives a stage in a loop: process a batch, then sleep briefly
// when work was found or longer when the stage is idle.
type Worker struct {
	stage       Stage
	logger      *slog.Logger
	activeSleep time.Duration
	idleSleep   time.Duration
}

// NewWorker builds a worker for the given stage.
func NewWorker(stage Stage, logger *slog.Logger, activeSleep, idleSleep time.Duration) *Worker {
	if activeSleep <= 0 {
		activeSleep = time.Second
	}
	if idleSleep <= 0 {
		idleSleep = 30 * time.Second
	}
	return &Worker{
		stage:       stage,
		logger:      logging.NewComponentLogger(logger, stage.Name()),
		activeSleep: activeSleep,
		idleSleep:   idleSleep,
	}
}

// Run processes batches until ctx is cancelled. A batch error is logged
// and followed by the idle sleep; it never stops the worker.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started",
		logging.Duration("active_sleep", w.activeSleep),
		logging.Duration("idle_sleep", w.idleSleep))

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return
		}

		batchCtx := services.WithRequestID(ctx, uuid.NewString())
		processed, err := w.stage.ProcessBatch(batchCtx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			w.logger.Info("worker stopped")
			return
		case err != nil:
			w.logger.Error("batch failed", logging.Error(err))
			if !sleepCtx(ctx, w.idleSleep) {
				w.logger.Info("worker stopped")
				return
			}
			continue
		}

		sleep := w.idleSleep
		if processed > 0 {
			w.logger.Debug("batch processed", logging.Int("count", processed))
			sleep = w.activeSleep
		}
		if !sleepCtx(ctx, sleep) {
			w.logger.Info("worker stopped")
			return
		}
	}
}

// sleepCtx waits for the duration and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
