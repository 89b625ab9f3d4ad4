// Package supervisor owns the daemon's long-running goroutines: the four
// pipeline workers and the feed poller.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"briefing/internal/config"
	"briefing/internal/logging"
	"briefing/internal/metadata"
	"briefing/internal/notify"
	"briefing/internal/pipeline"
	"briefing/internal/poller"
	"briefing/internal/store"
	"briefing/internal/summary"
	"briefing/internal/transcript"
)

// Supervisor wires the stages together and runs them until stopped.
type Supervisor struct {
	workers []*pipeline.Worker
	poller  *poller.Poller
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles the full pipeline from configuration. The summary stage
// uses the OpenAI generator with the heuristic as fallback when an API key
// is configured, and the heuristic alone otherwise. Notifications go over
// SMTP when a server is configured and to the log when not.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Supervisor, error) {
	transcriptStage := transcript.NewStage(cfg, st, transcript.NewHTTPFetcher(), logger)
	metadataStage := metadata.NewStage(cfg, st, metadata.NewHTTPFetcher(), logger)

	var generator, fallback summary.Generator
	if cfg.OpenAI.APIKey != "" {
		openAI, err := summary.NewOpenAIGenerator(cfg)
		if err != nil {
			return nil, err
		}
		generator = openAI
		fallback = summary.NewHeuristicGenerator()
	} else {
		generator = summary.NewHeuristicGenerator()
	}
	summaryStage := summary.NewStage(cfg, st, generator, fallback, logger)

	var sender notify.Sender
	if cfg.Notify.SMTPURL != "" {
		smtpSender, err := notify.NewSMTPSender(cfg.Notify.SMTPURL, cfg.Notify.FromAddress)
		if err != nil {
			return nil, err
		}
		sender = smtpSender
	} else {
		sender = notify.NewLogSender(logger)
	}
	notifyStage := notify.NewStage(cfg, st, sender, logger)

	s := &Supervisor{
		workers: []*pipeline.Worker{
			pipeline.NewWorker(transcriptStage, logger, 2*time.Second, 30*time.Second),
			pipeline.NewWorker(metadataStage, logger, 5*time.Second, time.Minute),
			pipeline.NewWorker(summaryStage, logger, 3*time.Second, 30*time.Second),
			pipeline.NewWorker(notifyStage, logger, 5*time.Second, 30*time.Second),
		},
		logger: logging.NewComponentLogger(logger, "supervisor"),
	}
	if cfg.Poller.Enabled {
		s.poller = poller.New(cfg, st, logger)
	}
	return s, nil
}

// Start launches every worker. It is an error to start twice without an
// intervening Stop.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, worker := range s.workers {
		w := worker
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.Run(runCtx)
		}()
	}
	if s.poller != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.poller.Run(runCtx)
		}()
	}
	s.logger.Info("pipeline started", logging.Int("workers", len(s.workers)))
}

// Stop cancels the workers and waits for in-flight batches to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("pipeline stopped")
}
