package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"

	"briefing/internal/config"
	"briefing/internal/logging"
	"briefing/internal/store"
	"briefing/internal/supervisor"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, path, exists, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if !exists {
		logger.Info("no config file found, using defaults", logging.String("path", path))
	}

	// One scheduler per store. A second daemon against the same data
	// directory refuses to start instead of double-processing.
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "briefingd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("acquire daemon lock: %v", err)
	}
	if !locked {
		log.Fatalf("another briefingd is already running against %s", cfg.Paths.DataDir)
	}
	defer lock.Unlock() //nolint:errcheck

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	s, err := supervisor.New(cfg, st, logger)
	if err != nil {
		log.Fatalf("assemble pipeline: %v", err)
	}
	s.Start(ctx)

	<-ctx.Done()
	logger.Info("briefingd shutting down")
	s.Stop()
}
