package supervisor_test

import (
	"context"
	"testing"
	"time"

	"briefing/internal/logging"
	"briefing/internal/supervisor"
	"briefing/internal/testsupport"
)

func TestStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	s, err := supervisor.New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}

	s.Start(context.Background())
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop in time")
	}

	// Stop is idempotent.
	s.Stop()
}

func TestNewRejectsBadSMTPURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notify.SMTPURL = "http://mail.example.com"
	cfg.Notify.FromAddress = "briefing@example.com"
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := supervisor.New(cfg, st, logging.NewNop()); err == nil {
		t.Fatal("expected error for unsupported smtp scheme")
	}
}
