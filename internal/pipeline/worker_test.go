package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"briefing/internal/logging"
	"briefing/internal/services"
)

type fakeStage struct {
	name    string
	batches atomic.Int64
	process func(ctx context.Context) (int, error)
}

func (s *fakeStage) Name() string { return s.name }

func (s *fakeStage) ProcessBatch(ctx context.Context) (int, error) {
	s.batches.Add(1)
	if s.process != nil {
		return s.process(ctx)
	}
	return 0, nil
}

func TestWorkerStopsOnCancel(t *testing.T) {
	stage := &fakeStage{name: "fake"}
	worker := NewWorker(stage, logging.NewNop(), time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if stage.batches.Load() == 0 {
		t.Fatal("worker never processed a batch")
	}
}

func TestWorkerSurvivesBatchErrors(t *testing.T) {
	stage := &fakeStage{name: "fake"}
	stage.process = func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	}
	worker := NewWorker(stage, logging.NewNop(), time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for stage.batches.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("worker stopped retrying after a batch error")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}

func TestWorkerStampsRequestID(t *testing.T) {
	seen := make(chan string, 1)
	stage := &fakeStage{name: "fake"}
	stage.process = func(ctx context.Context) (int, error) {
		id, _ := services.RequestIDFromContext(ctx)
		select {
		case seen <- id:
		default:
		}
		return 0, nil
	}
	worker := NewWorker(stage, logging.NewNop(), time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	defer cancel()

	select {
	case id := <-seen:
		if id == "" {
			t.Fatal("expected a request id on the batch context")
		}
	case <-time.After(time.Second):
		t.Fatal("no batch executed")
	}
}
