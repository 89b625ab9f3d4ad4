// Package throttle bounds concurrent upstream fetches and enforces a
// minimum interval between the start of any two of them.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Throttle limits concurrency with a weighted semaphore and paces
// dispatches with a shared minimum interval.
type Throttle struct {
	slots       *semaphore.Weighted
	minInterval time.Duration

	mu   sync.Mutex
	last time.Time
}

// New builds a throttle with the given concurrency limit and minimum
// spacing. A limit below one is raised to one; a negative interval is
// treated as zero.
func New(limit int, minInterval time.Duration) *Throttle {
	if limit < 1 {
		limit = 1
	}
	if minInterval < 0 {
		minInterval = 0
	}
	return &Throttle{
		slots:       semaphore.NewWeighted(int64(limit)),
		minInterval: minInterval,
	}
}

// Acquire blocks until a concurrency slot is free and the minimum interval
// since the previous dispatch has elapsed, then returns a release func for
// the slot. The interval lock is held while waiting so later acquirers
// queue behind the pacing rather than racing past it.
func (t *Throttle) Acquire(ctx context.Context) (func(), error) {
	if err := t.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	t.mu.Lock()
	wait := t.minInterval - time.Since(t.last)
	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.mu.Unlock()
			t.slots.Release(1)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	t.last = time.Now()
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.slots.Release(1)
		})
	}, nil
}
