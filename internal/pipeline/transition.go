package pipeline

import (
	"time"

	"briefing/internal/services"
	"briefing/internal/store"
)

// Policy is the per-stage retry budget and backoff base.
type Policy struct {
	BaseMinutes int
	MaxRetry    int
}

// ApplySuccess moves a track to ready and clears its retry schedule. The
// retry count is preserved for diagnosability.
func ApplySuccess(track *store.Track, now time.Time) {
	track.Status = store.StatusReady
	track.NextRetryAt = nil
	track.LastError = ""
}

// ApplyFailure records a failed attempt. Transient errors increment the
// retry count and schedule the next attempt by exponential backoff until
// the budget is exhausted; permanent errors fail the track immediately,
// still counting the attempt, with no further scheduling.
func ApplyFailure(track *store.Track, policy Policy, err error, now time.Time) {
	track.RetryCount++
	track.LastError = err.Error()
	track.NextRetryAt = nil

	if services.IsPermanent(err) || track.RetryCount >= policy.MaxRetry {
		track.Status = store.StatusFailed
		return
	}

	track.Status = store.StatusPending
	next := now.Add(Backoff(policy.BaseMinutes, track.RetryCount))
	track.NextRetryAt = &next
}
