package store

import (
	"context"
	"fmt"
	"time"
)

// TrackCounts breaks a progress track down by status.
type TrackCounts struct {
	Pending int
	Ready   int
	Failed  int
}

// JobCounts breaks notification jobs down by status.
type JobCounts struct {
	Pending   int
	Delivered int
	Failed    int
}

// StatusReport is the store-wide snapshot rendered by the CLI.
type StatusReport struct {
	Channels    int
	Videos      int
	Subscribers int
	Transcript  TrackCounts
	Metadata    TrackCounts
	Summary     TrackCounts
	Jobs        JobCounts
}

// Status collects row and per-track status counts across the store.
func (q *queries) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{}

	totals := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(1) FROM channels", &report.Channels},
		{"SELECT COUNT(1) FROM videos", &report.Videos},
		{"SELECT COUNT(1) FROM subscribers", &report.Subscribers},
	}
	for _, total := range totals {
		if err := q.db.QueryRowContext(ctx, total.query).Scan(total.dest); err != nil {
			return nil, fmt.Errorf("count rows: %w", err)
		}
	}

	var err error
	if report.Transcript, err = q.trackCounts(ctx, "videos", "transcript_status"); err != nil {
		return nil, err
	}
	if report.Metadata, err = q.trackCounts(ctx, "videos", "metadata_status"); err != nil {
		return nil, err
	}
	if report.Summary, err = q.trackCounts(ctx, "summaries", "status"); err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM notification_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		switch JobStatus(status) {
		case JobPending:
			report.Jobs.Pending = count
		case JobDelivered:
			report.Jobs.Delivered = count
		case JobFailed:
			report.Jobs.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job counts: %w", err)
	}
	return report, nil
}

func (q *queries) trackCounts(ctx context.Context, table, column string) (TrackCounts, error) {
	var counts TrackCounts
	rows, err := q.db.QueryContext(ctx, `SELECT `+column+`, COUNT(1) FROM `+table+` GROUP BY `+column)
	if err != nil {
		return counts, fmt.Errorf("count %s.%s: %w", table, column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return counts, fmt.Errorf("scan track count: %w", err)
		}
		switch TrackStatus(status) {
		case StatusPending:
			counts.Pending = count
		case StatusReady:
			counts.Ready = count
		case StatusFailed:
			counts.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("iterate track counts: %w", err)
	}
	return counts, nil
}

// RetryFailedTranscripts resets every failed transcript track to pending
// and immediately eligible. It returns the number of videos reset.
func (q *queries) RetryFailedTranscripts(ctx context.Context) (int64, error) {
	return q.retryTrack(ctx,
		`UPDATE videos SET transcript_status = ?, transcript_retry_count = 0,
            transcript_next_retry_at = NULL, transcript_last_error = NULL, updated_at = ?
         WHERE transcript_status = ?`)
}

// RetryFailedMetadata resets every failed metadata track.
func (q *queries) RetryFailedMetadata(ctx context.Context) (int64, error) {
	return q.retryTrack(ctx,
		`UPDATE videos SET metadata_status = ?, metadata_retry_count = 0,
            metadata_next_retry_at = NULL, metadata_last_error = NULL, updated_at = ?
         WHERE metadata_status = ?`)
}

// RetryFailedSummaries resets every failed summary track.
func (q *queries) RetryFailedSummaries(ctx context.Context) (int64, error) {
	return q.retryTrack(ctx,
		`UPDATE summaries SET status = ?, retry_count = 0,
            next_retry_at = NULL, last_error = NULL, updated_at = ?
         WHERE status = ?`)
}

// RetryFailedJobs resets every failed notification job.
func (q *queries) RetryFailedJobs(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(
		ctx,
		`UPDATE notification_jobs SET status = ?, retry_count = 0,
            next_retry_at = NULL, last_error = NULL, updated_at = ?
         WHERE status = ?`,
		JobPending, timestamp(time.Now()), JobFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func (q *queries) retryTrack(ctx context.Context, query string) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, StatusPending, timestamp(time.Now()), StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("retry failed track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
