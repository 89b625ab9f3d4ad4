package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = `id, video_id, subscriber_id, status, retry_count, next_retry_at,
    last_error, delivered_at, created_at, updated_at`

// EnqueueNotificationJobs creates one pending job per subscriber of the
// video's channel. Existing jobs are left untouched, so repeated fan-out
// for the same video is idempotent. It returns the number of jobs created.
func (q *queries) EnqueueNotificationJobs(ctx context.Context, videoID int64) (int, error) {
	video, err := q.VideoByID(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if video == nil {
		return 0, fmt.Errorf("enqueue jobs: video %d not found", videoID)
	}

	subscriberIDs, err := q.SubscriberIDsForChannel(ctx, video.ChannelID)
	if err != nil {
		return 0, err
	}

	now := timestamp(time.Now())
	created := 0
	for _, subscriberID := range subscriberIDs {
		var count int
		row := q.db.QueryRowContext(
			ctx,
			`SELECT COUNT(1) FROM notification_jobs WHERE video_id = ? AND subscriber_id = ?`,
			videoID, subscriberID,
		)
		if err := row.Scan(&count); err != nil {
			return created, fmt.Errorf("check existing job: %w", err)
		}
		if count > 0 {
			continue
		}
		// Unique constraint backstops a concurrent insert.
		res, err := q.db.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO notification_jobs (video_id, subscriber_id, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?)`,
			videoID, subscriberID, JobPending, now, now,
		)
		if err != nil {
			return created, fmt.Errorf("insert job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("rows affected: %w", err)
		}
		created += int(affected)
	}
	return created, nil
}

// EligibleNotificationJobs returns pending jobs that are due for delivery.
func (q *queries) EligibleNotificationJobs(ctx context.Context, now time.Time, limit int) ([]*NotificationJob, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM notification_jobs
         WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)
         ORDER BY next_retry_at, id
         LIMIT ?`,
		JobPending, scheduleTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select eligible jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// UpdateNotificationJob persists a job track transition, stamping the
// delivery time on success.
func (q *queries) UpdateNotificationJob(ctx context.Context, id int64, track Track, deliveredAt *time.Time) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE notification_jobs SET
            status = ?, retry_count = ?, next_retry_at = ?, last_error = ?,
            delivered_at = ?, updated_at = ?
         WHERE id = ?`,
		jobStatusFromTrack(track.Status), track.RetryCount,
		nullableSchedule(track.NextRetryAt), nullableString(track.LastError),
		nullableTime(deliveredAt), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// JobByID fetches a notification job by row id, nil when missing.
func (q *queries) JobByID(ctx context.Context, id int64) (*NotificationJob, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM notification_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recent notification jobs, newest first.
func (q *queries) ListJobs(ctx context.Context, limit int) ([]*NotificationJob, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM notification_jobs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// JobsForVideo returns every notification job for a video.
func (q *queries) JobsForVideo(ctx context.Context, videoID int64) ([]*NotificationJob, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM notification_jobs WHERE video_id = ? ORDER BY id`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("jobs for video: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]*NotificationJob, error) {
	var jobs []*NotificationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row rowScanner) (*NotificationJob, error) {
	var (
		job         NotificationJob
		status      string
		nextRetry   sql.NullString
		lastError   sql.NullString
		deliveredAt sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(
		&job.ID, &job.VideoID, &job.SubscriberID, &status, &job.Track.RetryCount,
		&nextRetry, &lastError, &deliveredAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Track.Status = trackStatusFromJob(JobStatus(status))
	job.Track.LastError = lastError.String
	if job.Track.NextRetryAt, err = parseTimePtr(nextRetry); err != nil {
		return nil, err
	}
	if job.DeliveredAt, err = parseTimePtr(deliveredAt); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTimeValue(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTimeValue(updatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}
