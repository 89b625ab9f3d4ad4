package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const summaryColumns = `id, video_id, status, retry_count, next_retry_at, last_error,
    tl_dr, highlights_json, key_quote, model, generated_at, created_at, updated_at`

// SummaryByVideoID fetches the summary record for a video, nil when no
// generation attempt has been persisted yet.
func (q *queries) SummaryByVideoID(ctx context.Context, videoID int64) (*Summary, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE video_id = ?`, videoID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

// EligibleSummaries returns videos whose transcript is ready and whose
// summary is either unattempted or pending and due. Unattempted videos
// carry a nil Summary.
func (q *queries) EligibleSummaries(ctx context.Context, now time.Time, limit int) ([]*SummaryCandidate, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT `+prefixColumns("v", videoColumns)+`,
            s.id, s.status, s.retry_count, s.next_retry_at, s.last_error,
            s.tl_dr, s.highlights_json, s.key_quote, s.model, s.generated_at,
            s.created_at, s.updated_at
         FROM videos v
         LEFT JOIN summaries s ON s.video_id = v.id
         WHERE v.tombstoned = 0 AND v.transcript_status = ? AND v.summary_ready_at IS NULL
           AND (s.id IS NULL OR (s.status = ? AND (s.next_retry_at IS NULL OR s.next_retry_at <= ?)))
         ORDER BY s.next_retry_at, v.id
         LIMIT ?`,
		StatusReady, StatusPending, scheduleTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select eligible summaries: %w", err)
	}
	defer rows.Close()

	var candidates []*SummaryCandidate
	for rows.Next() {
		candidate, err := scanSummaryCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary candidates: %w", err)
	}
	return candidates, nil
}

// UpsertSummary persists a summary track transition, creating the row on
// the first attempt. Content is written only when supplied so a failed
// retry never clears a previously generated payload.
func (q *queries) UpsertSummary(ctx context.Context, videoID int64, track Track, content *SummaryContent, generatedAt *time.Time) error {
	now := timestamp(time.Now())

	if content == nil {
		_, err := q.db.ExecContext(
			ctx,
			`INSERT INTO summaries (video_id, status, retry_count, next_retry_at, last_error, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(video_id) DO UPDATE SET
                 status = excluded.status,
                 retry_count = excluded.retry_count,
                 next_retry_at = excluded.next_retry_at,
                 last_error = excluded.last_error,
                 updated_at = excluded.updated_at`,
			videoID, track.Status, track.RetryCount, nullableSchedule(track.NextRetryAt),
			nullableString(track.LastError), now, now,
		)
		if err != nil {
			return fmt.Errorf("upsert summary track: %w", err)
		}
		return nil
	}

	highlights, err := nullableList(content.Highlights)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(
		ctx,
		`INSERT INTO summaries (
            video_id, status, retry_count, next_retry_at, last_error,
            tl_dr, highlights_json, key_quote, model, generated_at, created_at, updated_at
         ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(video_id) DO UPDATE SET
             status = excluded.status,
             retry_count = excluded.retry_count,
             next_retry_at = excluded.next_retry_at,
             last_error = excluded.last_error,
             tl_dr = excluded.tl_dr,
             highlights_json = excluded.highlights_json,
             key_quote = excluded.key_quote,
             model = excluded.model,
             generated_at = excluded.generated_at,
             updated_at = excluded.updated_at`,
		videoID, track.Status, track.RetryCount, nullableSchedule(track.NextRetryAt),
		nullableString(track.LastError), content.TLDR, highlights,
		nullableString(content.KeyQuote), nullableString(content.Model),
		nullableTime(generatedAt), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func scanSummary(row rowScanner) (*Summary, error) {
	var (
		summary        Summary
		nextRetry      sql.NullString
		lastError      sql.NullString
		tldr           sql.NullString
		highlightsJSON sql.NullString
		keyQuote       sql.NullString
		model          sql.NullString
		generatedAt    sql.NullString
		createdAt      string
		updatedAt      string
	)
	err := row.Scan(
		&summary.ID, &summary.VideoID, &summary.Track.Status, &summary.Track.RetryCount,
		&nextRetry, &lastError, &tldr, &highlightsJSON, &keyQuote, &model,
		&generatedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	summary.Track.LastError = lastError.String
	summary.Content.TLDR = tldr.String
	summary.Content.KeyQuote = keyQuote.String
	summary.Content.Model = model.String
	if summary.Track.NextRetryAt, err = parseTimePtr(nextRetry); err != nil {
		return nil, err
	}
	if summary.Content.Highlights, err = parseList(highlightsJSON); err != nil {
		return nil, err
	}
	if summary.GeneratedAt, err = parseTimePtr(generatedAt); err != nil {
		return nil, err
	}
	if summary.CreatedAt, err = parseTimeValue(createdAt); err != nil {
		return nil, err
	}
	if summary.UpdatedAt, err = parseTimeValue(updatedAt); err != nil {
		return nil, err
	}
	return &summary, nil
}

type candidateScanner struct {
	video Video

	publishedAt       sql.NullString
	tombstoned        int
	tStatus           string
	tNextRetry        sql.NullString
	tLastError        sql.NullString
	tText             sql.NullString
	tLanguage         sql.NullString
	tFetchedAt        sql.NullString
	mStatus           string
	mNextRetry        sql.NullString
	mLastError        sql.NullString
	description       sql.NullString
	cleanDescription  sql.NullString
	tagsJSON          sql.NullString
	hashtagsJSON      sql.NullString
	urlsJSON          sql.NullString
	sponsorsJSON      sql.NullString
	metadataFetchedAt sql.NullString
	summaryReadyAt    sql.NullString
	createdAt         string
	updatedAt         string

	sID            sql.NullInt64
	sStatus        sql.NullString
	sRetryCount    sql.NullInt64
	sNextRetry     sql.NullString
	sLastError     sql.NullString
	sTLDR          sql.NullString
	sHighlights    sql.NullString
	sKeyQuote      sql.NullString
	sModel         sql.NullString
	sGeneratedAt   sql.NullString
	sCreatedAt     sql.NullString
	sUpdatedAt     sql.NullString
}

func scanSummaryCandidate(row rowScanner) (*SummaryCandidate, error) {
	var c candidateScanner
	err := row.Scan(
		&c.video.ID, &c.video.ChannelID, &c.video.ExternalID, &c.video.Title, &c.video.URL,
		&c.publishedAt, &c.tombstoned,
		&c.tStatus, &c.video.Transcript.RetryCount, &c.tNextRetry, &c.tLastError,
		&c.tText, &c.tLanguage, &c.tFetchedAt,
		&c.mStatus, &c.video.Metadata.RetryCount, &c.mNextRetry, &c.mLastError,
		&c.description, &c.cleanDescription, &c.tagsJSON, &c.hashtagsJSON, &c.urlsJSON, &c.sponsorsJSON,
		&c.metadataFetchedAt, &c.summaryReadyAt, &c.createdAt, &c.updatedAt,
		&c.sID, &c.sStatus, &c.sRetryCount, &c.sNextRetry, &c.sLastError,
		&c.sTLDR, &c.sHighlights, &c.sKeyQuote, &c.sModel, &c.sGeneratedAt,
		&c.sCreatedAt, &c.sUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	video := c.video
	video.Tombstoned = c.tombstoned != 0
	video.Transcript.Status = TrackStatus(c.tStatus)
	video.Transcript.LastError = c.tLastError.String
	video.TranscriptText = c.tText.String
	video.TranscriptLanguage = c.tLanguage.String
	video.Metadata.Status = TrackStatus(c.mStatus)
	video.Metadata.LastError = c.mLastError.String
	video.Description = c.description.String
	video.CleanDescription = c.cleanDescription.String
	if video.PublishedAt, err = parseTimePtr(c.publishedAt); err != nil {
		return nil, err
	}
	if video.Transcript.NextRetryAt, err = parseTimePtr(c.tNextRetry); err != nil {
		return nil, err
	}
	if video.TranscriptFetchedAt, err = parseTimePtr(c.tFetchedAt); err != nil {
		return nil, err
	}
	if video.Metadata.NextRetryAt, err = parseTimePtr(c.mNextRetry); err != nil {
		return nil, err
	}
	if video.MetadataFetchedAt, err = parseTimePtr(c.metadataFetchedAt); err != nil {
		return nil, err
	}
	if video.SummaryReadyAt, err = parseTimePtr(c.summaryReadyAt); err != nil {
		return nil, err
	}
	if video.Tags, err = parseList(c.tagsJSON); err != nil {
		return nil, err
	}
	if video.Hashtags, err = parseList(c.hashtagsJSON); err != nil {
		return nil, err
	}
	if video.URLs, err = parseList(c.urlsJSON); err != nil {
		return nil, err
	}
	if video.Sponsors, err = parseList(c.sponsorsJSON); err != nil {
		return nil, err
	}
	if video.CreatedAt, err = parseTimeValue(c.createdAt); err != nil {
		return nil, err
	}
	if video.UpdatedAt, err = parseTimeValue(c.updatedAt); err != nil {
		return nil, err
	}

	candidate := &SummaryCandidate{Video: &video}
	if !c.sID.Valid {
		return candidate, nil
	}

	summary := Summary{
		ID:      c.sID.Int64,
		VideoID: video.ID,
		Track: Track{
			Status:     TrackStatus(c.sStatus.String),
			RetryCount: int(c.sRetryCount.Int64),
			LastError:  c.sLastError.String,
		},
		Content: SummaryContent{
			TLDR:     c.sTLDR.String,
			KeyQuote: c.sKeyQuote.String,
			Model:    c.sModel.String,
		},
	}
	if summary.Track.NextRetryAt, err = parseTimePtr(c.sNextRetry); err != nil {
		return nil, err
	}
	if summary.Content.Highlights, err = parseList(c.sHighlights); err != nil {
		return nil, err
	}
	if summary.GeneratedAt, err = parseTimePtr(c.sGeneratedAt); err != nil {
		return nil, err
	}
	if c.sCreatedAt.Valid {
		if summary.CreatedAt, err = parseTimeValue(c.sCreatedAt.String); err != nil {
			return nil, err
		}
	}
	if c.sUpdatedAt.Valid {
		if summary.UpdatedAt, err = parseTimeValue(c.sUpdatedAt.String); err != nil {
			return nil, err
		}
	}
	candidate.Summary = &summary
	return candidate, nil
}

func prefixColumns(alias, columns string) string {
	parts := make([]string, 0, 28)
	for _, column := range splitColumns(columns) {
		parts = append(parts, alias+"."+column)
	}
	return joinColumns(parts)
}
