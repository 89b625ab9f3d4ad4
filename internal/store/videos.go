package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const videoColumns = `id, channel_id, external_id, title, url, published_at, tombstoned,
    transcript_status, transcript_retry_count, transcript_next_retry_at, transcript_last_error,
    transcript_text, transcript_language, transcript_fetched_at,
    metadata_status, metadata_retry_count, metadata_next_retry_at, metadata_last_error,
    description, clean_description, tags_json, hashtags_json, urls_json, sponsors_json,
    metadata_fetched_at, summary_ready_at, created_at, updated_at`

// InsertVideo stores a new video with both tracks pending and eligible
// immediately. The video's ID is filled in on return.
func (q *queries) InsertVideo(ctx context.Context, video *Video) error {
	now := timestamp(time.Now())
	res, err := q.db.ExecContext(
		ctx,
		`INSERT INTO videos (
            channel_id, external_id, title, url, published_at, description,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ChannelID,
		video.ExternalID,
		video.Title,
		video.URL,
		nullableTime(video.PublishedAt),
		nullableString(video.Description),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	video.ID = id
	video.Transcript = NewTrack()
	video.Metadata = NewTrack()
	return nil
}

// UpdateVideoListing refreshes the feed-sourced fields of an existing
// video without touching either progress track.
func (q *queries) UpdateVideoListing(ctx context.Context, id int64, title, url, description string, publishedAt *time.Time) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE videos SET title = ?, url = ?, description = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		title, url, nullableString(description), nullableTime(publishedAt), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update video listing: %w", err)
	}
	return nil
}

// SetVideoTombstoned marks a video as removed upstream. Tombstoned videos
// are excluded from every eligibility query.
func (q *queries) SetVideoTombstoned(ctx context.Context, id int64, tombstoned bool) error {
	value := 0
	if tombstoned {
		value = 1
	}
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE videos SET tombstoned = ?, updated_at = ? WHERE id = ?`,
		value, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set video tombstoned: %w", err)
	}
	return nil
}

// VideoByID fetches a video by row id. A missing video returns nil.
func (q *queries) VideoByID(ctx context.Context, id int64) (*Video, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// VideoByExternalID fetches a video by its external identifier across all
// channels. Convenient for the CLI and tombstone refs; the ingest upsert
// resolves per channel instead.
func (q *queries) VideoByExternalID(ctx context.Context, externalID string) (*Video, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE external_id = ? ORDER BY id LIMIT 1`, externalID)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

/// VideoByChannelAndExternalID fetches a video by its identity key: the
// same external identifier may exist under more than one channel.
func (q *queries) VideoByChannelAndExternalID(ctx context.Context, channelID int64, externalID string) (*Video, error) {
	row := q.db.QueryRowContext(
		ctx,
		`SELECT `+videoColumns+` FROM videos WHERE channel_id = ? AND external_id = ?`,
		channelID, externalID,
	)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// ListVideos returns the most recently created videos, newest first.
func (q *queries) ListVideos(ctx context.Context, limit int) ([]*Video, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT `+videoColumns+` FROM videos ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// EligibleTranscripts returns videos whose transcript track is pending and
// due, oldest schedule first with unscheduled rows ahead.
func (q *queries) EligibleTranscripts(ctx context.Context, now time.Time, limit int) ([]*Video, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT `+videoColumns+` FROM videos
         WHERE tombstoned = 0 AND transcript_status = ?
           AND (transcript_next_retry_at IS NULL OR transcript_next_retry_at <= ?)
         ORDER BY transcript_next_retry_at, id
         LIMIT ?`,
		StatusPending, scheduleTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select eligible transcripts: %w", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// EligibleMetadata returns videos whose metadata track is pending and due.
// A video becomes metadata-eligible only once its transcript is ready.
func (q *queries) EligibleMetadata(ctx context.Context, now time.Time, limit int) ([]*Video, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT `+videoColumns+` FROM videos
         WHERE tombstoned = 0 AND transcript_status = ? AND metadata_status = ?
           AND (metadata_next_retry_at IS NULL OR metadata_next_retry_at <= ?)
         ORDER BY metadata_next_retry_at, id
         LIMIT ?`,
		StatusReady, StatusPending, scheduleTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select eligible metadata: %w", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// SetTranscriptResult persists a successful transcript fetch alongside its
// track transition.
func (q *queries) SetTranscriptResult(ctx context.Context, id int64, track Track, text, language string, fetchedAt time.Time) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE videos SET
            transcript_status = ?, transcript_retry_count = ?, transcript_next_retry_at = ?,
            transcript_last_error = ?, transcript_text = ?, transcript_language = ?,
            transcript_fetched_at = ?, updated_at = ?
         WHERE id = ?`,
		track.Status, track.RetryCount, nullableSchedule(track.NextRetryAt),
		nullableString(track.LastError), text, nullableString(language),
		timestamp(fetchedAt), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set transcript result: %w", err)
	}
	return nil
}

// SetTranscriptTrack persists a transcript track transition without
// touching the fetched content.
func (q *queries) SetTranscriptTrack(ctx context.Context, id int64, track Track) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE videos SET
            transcript_status = ?, transcript_retry_count = ?, transcript_next_retry_at = ?,
            transcript_last_error = ?, updated_at = ?
         WHERE id = ?`,
		track.Status, track.RetryCount, nullableSchedule(track.NextRetryAt),
		nullableString(track.LastError), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set transcript track: %w", err)
	}
	return nil
}

// MetadataContent is the enrichment payload persisted on metadata success.
type MetadataContent struct {
	Description      string
	CleanDescription string
	Tags             []string
	Hashtags         []string
	URLs             []string
	Sponsors         []string
}

// SetMetadataResult persists a successful metadata fetch alongside its
// track transition.
func (q *queries) SetMetadataResult(ctx context.Context, id int64, track Track, content MetadataContent, fetchedAt time.Time) error {
	tags, err := nullableList(content.Tags)
	if err != nil {
		return err
	}
	hashtags, err := nullableList(content.Hashtags)
	if err != nil {
		return err
	}
	urls, err := nullableList(content.URLs)
	if err != nil {
		return err
	}
	sponsors, err := nullableList(content.Sponsors)
	if err != nil {
		return err
	}

	_, err = q.db.ExecContext(
		ctx,
		`UPDATE videos SET
            metadata_status = ?, metadata_retry_count = ?, metadata_next_retry_at = ?,
            metadata_last_error = ?, description = ?, clean_description = ?,
            tags_json = ?, hashtags_json = ?, urls_json = ?, sponsors_json = ?,
            metadata_fetched_at = ?, updated_at = ?
         WHERE id = ?`,
		track.Status, track.RetryCount, nullableSchedule(track.NextRetryAt),
		nullableString(track.LastError), nullableString(content.Description),
		nullableString(content.CleanDescription), tags, hashtags, urls, sponsors,
		timestamp(fetchedAt), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set metadata result: %w", err)
	}
	return nil
}

// SetMetadataTrack persists a metadata track transition without touching
// the enrichment content.
func (q *queries) SetMetadataTrack(ctx context.Context, id int64, track Track) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE videos SET
            metadata_status = ?, metadata_retry_count = ?, metadata_next_retry_at = ?,
            metadata_last_error = ?, updated_at = ?
         WHERE id = ?`,
		track.Status, track.RetryCount, nullableSchedule(track.NextRetryAt),
		nullableString(track.LastError), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set metadata track: %w", err)
	}
	return nil
}

// SetVideoSummaryReady stamps the moment a video's summary became
// available for notification.
func (q *queries) SetVideoSummaryReady(ctx context.Context, id int64, readyAt time.Time) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE videos SET summary_ready_at = ?, updated_at = ? WHERE id = ?`,
		timestamp(readyAt), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set summary ready: %w", err)
	}
	return nil
}

func collectVideos(rows *sql.Rows) ([]*Video, error) {
	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func scanVideo(row rowScanner) (*Video, error) {
	var (
		video             Video
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
	)

	err := row.Scan(
		&video.ID, &video.ChannelID, &video.ExternalID, &video.Title, &video.URL,
		&publishedAt, &tombstoned,
		&tStatus, &video.Transcript.RetryCount, &tNextRetry, &tLastError,
		&tText, &tLanguage, &tFetchedAt,
		&mStatus, &video.Metadata.RetryCount, &mNextRetry, &mLastError,
		&description, &cleanDescription, &tagsJSON, &hashtagsJSON, &urlsJSON, &sponsorsJSON,
		&metadataFetchedAt, &summaryReadyAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	video.Tombstoned = tombstoned != 0
	video.Transcript.Status = TrackStatus(tStatus)
	video.Transcript.LastError = tLastError.String
	video.TranscriptText = tText.String
	video.TranscriptLanguage = tLanguage.String
	video.Metadata.Status = TrackStatus(mStatus)
	video.Metadata.LastError = mLastError.String
	video.Description = description.String
	video.CleanDescription = cleanDescription.String

	if video.PublishedAt, err = parseTimePtr(publishedAt); err != nil {
		return nil, err
	}
	if video.Transcript.NextRetryAt, err = parseTimePtr(tNextRetry); err != nil {
		return nil, err
	}
	if video.TranscriptFetchedAt, err = parseTimePtr(tFetchedAt); err != nil {
		return nil, err
	}
	if video.Metadata.NextRetryAt, err = parseTimePtr(mNextRetry); err != nil {
		return nil, err
	}
	if video.MetadataFetchedAt, err = parseTimePtr(metadataFetchedAt); err != nil {
		return nil, err
	}
	if video.SummaryReadyAt, err = parseTimePtr(summaryReadyAt); err != nil {
		return nil, err
	}
	if video.Tags, err = parseList(tagsJSON); err != nil {
		return nil, err
	}
	if video.Hashtags, err = parseList(hashtagsJSON); err != nil {
		return nil, err
	}
	if video.URLs, err = parseList(urlsJSON); err != nil {
		return nil, err
	}
	if video.Sponsors, err = parseList(sponsorsJSON); err != nil {
		return nil, err
	}
	if video.CreatedAt, err = parseTimeValue(createdAt); err != nil {
		return nil, err
	}
	if video.UpdatedAt, err = parseTimeValue(updatedAt); err != nil {
		return nil, err
	}
	return &video, nil
}
