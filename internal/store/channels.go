package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const channelColumns = `id, external_id, title, feed_url, last_polled_at, created_at, updated_at`

// EnsureChannel inserts a channel if missing and refreshes its title and
// feed URL when non-empty values are supplied. The call is idempotent.
func (q *queries) EnsureChannel(ctx context.Context, externalID, title, feedURL string) (*Channel, error) {
	now := timestamp(time.Now())
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO channels (external_id, title, feed_url, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(external_id) DO UPDATE SET
             title = CASE WHEN excluded.title != '' THEN excluded.title ELSE channels.title END,
             feed_url = CASE WHEN excluded.feed_url != '' THEN excluded.feed_url ELSE channels.feed_url END,
             updated_at = excluded.updated_at`,
		externalID, title, feedURL, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure channel: %w", err)
	}
	return q.ChannelByExternalID(ctx, externalID)
}

// ChannelByExternalID fetches a channel by its external identifier. A
// missing channel returns nil without error.
func (q *queries) ChannelByExternalID(ctx context.Context, externalID string) (*Channel, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE external_id = ?`, externalID)
	channel, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return channel, nil
}

// ChannelByID fetches a channel by row id.
func (q *queries) ChannelByID(ctx context.Context, id int64) (*Channel, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	channel, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return channel, nil
}

// ListChannels returns all channels ordered by title then id.
func (q *queries) ListChannels(ctx context.Context) ([]*Channel, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return channels, nil
}

// MarkChannelPolled stamps the completion of a feed sweep for a channel.
// A sweep with no new entries still counts; a channel whose stamp stops
// advancing is a stalled feed.
func (q *queries) MarkChannelPolled(ctx context.Context, id int64, polledAt time.Time) error {
	_, err := q.db.ExecContext(
		ctx,
		`UPDATE channels SET last_polled_at = ?, updated_at = ? WHERE id = ?`,
		timestamp(polledAt), timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("mark channel polled: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel and, through foreign keys, its videos,
// subscriptions, and jobs. It reports whether a row was deleted.
func (q *queries) DeleteChannel(ctx context.Context, externalID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM channels WHERE external_id = ?`, externalID)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*Channel, error) {
	var (
		channel      Channel
		lastPolledAt sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(&channel.ID, &channel.ExternalID, &channel.Title, &channel.FeedURL, &lastPolledAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if channel.LastPolledAt, err = parseTimePtr(lastPolledAt); err != nil {
		return nil, err
	}
	if channel.CreatedAt, err = parseTimeValue(createdAt); err != nil {
		return nil, err
	}
	if channel.UpdatedAt, err = parseTimeValue(updatedAt); err != nil {
		return nil, err
	}
	return &channel, nil
}
