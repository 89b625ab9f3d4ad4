package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const subscriberColumns = `id, email, name, created_at, updated_at`

// AddSubscriber inserts a subscriber, updating the display name when the
// email is already registered.
func (q *queries) AddSubscriber(ctx context.Context, email, name string) (*Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("subscriber email is required")
	}
	now := timestamp(time.Now())
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO subscribers (email, name, created_at, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(email) DO UPDATE SET
             name = CASE WHEN excluded.name != '' THEN excluded.name ELSE subscribers.name END,
             updated_at = excluded.updated_at`,
		email, strings.TrimSpace(name), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("add subscriber: %w", err)
	}
	return q.SubscriberByEmail(ctx, email)
}

// SubscriberByEmail fetches a subscriber by address, nil when missing.
func (q *queries) SubscriberByEmail(ctx context.Context, email string) (*Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := q.db.QueryRowContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE email = ?`, email)
	subscriber, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return subscriber, nil
}

// SubscriberByID fetches a subscriber by row id, nil when missing.
func (q *queries) SubscriberByID(ctx context.Context, id int64) (*Subscriber, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE id = ?`, id)
	subscriber, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return subscriber, nil
}

// ListSubscribers returns all subscribers ordered by address.
func (q *queries) ListSubscribers(ctx context.Context) ([]*Subscriber, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []*Subscriber
	for rows.Next() {
		subscriber, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, subscriber)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subscribers, nil
}

// Subscribe links a subscriber to a channel. Repeated calls are no-ops.
func (q *queries) Subscribe(ctx context.Context, subscriberID, channelID int64) error {
	_, err := q.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO subscriber_channels (subscriber_id, channel_id, created_at)
         VALUES (?, ?, ?)`,
		subscriberID, channelID, timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Unsubscribe removes the link between a subscriber and a channel.
func (q *queries) Unsubscribe(ctx context.Context, subscriberID, channelID int64) error {
	_, err := q.db.ExecContext(
		ctx,
		`DELETE FROM subscriber_channels WHERE subscriber_id = ? AND channel_id = ?`,
		subscriberID, channelID,
	)
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

// SubscriberIDsForChannel returns the ids of every subscriber linked to a
// channel, ordered for deterministic fan-out.
func (q *queries) SubscriberIDsForChannel(ctx context.Context, channelID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(
		ctx,
		`SELECT subscriber_id FROM subscriber_channels WHERE channel_id = ? ORDER BY subscriber_id`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("subscribers for channel: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriber ids: %w", err)
	}
	return ids, nil
}

func scanSubscriber(row rowScanner) (*Subscriber, error) {
	var (
		subscriber Subscriber
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&subscriber.ID, &subscriber.Email, &subscriber.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if subscriber.CreatedAt, err = parseTimeValue(createdAt); err != nil {
		return nil, err
	}
	if subscriber.UpdatedAt, err = parseTimeValue(updatedAt); err != nil {
		return nil, err
	}
	return &subscriber, nil
}
