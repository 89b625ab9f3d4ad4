// Package poller periodically re-fetches each channel's Atom feed as a
// safety net for missed push notifications.
package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"briefing/internal/config"
	"briefing/internal/ingest"
	"briefing/internal/logging"
	"briefing/internal/store"
)

const maxFeedBytes = 4 << 20

// ResolveFeedURL returns the canonical uploads feed for a channel.
func ResolveFeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
}

// Poller walks all known channels on a fixed interval and runs each feed
// through the ingest upsert. A failing channel never blocks the others.
type Poller struct {
	store    *store.Store
	client   *http.Client
	interval time.Duration
	logger   *slog.Logger
}

// Option adjusts a Poller.
type Option func(*Poller)

// WithHTTPClient overrides the feed client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Poller) { p.client = client }
}

// New builds a poller from configuration.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		store:    st,
		client:   &http.Client{Timeout: 30 * time.Second},
		interval: time.Duration(cfg.Poller.IntervalMinutes) * time.Minute,
		logger:   logging.NewComponentLogger(logger, "poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until the context is cancelled. The first sweep happens after
// one full interval so a daemon restart does not hammer the feeds.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", logging.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				if ctx.Err() != nil {
					p.logger.Info("poller stopped")
					return
				}
				p.logger.Error("poll sweep failed", logging.Error(err))
			}
		}
	}
}

// PollOnce sweeps every channel once. Per-channel fetch or parse failures
// are logged and skipped; only storage errors abort the sweep.
func (p *Poller) PollOnce(ctx context.Context) error {
	channels, err := p.store.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	for _, channel := range channels {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		feedURL := channel.FeedURL
		if feedURL == "" {
			feedURL = ResolveFeedURL(channel.ExternalID)
		}
		logger := p.logger.With(logging.String("channel", channel.ExternalID))

		feed, err := p.fetch(ctx, feedURL)
		if err != nil {
			logger.Warn("feed fetch failed", logging.Error(err))
			continue
		}
		result, err := ingest.Apply(ctx, p.store, feed, logger)
		if err != nil {
			return err
		}
		if err := p.store.MarkChannelPolled(ctx, channel.ID, time.Now().UTC()); err != nil {
			return err
		}
		if result.Created > 0 || result.Updated > 0 || result.Tombstoned > 0 {
			logger.Info("feed sweep applied",
				logging.Int("created", result.Created),
				logging.Int("updated", result.Updated),
				logging.Int("tombstoned", result.Tombstoned))
		}
	}
	return nil
}

func (p *Poller) fetch(ctx context.Context, feedURL string) (*ingest.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return ingest.Parse(payload)
}
