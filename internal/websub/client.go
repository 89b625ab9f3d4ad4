// Package websub manages push subscriptions with a WebSub hub.
package websub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"briefing/internal/config"
	"briefing/internal/poller"
)

// Client issues subscribe and unsubscribe requests to the configured hub.
type Client struct {
	hubURL      string
	callbackURL string
	secret      string
	httpClient  *http.Client
}

// Option adjusts a Client.
type Option func(*Client)

// WithHTTPClient overrides the hub client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// New builds a hub client from configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		hubURL:      cfg.WebSub.HubURL,
		callbackURL: cfg.WebSub.CallbackURL,
		secret:      cfg.WebSub.Secret,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a callback URL is configured. Without one the
// hub has nowhere to push and subscription management is skipped.
func (c *Client) Enabled() bool {
	return c.callbackURL != ""
}

// Subscribe asks the hub to start pushing the channel's uploads feed.
func (c *Client) Subscribe(ctx context.Context, channelID string) error {
	return c.request(ctx, "subscribe", channelID)
}

// Unsubscribe asks the hub to stop pushing the channel's uploads feed.
func (c *Client) Unsubscribe(ctx context.Context, channelID string) error {
	return c.request(ctx, "unsubscribe", channelID)
}

func (c *Client) request(ctx context.Context, mode, channelID string) error {
	form := url.Values{
		"hub.mode":     {mode},
		"hub.topic":    {poller.ResolveFeedURL(channelID)},
		"hub.callback": {c.callbackURL},
		"hub.verify":   {"async"},
	}
	if c.secret != "" {
		form.Set("hub.secret", c.secret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build hub request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", mode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s request: hub returned status %d", mode, resp.StatusCode)
	}
	return nil
}
