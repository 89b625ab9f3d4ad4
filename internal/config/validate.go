package config

import (
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	if err := c.validateStage("transcript", c.Transcript.MaxRetry, c.Transcript.BackoffMinutes, c.Transcript.BatchSize); err != nil {
		return err
	}
	if c.Transcript.MaxConcurrency < 1 {
		return fmt.Errorf("transcript.max_concurrency must be at least 1")
	}
	if c.Transcript.MinIntervalMS < 0 {
		return fmt.Errorf("transcript.min_interval_ms must not be negative")
	}
	if err := c.validateStage("metadata", c.Metadata.MaxRetry, c.Metadata.BackoffMinutes, c.Metadata.BatchSize); err != nil {
		return err
	}
	if err := c.validateStage("summary", c.Summary.MaxRetry, c.Summary.BackoffMinutes, c.Summary.BatchSize); err != nil {
		return err
	}
	if err := c.validateStage("notify", c.Notify.MaxRetry, c.Notify.BackoffMinutes, c.Notify.BatchSize); err != nil {
		return err
	}
	if err := c.validateNotify(); err != nil {
		return err
	}
	if c.Poller.Enabled && c.Poller.IntervalMinutes < 1 {
		return fmt.Errorf("poller.interval_minutes must be at least 1")
	}
	if c.WebSub.CallbackURL != "" {
		if _, err := url.ParseRequestURI(c.WebSub.CallbackURL); err != nil {
			return fmt.Errorf("websub.callback_url is invalid: %w", err)
		}
	}
	switch c.Logging.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("logging.format must be console, text, or json")
	}
	return nil
}

func (c *Config) validateStage(name string, maxRetry, backoffMinutes, batchSize int) error {
	if maxRetry < 1 {
		return fmt.Errorf("%s.max_retry must be at least 1", name)
	}
	if backoffMinutes < 1 {
		return fmt.Errorf("%s.backoff_minutes must be at least 1", name)
	}
	if batchSize < 1 {
		return fmt.Errorf("%s.batch_size must be at least 1", name)
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.SMTPURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notify.SMTPURL)
	if err != nil {
		return fmt.Errorf("notify.smtp_url is invalid: %w", err)
	}
	switch parsed.Scheme {
	case "smtp", "smtps", "submission":
	default:
		return fmt.Errorf("notify.smtp_url scheme must be smtp, smtps, or submission")
	}
	if parsed.Hostname() == "" {
		return fmt.Errorf("notify.smtp_url is missing a hostname")
	}
	if c.Notify.FromAddress == "" {
		return fmt.Errorf("notify.from_address is required when notify.smtp_url is set")
	}
	return nil
}
