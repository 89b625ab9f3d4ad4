package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Transcript contains configuration for the transcript stage.
type Transcript struct {
	MaxRetry       int `toml:"max_retry"`
	BackoffMinutes int `toml:"backoff_minutes"`
	MaxConcurrency int `toml:"max_concurrency"`
	MinIntervalMS  int `toml:"min_interval_ms"`
	BatchSize      int `toml:"batch_size"`
}

// Metadata contains configuration for the metadata stage.
type Metadata struct {
	MaxRetry       int `toml:"max_retry"`
	BackoffMinutes int `toml:"backoff_minutes"`
	BatchSize      int `toml:"batch_size"`
}

// Summary contains configuration for the summary stage.
type Summary struct {
	MaxRetry       int `toml:"max_retry"`
	BackoffMinutes int `toml:"backoff_minutes"`
	BatchSize      int `toml:"batch_size"`
}

// OpenAI contains connection settings for the LLM summary generator. When
// the API key is empty the heuristic generator runs alone.
type OpenAI struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxChars       int    `toml:"max_chars"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notify contains configuration for the notification stage. An empty SMTP
// URL selects the log-only sender.
type Notify struct {
	MaxRetry       int    `toml:"max_retry"`
	BackoffMinutes int    `toml:"backoff_minutes"`
	BatchSize      int    `toml:"batch_size"`
	SMTPURL        string `toml:"smtp_url"`
	FromAddress    string `toml:"from_address"`
}

// Poller contains configuration for the RSS feed poller.
type Poller struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

// WebSub contains configuration for hub subscription management.
type WebSub struct {
	HubURL      string `toml:"hub_url"`
	CallbackURL string `toml:"callback_url"`
	Secret      string `toml:"secret"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for briefing.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Transcript/Metadata/Summary/Notify: per-stage retry budgets, backoff
//     bases, and batch sizes
//   - OpenAI: LLM connection settings for summary generation
//   - Poller: RSS feed polling interval
//   - WebSub: push subscription hub settings
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Transcript Transcript `toml:"transcript"`
	Metadata   Metadata   `toml:"metadata"`
	Summary    Summary    `toml:"summary"`
	OpenAI     OpenAI     `toml:"openai"`
	Notify     Notify     `toml:"notify"`
	Poller     Poller     `toml:"poller"`
	WebSub     WebSub     `toml:"websub"`
	Logging    Logging    `toml:"logging"`
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/briefing/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("briefing.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return filepath.Abs(path)
}
