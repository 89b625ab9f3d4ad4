// Package config loads, normalizes, and validates the TOML configuration
// shared by the briefing daemon and CLI.
package config
