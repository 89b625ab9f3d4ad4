// Package logging wires log/slog for the daemon and CLI: handler
// construction from configuration, attribute helpers, and context-aware
// loggers that stamp stage/video/job identifiers on every record.
package logging
