// Package store manages pipeline persistence backed by SQLite: channels,
// videos with their transcript and metadata progress tracks, summaries,
// subscribers, and notification jobs.
package store
