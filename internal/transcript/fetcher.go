package transcript

import (
	"context"
	"errors"
)

// Result is a fetched transcript with its normalized language code.
type Result struct {
	Text     string
	Language string
}

// Fetcher retrieves the transcript of a single video.
type Fetcher interface {
	Fetch(ctx context.Context, externalID string) (*Result, error)
}

var (
	// ErrDisabled means the video has captions turned off. Retrying will
	// not help.
	ErrDisabled = errors.New("captions disabled")
	// ErrNotFound means no transcript was available this attempt; it may
	// appear later.
	ErrNotFound = errors.New("transcript not available")
)
