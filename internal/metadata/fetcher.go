package metadata

import "context"

// Raw is the scraped metadata of a video before cleaning.
type Raw struct {
	Description string
	Keywords    []string
}

// Fetcher retrieves the raw metadata of a single video.
type Fetcher interface {
	Fetch(ctx context.Context, externalID string) (*Raw, error)
}
