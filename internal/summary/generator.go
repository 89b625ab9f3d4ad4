package summary

import "context"

// Result is a generated briefing for one video.
type Result struct {
	TLDR       string
	Highlights []string
	KeyQuote   string
	Model      string
}

// Input carries the transcript plus the metadata context handed to a
// generator.
type Input struct {
	Title            string
	Transcript       string
	Tags             []string
	Hashtags         []string
	Sponsors         []string
	CleanDescription string
}

// Generator produces a summary from a transcript.
type Generator interface {
	Generate(ctx context.Context, input Input) (*Result, error)
}
