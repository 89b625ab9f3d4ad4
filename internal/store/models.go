package store

import "time"

// TrackStatus is the lifecycle state of a progress track.
type TrackStatus string

const (
	StatusPending TrackStatus = "pending"
	StatusReady   TrackStatus = "ready"
	StatusFailed  TrackStatus = "failed"
)

// ValidTrackStatus reports whether the given status is a known track state.
func ValidTrackStatus(s TrackStatus) bool {
	switch s {
	case StatusPending, StatusReady, StatusFailed:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a notification job as persisted. It
// mirrors TrackStatus with "delivered" as the success label.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobDelivered JobStatus = "delivered"
	JobFailed    JobStatus = "failed"
)

// Track is the shared progress shape carried by every retryable record:
// transcript and metadata on videos, summaries, and notification jobs.
type Track struct {
	Status      TrackStatus
	RetryCount  int
	NextRetryAt *time.Time
	LastError   string
}

// NewTrack returns a fresh pending track.
func NewTrack() Track {
	return Track{Status: StatusPending}
}

// Channel is a subscribed content source. LastPolledAt records the most
// recent completed feed sweep, whether or not it carried new entries.
type Channel struct {
	ID           int64
	ExternalID   string
	Title        string
	FeedURL      string
	LastPolledAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Video is an ingested item with its enrichment tracks.
type Video struct {
	ID          int64
	ChannelID   int64
	ExternalID  string
	Title       string
	URL         string
	PublishedAt *time.Time
	Tombstoned  bool

	Transcript          Track
	TranscriptText      string
	TranscriptLanguage  string
	TranscriptFetchedAt *time.Time

	Metadata          Track
	Description       string
	CleanDescription  string
	Tags              []string
	Hashtags          []string
	URLs              []string
	Sponsors          []string
	MetadataFetchedAt *time.Time

	SummaryReadyAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SummaryContent is the generated payload of a summary.
type SummaryContent struct {
	TLDR       string
	Highlights []string
	KeyQuote   string
	Model      string
}

// Summary is the per-video summary record with its progress track.
type Summary struct {
	ID      int64
	VideoID int64
	Track   Track
	Content SummaryContent

	GeneratedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SummaryCandidate pairs an eligible video with its summary record, which
// is nil until the first generation attempt has been persisted.
type SummaryCandidate struct {
	Video   *Video
	Summary *Summary
}

// Subscriber receives notifications for the channels they follow.
type Subscriber struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationJob is one pending delivery of a video summary to a
// subscriber. The in-memory track uses ready for success; the delivered
// label exists only at the SQL layer.
type NotificationJob struct {
	ID           int64
	VideoID      int64
	SubscriberID int64
	Track        Track
	DeliveredAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusLabel returns the persisted status string for the job.
func (j *NotificationJob) StatusLabel() JobStatus {
	return jobStatusFromTrack(j.Track.Status)
}

func jobStatusFromTrack(s TrackStatus) JobStatus {
	switch s {
	case StatusReady:
		return JobDelivered
	case StatusFailed:
		return JobFailed
	default:
		return JobPending
	}
}

func trackStatusFromJob(s JobStatus) TrackStatus {
	switch s {
	case JobDelivered:
		return StatusReady
	case JobFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}
