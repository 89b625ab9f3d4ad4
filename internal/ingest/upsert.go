package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"briefing/internal/logging"
	"briefing/internal/store"
)

// Result summarizes one Apply call.
type Result struct {
	Created    int
	Updated    int
	Tombstoned int
}

// Apply upserts a parsed feed in a single transaction. New videos start
// with both progress tracks pending and eligible immediately; known videos
// only refresh their feed-sourced listing fields and never have a track
// reset. Deleted refs tombstone the matching video, which removes it from
// every eligibility pool.
func Apply(ctx context.Context, st *store.Store, feed *Feed, logger *slog.Logger) (Result, error) {
	var result Result
	err := st.WithTx(ctx, func(tx *store.Tx) error {
		for _, n := range feed.Notifications {
			channel, err := tx.EnsureChannel(ctx, n.ChannelID, n.ChannelTitle, "")
			if err != nil {
				return err
			}

			video, err := tx.VideoByChannelAndExternalID(ctx, channel.ID, n.VideoID)
			if err != nil {
				return err
			}
			if video == nil {
				created := &store.Video{
					ChannelID:   channel.ID,
					ExternalID:  n.VideoID,
					Title:       n.VideoTitle,
					URL:         watchURL(n),
					Description: n.Description,
					PublishedAt: n.PublishedAt,
				}
				if created.Title == "" {
					created.Title = n.VideoID
				}
				if err := tx.InsertVideo(ctx, created); err != nil {
					return err
				}
				result.Created++
				logger.Info("video ingested",
					logging.String("video", n.VideoID),
					logging.String("channel", n.ChannelID))
				continue
			}

			if updateListing(video, n) {
				if err := tx.UpdateVideoListing(ctx, video.ID, video.Title, video.URL, video.Description, video.PublishedAt); err != nil {
					return err
				}
				result.Updated++
				logger.Debug("video listing refreshed", logging.String("video", n.VideoID))
			}
		}

		for _, videoID := range feed.Deleted {
			video, err := tx.VideoByExternalID(ctx, videoID)
			if err != nil {
				return err
			}
			if video == nil || video.Tombstoned {
				continue
			}
			if err := tx.SetVideoTombstoned(ctx, video.ID, true); err != nil {
				return err
			}
			result.Tombstoned++
			logger.Info("video tombstoned", logging.String("video", videoID))
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("apply feed: %w", err)
	}
	return result, nil
}

// updateListing merges the notification's fields into the stored video
// and reports whether anything changed. Empty feed values never clobber
// stored ones.
func updateListing(video *store.Video, n Notification) bool {
	changed := false
	if n.VideoTitle != "" && n.VideoTitle != video.Title {
		video.Title = n.VideoTitle
		changed = true
	}
	if n.Description != "" && n.Description != video.Description {
		video.Description = n.Description
		changed = true
	}
	if n.PublishedAt != nil && (video.PublishedAt == nil || !video.PublishedAt.Equal(*n.PublishedAt)) {
		video.PublishedAt = n.PublishedAt
		changed = true
	}
	if url := watchURL(n); url != video.URL {
		video.URL = url
		changed = true
	}
	return changed
}

func watchURL(n Notification) string {
	if n.Link != "" {
		return n.Link
	}
	return "https://www.youtube.com/watch?v=" + n.VideoID
}
