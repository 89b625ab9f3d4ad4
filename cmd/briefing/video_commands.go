package main

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"briefing/internal/config"
	"briefing/internal/store"
)

func newVideosCommand(cctx *commandContext) *cobra.Command {
	videosCmd := &cobra.Command{
		Use:   "videos",
		Short: "Inspect ingested videos",
	}
	videosCmd.AddCommand(newVideosListCommand(cctx))
	videosCmd.AddCommand(newVideosShowCommand(cctx))
	return videosCmd
}

func newVideosListCommand(cctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent videos with per-track progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				videos, err := st.ListVideos(ctx, limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(videos))
				for _, video := range videos {
					rows = append(rows, []string{
						strconv.FormatInt(video.ID, 10),
						video.ExternalID,
						truncate(video.Title, 48),
						trackCell(video.Transcript),
						trackCell(video.Metadata),
						summaryCell(video.SummaryReadyAt),
					})
				}
				writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Video", "Title", "Transcript", "Metadata", "Summary"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 25, "Maximum number of videos to show")
	return cmd
}

func newVideosShowCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <video-id>",
		Short: "Show one video's tracks and last errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				video, err := st.VideoByExternalID(ctx, args[0])
				if err != nil {
					return err
				}
				if video == nil {
					return errVideoNotFound(args[0])
				}

				rows := [][]string{
					{"transcript", string(video.Transcript.Status), strconv.Itoa(video.Transcript.RetryCount), scheduleCell(video.Transcript.NextRetryAt), video.Transcript.LastError},
					{"metadata", string(video.Metadata.Status), strconv.Itoa(video.Metadata.RetryCount), scheduleCell(video.Metadata.NextRetryAt), video.Metadata.LastError},
				}
				summary, err := st.SummaryByVideoID(ctx, video.ID)
				if err != nil {
					return err
				}
				if summary != nil {
					rows = append(rows, []string{"summary", string(summary.Track.Status), strconv.Itoa(summary.Track.RetryCount), scheduleCell(summary.Track.NextRetryAt), summary.Track.LastError})
				}

				writeTable(cmd.OutOrStdout(),
					[]string{"Track", "Status", "Retries", "Next Retry", "Last Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}
}

func trackCell(track store.Track) string {
	if track.Status == store.StatusPending && track.RetryCount > 0 {
		return "pending (" + strconv.Itoa(track.RetryCount) + " tries)"
	}
	return string(track.Status)
}

func summaryCell(readyAt *time.Time) string {
	if readyAt == nil {
		return "-"
	}
	return "ready"
}

func scheduleCell(at *time.Time) string {
	if at == nil {
		return "-"
	}
	return at.UTC().Format(time.RFC3339)
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
