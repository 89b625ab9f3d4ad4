package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"briefing/internal/config"
	"briefing/internal/store"
)

func errVideoNotFound(externalID string) error {
	return fmt.Errorf("no video with id %s", externalID)
}

func newJobsCommand(cctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect notification jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(cctx))
	return jobsCmd
}

func newJobsListCommand(cctx *commandContext) *cobra.Command {
	var limit int
	var videoExternalID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent notification jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				var (
					jobs []*store.NotificationJob
					err  error
				)
				if videoExternalID != "" {
					video, lookupErr := st.VideoByExternalID(ctx, videoExternalID)
					if lookupErr != nil {
						return lookupErr
					}
					if video == nil {
						return errVideoNotFound(videoExternalID)
					}
					jobs, err = st.JobsForVideo(ctx, video.ID)
				} else {
					jobs, err = st.ListJobs(ctx, limit)
				}
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					delivered := "-"
					if job.DeliveredAt != nil {
						delivered = job.DeliveredAt.UTC().Format(time.RFC3339)
					}
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						strconv.FormatInt(job.VideoID, 10),
						strconv.FormatInt(job.SubscriberID, 10),
						string(job.StatusLabel()),
						strconv.Itoa(job.Track.RetryCount),
						delivered,
						job.Track.LastError,
					})
				}
				writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Video", "Subscriber", "Status", "Retries", "Delivered", "Last Error"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 25, "Maximum number of jobs to show")
	cmd.Flags().StringVar(&videoExternalID, "video", "", "Only show jobs for this video id")
	return cmd
}
