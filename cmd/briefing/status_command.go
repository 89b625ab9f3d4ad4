package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"briefing/internal/config"
	"briefing/internal/store"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline totals per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				report, err := st.Status(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				writeTable(out,
					[]string{"Stage", "Pending", "Ready", "Failed"},
					[][]string{
						trackRow("transcript", report.Transcript),
						trackRow("metadata", report.Metadata),
						trackRow("summary", report.Summary),
						{"notify", strconv.Itoa(report.Jobs.Pending), strconv.Itoa(report.Jobs.Delivered), strconv.Itoa(report.Jobs.Failed)},
					},
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				)
				writeTable(out,
					[]string{"Channels", "Videos", "Subscribers"},
					[][]string{{
						strconv.Itoa(report.Channels),
						strconv.Itoa(report.Videos),
						strconv.Itoa(report.Subscribers),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight},
				)
				return nil
			})
		},
	}
}

func trackRow(stage string, counts store.TrackCounts) []string {
	return []string{
		stage,
		strconv.Itoa(counts.Pending),
		strconv.Itoa(counts.Ready),
		strconv.Itoa(counts.Failed),
	}
}
