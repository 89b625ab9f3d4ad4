package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"briefing/internal/config"
	"briefing/internal/store"
)

func newRetryCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "retry {transcripts|metadata|summaries|jobs|all}",
		Short:     "Reset failed records so the pipeline picks them up again",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"transcripts", "metadata", "summaries", "jobs", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				target := args[0]
				out := cmd.OutOrStdout()

				resets := map[string]func(context.Context) (int64, error){
					"transcripts": st.RetryFailedTranscripts,
					"metadata":    st.RetryFailedMetadata,
					"summaries":   st.RetryFailedSummaries,
					"jobs":        st.RetryFailedJobs,
				}

				if target != "all" {
					reset, ok := resets[target]
					if !ok {
						return fmt.Errorf("unknown retry target %q", target)
					}
					count, err := reset(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Reset %d failed %s\n", count, target)
					return nil
				}

				for _, name := range []string{"transcripts", "metadata", "summaries", "jobs"} {
					count, err := resets[name](ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Reset %d failed %s\n", count, name)
				}
				return nil
			})
		},
	}
}
