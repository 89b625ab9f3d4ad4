package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"briefing/internal/config"
	"briefing/internal/poller"
	"briefing/internal/store"
	"briefing/internal/websub"
)

func newChannelsCommand(cctx *commandContext) *cobra.Command {
	channelsCmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage followed channels",
	}
	channelsCmd.AddCommand(newChannelsAddCommand(cctx))
	channelsCmd.AddCommand(newChannelsListCommand(cctx))
	channelsCmd.AddCommand(newChannelsRemoveCommand(cctx))
	return channelsCmd
}

func newChannelsAddCommand(cctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <channel-id>",
		Short: "Follow a channel and request push notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				channelID := args[0]
				channel, err := st.EnsureChannel(ctx, channelID, title, poller.ResolveFeedURL(channelID))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Following channel %s (id %d)\n", channel.ExternalID, channel.ID)

				hub := websub.New(cfg)
				if !hub.Enabled() {
					fmt.Fprintln(cmd.OutOrStdout(), "No websub callback configured; relying on the feed poller")
					return nil
				}
				if err := hub.Subscribe(ctx, channelID); err != nil {
					return fmt.Errorf("channel stored, but hub subscription failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Requested hub subscription")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Channel title to display until the feed provides one")
	return cmd
}

func newChannelsListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List followed channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				channels, err := st.ListChannels(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(channels))
				for _, channel := range channels {
					rows = append(rows, []string{
						strconv.FormatInt(channel.ID, 10),
						channel.ExternalID,
						channel.Title,
						channel.FeedURL,
						scheduleCell(channel.LastPolledAt),
					})
				}
				writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Channel", "Title", "Feed URL", "Last Polled"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}
}

func newChannelsRemoveCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <channel-id>",
		Short: "Stop following a channel and drop its videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				channelID := args[0]

				hub := websub.New(cfg)
				if hub.Enabled() {
					if err := hub.Unsubscribe(ctx, channelID); err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "Warning: hub unsubscribe failed: %v\n", err)
					}
				}

				removed, err := st.DeleteChannel(ctx, channelID)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("channel %s is not followed", channelID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed channel %s\n", channelID)
				return nil
			})
		},
	}
}
