package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"briefing/internal/config"
	"briefing/internal/store"
)

func newSubscribersCommand(cctx *commandContext) *cobra.Command {
	subscribersCmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage notification recipients",
	}
	subscribersCmd.AddCommand(newSubscribersAddCommand(cctx))
	subscribersCmd.AddCommand(newSubscribersListCommand(cctx))
	subscribersCmd.AddCommand(newSubscribeCommand(cctx))
	subscribersCmd.AddCommand(newUnsubscribeCommand(cctx))
	return subscribersCmd
}

func newSubscribersAddCommand(cctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Register a notification recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				subscriber, err := st.AddSubscriber(ctx, args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added subscriber %s (id %d)\n", subscriber.Email, subscriber.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name used in the email greeting")
	return cmd
}

func newSubscribersListCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notification recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				subscribers, err := st.ListSubscribers(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(subscribers))
				for _, subscriber := range subscribers {
					rows = append(rows, []string{
						strconv.FormatInt(subscriber.ID, 10),
						subscriber.Email,
						subscriber.Name,
					})
				}
				writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Email", "Name"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}
}

func newSubscribeCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <email> <channel-id>",
		Short: "Subscribe a recipient to a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				subscriber, channel, err := lookupPair(ctx, st, args[0], args[1])
				if err != nil {
					return err
				}
				if err := st.Subscribe(ctx, subscriber.ID, channel.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now follows %s\n", subscriber.Email, channel.ExternalID)
				return nil
			})
		},
	}
}

func newUnsubscribeCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <email> <channel-id>",
		Short: "Unsubscribe a recipient from a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(cmd, func(ctx context.Context, cfg *config.Config, st *store.Store) error {
				subscriber, channel, err := lookupPair(ctx, st, args[0], args[1])
				if err != nil {
					return err
				}
				if err := st.Unsubscribe(ctx, subscriber.ID, channel.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s no longer follows %s\n", subscriber.Email, channel.ExternalID)
				return nil
			})
		},
	}
}

func lookupPair(ctx context.Context, st *store.Store, email, channelID string) (*store.Subscriber, *store.Channel, error) {
	subscriber, err := st.SubscriberByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if subscriber == nil {
		return nil, nil, fmt.Errorf("no subscriber with email %s", email)
	}
	channel, err := st.ChannelByExternalID(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if channel == nil {
		return nil, nil, fmt.Errorf("channel %s is not followed", channelID)
	}
	return subscriber, channel, nil
}
