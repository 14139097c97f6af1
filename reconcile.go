package main

import (
	"fmt"

	"academy/internal/jobs"

	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var subscriptions bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Fail abandoned pending orders once, then exit",
		Long: `Fail every pending order older than PENDING_ORDER_TTL.

Examples:
  academy reconcile
  academy reconcile --subscriptions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			runner, err := jobs.New(a.services.Orders, a.services.Subscription, jobs.Schedules{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "failed %d stale pending orders\n", runner.ReconcileOrders(ctx))
			if subscriptions {
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d subscriptions\n", runner.ExpireSubscriptions(ctx))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&subscriptions, "subscriptions", false, "also expire lapsed subscriptions")
	return cmd
}
