package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/flux-climatology/internal/config"
)

func newRunCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Reduce every flux file, then aggregate and publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg(), func(ctx context.Context, a *app) error {
				_, err := a.pipeline.Run(ctx)
				return err
			})
		},
	}
}

func newReduceCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reduce",
		Short: "Write one monthly climatology per flux file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg(), func(ctx context.Context, a *app) error {
				_, err := a.pipeline.Reduce(ctx)
				return err
			})
		},
	}
}

func newAggregateCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Area-weight the stored climatologies into the regional average",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, cfg(), func(ctx context.Context, a *app) error {
				regional, cells, err := a.pipeline.Aggregate(ctx)
				if err != nil {
					return err
				}
				return a.pipeline.Publish(ctx, cells, regional)
			})
		},
	}
}
