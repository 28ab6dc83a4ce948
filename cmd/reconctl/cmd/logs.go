package cmd

import (
	"context"

	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/spf13/cobra"
)

type logsOptions struct {
	period string
	limit  int
}

func newLogsCommand(a *app) *cobra.Command {
	opts := &logsOptions{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List reconciliation runs of a period, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := shared.ParsePeriod(opts.period)
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				logs, err := b.Logs.ListByPeriod(ctx, period, opts.limit, 0)
				if err != nil {
					return err
				}
				total, err := b.Logs.CountByPeriod(ctx, period)
				if err != nil {
					return err
				}
				if a.opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), logs)
				}
				printLogs(cmd.OutOrStdout(), logs, total)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.period, "period", "p", "", "fiscal period, YYYY-MM (required)")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum number of runs to show")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}
