package cmd

import (
	"context"
	"errors"

	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/spf13/cobra"
)

type runOptions struct {
	period    string
	mode      string
	initiator string
}

func newRunCommand(a *app) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile one fiscal period",
		Long: `Run matches the unmatched GL entries and forecast lines of a period. Existing
matches are left untouched, so running a period twice creates nothing new.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				result, err := b.Runner.Run(ctx, reconciliation.RunRequest{
					Period:    opts.period,
					Mode:      shared.Mode(opts.mode),
					Initiator: opts.initiator,
				})
				// a cancelled run still reports what it committed
				if err != nil && !(errors.Is(err, reconciliation.ErrRunCancelled) && result != nil) {
					return err
				}
				if a.opts.output == outputJSON {
					if writeErr := writeJSON(cmd.OutOrStdout(), result); writeErr != nil {
						return writeErr
					}
					return err
				}
				printRunResult(cmd.OutOrStdout(), result)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&opts.period, "period", "p", "", "fiscal period, YYYY-MM (required)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(shared.ModeBoth), "matching mode: exact, fuzzy, both")
	cmd.Flags().StringVar(&opts.initiator, "initiator", "reconctl", "recorded as the run's initiator")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}
