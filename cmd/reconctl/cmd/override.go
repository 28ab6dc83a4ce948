package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/spf13/cobra"
)

type overrideOptions struct {
	glEntryID      string
	forecastLineID string
	initiator      string
}

func (o *overrideOptions) request() (reconciliation.OverrideRequest, error) {
	glEntryID, err := uuid.Parse(o.glEntryID)
	if err != nil {
		return reconciliation.OverrideRequest{}, fmt.Errorf("invalid --gl-entry %q: %w", o.glEntryID, err)
	}
	forecastLineID, err := uuid.Parse(o.forecastLineID)
	if err != nil {
		return reconciliation.OverrideRequest{}, fmt.Errorf("invalid --forecast-line %q: %w", o.forecastLineID, err)
	}
	return reconciliation.OverrideRequest{
		GLEntryID:      glEntryID,
		ForecastLineID: forecastLineID,
		Initiator:      o.initiator,
	}, nil
}

func (o *overrideOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.glEntryID, "gl-entry", "", "GL entry id (required)")
	cmd.Flags().StringVar(&o.forecastLineID, "forecast-line", "", "forecast line id (required)")
	cmd.Flags().StringVar(&o.initiator, "initiator", "reconctl", "recorded as the override's author")
	_ = cmd.MarkFlagRequired("gl-entry")
	_ = cmd.MarkFlagRequired("forecast-line")
}

type overrideFunc func(ctx context.Context, b *Backend, req reconciliation.OverrideRequest) (*match.Record, error)

func newOverrideCommand(a *app, use, short, action string, apply overrideFunc) *cobra.Command {
	opts := &overrideOptions{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				rec, err := apply(ctx, b, req)
				if err != nil {
					return err
				}
				if a.opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), rec)
				}
				printRecord(cmd.OutOrStdout(), action, rec)
				return nil
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newMatchCommand(a *app) *cobra.Command {
	return newOverrideCommand(a, "match", "Manually link a GL entry with a forecast line", "Matched",
		func(ctx context.Context, b *Backend, req reconciliation.OverrideRequest) (*match.Record, error) {
			return b.Overrides.ManualMatch(ctx, req)
		})
}

func newUnmatchCommand(a *app) *cobra.Command {
	return newOverrideCommand(a, "unmatch", "Remove the match between a GL entry and a forecast line", "Unmatched",
		func(ctx context.Context, b *Backend, req reconciliation.OverrideRequest) (*match.Record, error) {
			return b.Overrides.Unmatch(ctx, req)
		})
}
