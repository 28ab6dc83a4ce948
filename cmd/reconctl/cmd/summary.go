package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type summaryOptions struct {
	period   string
	xlsxPath string
}

func newSummaryCommand(a *app) *cobra.Command {
	opts := &summaryOptions{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show matched and unmatched totals per account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *Backend) error {
				summary, err := b.Summaries.AccountSummary(ctx, opts.period)
				if err != nil {
					return err
				}

				if opts.xlsxPath != "" {
					f, err := os.Create(opts.xlsxPath)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", opts.xlsxPath, err)
					}
					if err := summary.WriteXLSX(f); err != nil {
						_ = f.Close()
						return err
					}
					if err := f.Close(); err != nil {
						return fmt.Errorf("failed to write %s: %w", opts.xlsxPath, err)
					}
				}

				if a.opts.output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), summary)
				}
				printSummary(cmd.OutOrStdout(), summary)
				if opts.xlsxPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\nWorkbook written to %s\n", opts.xlsxPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.period, "period", "p", "", "fiscal period, YYYY-MM (required)")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "also write the summary to this workbook")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}
