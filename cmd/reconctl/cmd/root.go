// Package cmd holds the reconctl commands. Every command runs the same engine the API and
// worker use; only the backing stores differ.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/revenue-reconciliation/internal/logger"
	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type rootOptions struct {
	configName string
	output     string
	logLevel   string
}

type app struct {
	opts   *rootOptions
	opener BackendOpener
}

// NewRootCommand assembles reconctl around the given backend opener
func NewRootCommand(opener BackendOpener) *cobra.Command {
	opts := &rootOptions{}
	a := &app{opts: opts, opener: opener}

	root := &cobra.Command{
		Use:   "reconctl",
		Short: "Operate revenue reconciliation from a shell",
		Long: `reconctl runs reconciliation between GL postings and order-revenue forecast
lines, inspects account summaries and run logs, and applies manual overrides.

Examples:
  reconctl run --period 2024-04 --mode both
  reconctl summary --period 2024-04 --xlsx april.xlsx
  reconctl match --gl-entry <uuid> --forecast-line <uuid> --initiator alice
  reconctl logs --period 2024-04 --output json
  reconctl simulate --workbook april.xlsx --period 2024-04`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputText && opts.output != outputJSON {
				return fmt.Errorf("unsupported output format %q (expected text or json)", opts.output)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configName, "config", "reconctl", "config name, read as <name>.env from ./configs or the working directory")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newRunCommand(a),
		newSummaryCommand(a),
		newMatchCommand(a),
		newUnmatchCommand(a),
		newLogsCommand(a),
		newSimulateCommand(a),
	)
	return root
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	return logger.New(a.opts.logLevel, cmd.ErrOrStderr())
}

// withBackend opens the backend for one command; an interrupt cancels the context
func (a *app) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *Backend) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := a.opener(ctx, a.opts.configName, a.logger(cmd))
	if err != nil {
		return err
	}
	defer b.Close(context.WithoutCancel(ctx))

	return fn(ctx, b)
}
