package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/revenue-reconciliation/internal/data/memory"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

const (
	glSheet       = "GL"
	forecastSheet = "Forecast"
	dateLayout    = "2006-01-02"
)

type simulateOptions struct {
	workbook string
	period   string
	mode     string
	minScore float64
}

// workbookData is one period's entries and lines read from a spreadsheet
type workbookData struct {
	entries []*glentry.Entry
	lines   []*forecast.Line
}

func newSimulateCommand(a *app) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Dry-run reconciliation over a workbook without touching any store",
		Long: `Simulate reads GL entries and forecast lines of one period from a workbook and
reconciles them in memory. Nothing is persisted.

The workbook needs two sheets with a header row:
  GL:        Account | Amount | Reference | Posting date (YYYY-MM-DD) | Description
  Forecast:  Account | Expected amount | Reference
Amounts are in major units, for example 1500.00.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := shared.ParsePeriod(opts.period)
			if err != nil {
				return err
			}
			data, err := readWorkbook(opts.workbook, period)
			if err != nil {
				return err
			}

			cfg := reconciliation.DefaultConfig()
			if cmd.Flags().Changed("min-score") {
				cfg.MinFuzzyScore = opts.minScore
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			store := memory.NewStore()
			if err := data.load(ctx, store); err != nil {
				return err
			}
			b := NewMemoryBackend(store, memory.NewReconciliationLogRepository(), cfg, a.logger(cmd))

			result, err := b.Runner.Run(ctx, reconciliation.RunRequest{
				Period:    period.String(),
				Mode:      shared.Mode(opts.mode),
				Initiator: "reconctl-simulate",
			})
			if err != nil {
				return err
			}
			if a.opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printRunResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.workbook, "workbook", "w", "", "path to the .xlsx workbook (required)")
	cmd.Flags().StringVarP(&opts.period, "period", "p", "", "fiscal period of every row, YYYY-MM (required)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(shared.ModeBoth), "matching mode: exact, fuzzy, both")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", reconciliation.DefaultConfig().MinFuzzyScore, "minimum fuzzy score")
	_ = cmd.MarkFlagRequired("workbook")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func (d *workbookData) load(ctx context.Context, store *memory.Store) error {
	for _, e := range d.entries {
		if err := store.GLEntries().Create(ctx, e); err != nil {
			return err
		}
	}
	for _, l := range d.lines {
		if err := store.ForecastLines().Create(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func readWorkbook(path string, period shared.Period) (*workbookData, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	glRows, err := f.GetRows(glSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", glSheet, err)
	}
	fcRows, err := f.GetRows(forecastSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", forecastSheet, err)
	}

	data := &workbookData{}
	for i, row := range dataRows(glRows) {
		if isBlank(row) {
			continue
		}
		entry, err := parseGLRow(row, period)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", glSheet, i+2, err)
		}
		data.entries = append(data.entries, entry)
	}
	for i, row := range dataRows(fcRows) {
		if isBlank(row) {
			continue
		}
		line, err := parseForecastRow(row, period)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", forecastSheet, i+2, err)
		}
		data.lines = append(data.lines, line)
	}
	return data, nil
}

// dataRows drops the header row
func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseGLRow(row []string, period shared.Period) (*glentry.Entry, error) {
	amount, err := parseMinorUnits(cell(row, 1))
	if err != nil {
		return nil, err
	}

	var postingDate time.Time
	if raw := cell(row, 3); raw != "" {
		if postingDate, err = time.Parse(dateLayout, raw); err != nil {
			return nil, fmt.Errorf("invalid posting date %q: %w", raw, err)
		}
	}

	return glentry.NewEntry(period, cell(row, 0), amount, cell(row, 2), postingDate, cell(row, 4))
}

func parseForecastRow(row []string, period shared.Period) (*forecast.Line, error) {
	amount, err := parseMinorUnits(cell(row, 1))
	if err != nil {
		return nil, err
	}
	return forecast.NewLine(period, cell(row, 2), amount, cell(row, 0))
}

// parseMinorUnits converts a major-unit amount to minor units, rounding half away from zero
func parseMinorUnits(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
