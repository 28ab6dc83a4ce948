package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/shopspring/decimal"
)

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatMinor renders minor units as a two-decimal amount
func formatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func printRunResult(w io.Writer, result *reconciliation.RunResult) {
	fmt.Fprintf(w, "=== RECONCILIATION %s (%s) ===\n", result.Period.String(), result.Mode)
	fmt.Fprintf(w, "Run ID:             %s\n", result.RunID)
	fmt.Fprintf(w, "Outcome:            %s\n", result.Outcome)
	fmt.Fprintf(w, "Matched exact:      %d\n", result.MatchedExact)
	fmt.Fprintf(w, "Matched fuzzy:      %d\n", result.MatchedFuzzy)
	fmt.Fprintf(w, "Already matched:    %d\n", result.AlreadyMatched)
	fmt.Fprintf(w, "Unmatched GL:       %d\n", result.UnmatchedGL)
	fmt.Fprintf(w, "Unmatched forecast: %d\n", result.UnmatchedForecast)

	if len(result.Pairs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n=== PAIRS ===\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GL ENTRY\tFORECAST LINE\tMETHOD\tSCORE")
	for _, p := range result.Pairs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\n", p.GLEntryID, p.ForecastLineID, p.Method, p.Score)
	}
	tw.Flush()
}

func printSummary(w io.Writer, summary *reconciliation.AccountSummary) {
	fmt.Fprintf(w, "=== ACCOUNT SUMMARY %s ===\n", summary.Period.String())
	if len(summary.Accounts) == 0 {
		fmt.Fprintln(w, "No GL entries in period")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ACCOUNT\tMATCHED\tUNMATCHED\tMATCHED #\tUNMATCHED #\t")
	for _, code := range summary.SortedAccounts() {
		t := summary.Accounts[code]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t\n", code, formatMinor(t.MatchedAmount), formatMinor(t.UnmatchedAmount), t.MatchedCount, t.UnmatchedCount)
	}
	tw.Flush()
}

func printRecord(w io.Writer, action string, rec *match.Record) {
	fmt.Fprintf(w, "%s: gl entry %s <-> forecast line %s (method %s, score %.4f)\n",
		action, rec.GLEntryID, rec.ForecastLineID, rec.Method, rec.Score)
}

func printLogs(w io.Writer, logs []*reconlog.Log, total int64) {
	fmt.Fprintf(w, "=== RECONCILIATION LOGS (%d of %d) ===\n", len(logs), total)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tRUN ID\tMODE\tOUTCOME\tEXACT\tFUZZY\tINITIATOR")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			l.CreatedAt.Format("2006-01-02 15:04:05"), l.RunID, l.Mode, l.Outcome,
			l.Counts.MatchedExact, l.Counts.MatchedFuzzy, l.Initiator)
	}
	tw.Flush()
}
