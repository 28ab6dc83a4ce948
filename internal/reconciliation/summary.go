package reconciliation

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// AccountTotals aggregates the GL entries of one account
type AccountTotals struct {
	MatchedAmount   int64 `json:"matched_amount"`
	UnmatchedAmount int64 `json:"unmatched_amount"`
	MatchedCount    int   `json:"matched_count"`
	UnmatchedCount  int   `json:"unmatched_count"`
}

type AccountSummary struct {
	Period   shared.Period            `json:"period"`
	Accounts map[string]AccountTotals `json:"accounts"`
}

// SortedAccounts returns the account codes in ascending order
func (s *AccountSummary) SortedAccounts() []string {
	codes := make([]string, 0, len(s.Accounts))
	for code := range s.Accounts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SummaryAggregator computes matched and unmatched totals per account. Nothing is cached.
type SummaryAggregator struct {
	glEntries glentry.Repository
	matches   match.Repository
	logger    *slog.Logger
}

func NewSummaryAggregator(glEntries glentry.Repository, matches match.Repository, logger *slog.Logger) *SummaryAggregator {
	return &SummaryAggregator{
		glEntries: glEntries,
		matches:   matches,
		logger:    logger.With("component", "summary_aggregator"),
	}
}

// AccountSummary returns per-account totals for the period. Whether an entry counts as matched
// is decided by its active match record, not by the cached status.
func (a *SummaryAggregator) AccountSummary(ctx context.Context, periodValue string) (*AccountSummary, error) {
	period, err := shared.ParsePeriod(periodValue)
	if err != nil {
		return nil, err
	}

	entries, err := a.glEntries.ListByPeriod(ctx, period)
	if err != nil {
		a.logger.Error("Failed to list gl entries", "period", period.String(), "error", err)
		return nil, ErrStoreFailure{Op: "list gl entries", Err: err}
	}
	records, err := a.matches.ListByPeriod(ctx, period)
	if err != nil {
		a.logger.Error("Failed to list match records", "period", period.String(), "error", err)
		return nil, ErrStoreFailure{Op: "list match records", Err: err}
	}

	matched := make(map[uuid.UUID]struct{}, len(records))
	for _, rec := range records {
		matched[rec.GLEntryID] = struct{}{}
	}

	summary := &AccountSummary{Period: period, Accounts: make(map[string]AccountTotals)}
	for _, gl := range entries {
		totals := summary.Accounts[gl.AccountCode]
		if _, ok := matched[gl.ID]; ok {
			totals.MatchedAmount += gl.Amount
			totals.MatchedCount++
		} else {
			totals.UnmatchedAmount += gl.Amount
			totals.UnmatchedCount++
		}
		summary.Accounts[gl.AccountCode] = totals
	}
	return summary, nil
}
