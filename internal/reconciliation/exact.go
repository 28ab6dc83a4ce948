package reconciliation

import (
	"strings"

	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

type exactKey struct {
	account string
	amount  int64
	period  shared.Period
}

// MatchExact pairs entries and lines that agree on account, amount and period, and on the
// normalized reference whenever both sides carry one. Within a key group each GL entry, oldest
// first, claims the oldest compatible forecast line still unclaimed.
func MatchExact(gls []*glentry.Entry, fcs []*forecast.Line) ([]Pair, []*glentry.Entry, []*forecast.Line) {
	gls, fcs = sortedEntries(gls), sortedLines(fcs)

	candidates := make(map[exactKey][]*forecast.Line)
	for _, fc := range fcs {
		k := exactKey{account: strings.TrimSpace(fc.AccountCode), amount: fc.ExpectedAmount, period: fc.Period}
		candidates[k] = append(candidates[k], fc)
	}

	claimed := make(map[*forecast.Line]bool)
	var pairs []Pair
	for _, gl := range gls {
		account := strings.TrimSpace(gl.AccountCode)
		if account == "" {
			continue
		}
		glRef := normalizeReference(gl.Reference)
		for _, fc := range candidates[exactKey{account: account, amount: gl.Amount, period: gl.Period}] {
			if claimed[fc] || !referencesCompatible(glRef, normalizeReference(fc.Reference)) {
				continue
			}
			claimed[fc] = true
			pairs = append(pairs, Pair{GLEntry: gl, ForecastLine: fc, Method: shared.MatchMethodExact, Score: 1.0})
			break
		}
	}

	restGL, restFC := residuals(gls, fcs, pairs)
	return pairs, restGL, restFC
}

// referencesCompatible treats a missing reference as a wildcard
func referencesCompatible(a, b string) bool {
	return a == "" || b == "" || a == b
}
