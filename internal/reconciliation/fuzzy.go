package reconciliation

import (
	"math"
	"sort"

	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// maxFuzzyScore keeps fuzzy matches distinguishable from exact ones
const maxFuzzyScore = 0.9999

type cell struct {
	gl         *glentry.Entry
	fc         *forecast.Line
	score      float64
	amountDiff int64
}

// MatchFuzzy scores every residual GL entry against every residual forecast line and claims
// the best remaining cell greedily until no cell at or above minScore is left. The threshold
// applies to the unrounded score; the rounded score is reported and ordered on.
// Ties resolve on smaller amount difference, then lower GL entry id, then lower forecast line id.
func MatchFuzzy(gls []*glentry.Entry, fcs []*forecast.Line, scorer *Scorer, minScore float64) ([]Pair, []*glentry.Entry, []*forecast.Line) {
	gls, fcs = sortedEntries(gls), sortedLines(fcs)

	var cells []cell
	for _, gl := range gls {
		for _, fc := range fcs {
			if !accountsCompatible(gl.AccountCode, fc.AccountCode) {
				continue
			}
			raw := scorer.Score(gl, fc)
			if raw <= 0 || raw < minScore {
				continue
			}
			cells = append(cells, cell{gl: gl, fc: fc, score: roundScore(raw), amountDiff: absDiff(gl.Amount, fc.ExpectedAmount)})
		}
	}

	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.amountDiff != b.amountDiff {
			return a.amountDiff < b.amountDiff
		}
		if a.gl.ID != b.gl.ID {
			return a.gl.ID.String() < b.gl.ID.String()
		}
		return a.fc.ID.String() < b.fc.ID.String()
	})

	claimedGL := make(map[*glentry.Entry]bool)
	claimedFC := make(map[*forecast.Line]bool)
	var pairs []Pair
	for _, c := range cells {
		if claimedGL[c.gl] || claimedFC[c.fc] {
			continue
		}
		claimedGL[c.gl], claimedFC[c.fc] = true, true
		pairs = append(pairs, Pair{GLEntry: c.gl, ForecastLine: c.fc, Method: shared.MatchMethodFuzzy, Score: c.score})
	}

	restGL, restFC := residuals(gls, fcs, pairs)
	return pairs, restGL, restFC
}

func roundScore(score float64) float64 {
	return math.Min(maxFuzzyScore, math.Round(score*10000)/10000)
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
