package reconciliation

import (
	"sort"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// Pair is a proposed or committed match produced by a matcher
type Pair struct {
	GLEntry      *glentry.Entry
	ForecastLine *forecast.Line
	Method       shared.MatchMethod
	Score        float64
}

// PairView is the externally visible form of a pair
type PairView struct {
	GLEntryID      uuid.UUID          `json:"gl_entry_id"`
	ForecastLineID uuid.UUID          `json:"forecast_line_id"`
	Method         shared.MatchMethod `json:"method"`
	Score          float64            `json:"score"`
}

func (p Pair) View() PairView {
	return PairView{
		GLEntryID:      p.GLEntry.ID,
		ForecastLineID: p.ForecastLine.ID,
		Method:         p.Method,
		Score:          p.Score,
	}
}

// sortedEntries returns a copy ordered by (CreatedAt, ID) so matching never depends on input order
func sortedEntries(entries []*glentry.Entry) []*glentry.Entry {
	out := append([]*glentry.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func sortedLines(lines []*forecast.Line) []*forecast.Line {
	out := append([]*forecast.Line(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// residuals drops claimed entities while keeping the (CreatedAt, ID) order
func residuals(gls []*glentry.Entry, fcs []*forecast.Line, pairs []Pair) ([]*glentry.Entry, []*forecast.Line) {
	usedGL := make(map[uuid.UUID]struct{}, len(pairs))
	usedFC := make(map[uuid.UUID]struct{}, len(pairs))
	for _, p := range pairs {
		usedGL[p.GLEntry.ID] = struct{}{}
		usedFC[p.ForecastLine.ID] = struct{}{}
	}

	restGL := make([]*glentry.Entry, 0, len(gls)-len(pairs))
	for _, gl := range gls {
		if _, ok := usedGL[gl.ID]; !ok {
			restGL = append(restGL, gl)
		}
	}
	restFC := make([]*forecast.Line, 0, len(fcs)-len(pairs))
	for _, fc := range fcs {
		if _, ok := usedFC[fc.ID]; !ok {
			restFC = append(restFC, fc)
		}
	}
	return restGL, restFC
}
