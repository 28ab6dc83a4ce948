package reconciliation

import (
	"math"
	"strings"
	"unicode"

	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// tokenSimilarityThreshold is the Levenshtein ratio above which two reference tokens count as the same word
const tokenSimilarityThreshold = 0.85

// ScoreBreakdown explains how a fuzzy score was composed
type ScoreBreakdown struct {
	AccountMatch bool    `json:"account_match"`
	Amount       float64 `json:"amount"`
	Reference    float64 `json:"reference"`
	Date         float64 `json:"date"`
	Total        float64 `json:"total"`
}

// Scorer computes the similarity between one GL entry and one forecast line.
// It is pure and safe for concurrent use.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score returns the weighted similarity in [0,1]
func (s *Scorer) Score(gl *glentry.Entry, fc *forecast.Line) float64 {
	return s.Breakdown(gl, fc).Total
}

// Breakdown returns every sub-score. Mismatched or missing account codes zero the total.
func (s *Scorer) Breakdown(gl *glentry.Entry, fc *forecast.Line) ScoreBreakdown {
	b := ScoreBreakdown{
		AccountMatch: accountsCompatible(gl.AccountCode, fc.AccountCode),
		Amount:       amountCloseness(gl.Amount, fc.ExpectedAmount),
		Reference:    referenceSimilarity(gl.Reference, fc.Reference),
		Date:         dateProximity(gl, fc, s.cfg.DateWindowMonths),
	}
	if !b.AccountMatch {
		return b
	}

	total := s.cfg.AmountWeight*b.Amount + s.cfg.ReferenceWeight*b.Reference + s.cfg.DateWeight*b.Date
	b.Total = math.Max(0, math.Min(1, total))
	return b
}

func accountsCompatible(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && a == b
}

// amountCloseness is 1 - min(1, |gl - fc| / max(1, |fc|))
func amountCloseness(glAmount, fcAmount int64) float64 {
	one := decimal.NewFromInt(1)
	expected := decimal.NewFromInt(fcAmount)

	diff := decimal.NewFromInt(glAmount).Sub(expected).Abs()
	denominator := decimal.Max(one, expected.Abs())
	ratio := decimal.Min(one, diff.Div(denominator))

	return one.Sub(ratio).InexactFloat64()
}

// referenceTokens upper-cases a reference and splits it on anything that is not a letter or digit
func referenceTokens(reference string) []string {
	fields := strings.FieldsFunc(strings.ToUpper(reference), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// normalizeReference renders the token form used for exact reference comparison
func normalizeReference(reference string) string {
	return strings.Join(referenceTokens(reference), " ")
}

func tokensSimilar(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return float64(total-distance)/float64(total) >= tokenSimilarityThreshold
}

// countOverlap counts tokens of from that have a similar token in to
func countOverlap(from, to []string) int {
	n := 0
	for _, f := range from {
		for _, t := range to {
			if tokensSimilar(f, t) {
				n++
				break
			}
		}
	}
	return n
}

// referenceSimilarity is a Dice-style token overlap ratio that tolerates typos.
// A missing reference on either side scores 0.
func referenceSimilarity(a, b string) float64 {
	ta, tb := referenceTokens(a), referenceTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	overlap := countOverlap(ta, tb)
	if reverse := countOverlap(tb, ta); reverse < overlap {
		overlap = reverse
	}
	return 2 * float64(overlap) / float64(len(ta)+len(tb))
}

// dateProximity is 1 inside the forecast month and decays linearly to 0 past the window.
// Entries without a posting date fall back to their fiscal period.
func dateProximity(gl *glentry.Entry, fc *forecast.Line, windowMonths int) float64 {
	posted := gl.Period
	if !gl.PostingDate.IsZero() {
		posted = shared.PeriodOf(gl.PostingDate)
	}
	if !posted.Valid() || !fc.Period.Valid() {
		return 0
	}

	distance := posted.MonthsBetween(fc.Period)
	if distance == 0 {
		return 1
	}
	if distance > windowMonths {
		return 0
	}
	return 1 - float64(distance)/float64(windowMonths+1)
}
