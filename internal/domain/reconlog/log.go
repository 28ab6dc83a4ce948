package reconlog

import (
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// Counts summarises what a reconciliation run saw and did
type Counts struct {
	MatchedExact      int `json:"matched_exact" bson:"matched_exact"`
	MatchedFuzzy      int `json:"matched_fuzzy" bson:"matched_fuzzy"`
	AlreadyMatched    int `json:"already_matched" bson:"already_matched"`
	UnmatchedGL       int `json:"unmatched_gl" bson:"unmatched_gl"`
	UnmatchedForecast int `json:"unmatched_forecast" bson:"unmatched_forecast"`
}

// Settings snapshots the matching configuration in effect for a run
type Settings struct {
	AmountWeight     float64 `json:"amount_weight" bson:"amount_weight"`
	ReferenceWeight  float64 `json:"reference_weight" bson:"reference_weight"`
	DateWeight       float64 `json:"date_weight" bson:"date_weight"`
	DateWindowMonths int     `json:"date_window_months" bson:"date_window_months"`
	MinFuzzyScore    float64 `json:"min_fuzzy_score" bson:"min_fuzzy_score"`
	BatchSize        int     `json:"batch_size" bson:"batch_size"`
}

// Log is the immutable audit row written once per reconciliation run
type Log struct {
	RunID         uuid.UUID         `json:"run_id"`
	Period        shared.Period     `json:"period"`
	Mode          shared.Mode       `json:"mode"`
	Counts        Counts            `json:"counts"`
	Initiator     string            `json:"initiator"`
	Outcome       shared.RunOutcome `json:"outcome"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Settings      Settings          `json:"settings"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	StartedAt     time.Time         `json:"started_at"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Duration is the wall time between run start and log creation
func (l *Log) Duration() time.Duration {
	return l.CreatedAt.Sub(l.StartedAt)
}
