package match

import (
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// Record is the pairing between one GL entry and one forecast line.
// It is the single source of truth for "is matched".
type Record struct {
	ID             uuid.UUID          `json:"id"`
	GLEntryID      uuid.UUID          `json:"gl_entry_id"`
	ForecastLineID uuid.UUID          `json:"forecast_line_id"`
	Period         shared.Period      `json:"period"` // period of the GL entry
	Method         shared.MatchMethod `json:"method"`
	Score          float64            `json:"score"`
	RunID          *uuid.UUID         `json:"run_id,omitempty"` // nil for manual matches
	CreatedBy      string             `json:"created_by"`
	CreatedAt      time.Time          `json:"created_at"`
}

// NewRecord creates a match produced by an automatic run
func NewRecord(glEntryID, forecastLineID uuid.UUID, period shared.Period, method shared.MatchMethod, score float64, runID uuid.UUID, createdBy string) *Record {
	id := runID
	return &Record{
		ID:             uuid.New(),
		GLEntryID:      glEntryID,
		ForecastLineID: forecastLineID,
		Period:         period,
		Method:         method,
		Score:          score,
		RunID:          &id,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewManualRecord creates a human-directed match, always scored 1.0
func NewManualRecord(glEntryID, forecastLineID uuid.UUID, period shared.Period, createdBy string) *Record {
	return &Record{
		ID:             uuid.New(),
		GLEntryID:      glEntryID,
		ForecastLineID: forecastLineID,
		Period:         period,
		Method:         shared.MatchMethodManual,
		Score:          1.0,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}
}

// Links reports whether the record pairs exactly these two ids
func (r *Record) Links(glEntryID, forecastLineID uuid.UUID) bool {
	return r.GLEntryID == glEntryID && r.ForecastLineID == forecastLineID
}
