package handler

import (
	"time"

	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/reconlog"
)

// ExecuteRequest asks for a reconciliation run over one period.
// Period and mode are validated by the engine so their errors carry domain codes.
type ExecuteRequest struct {
	Period    string `json:"period" binding:"required"`
	Mode      string `json:"mode"`
	Initiator string `json:"initiator"`
}

// OverrideRequest names the GL entry and forecast line to link or unlink
type OverrideRequest struct {
	GLEntryID      string `json:"gl_entry_id" binding:"required,uuid"`
	ForecastLineID string `json:"forecast_line_id" binding:"required,uuid"`
	Initiator      string `json:"initiator"`
}

// PeriodQuery carries the period of read endpoints
type PeriodQuery struct {
	Period string `form:"period" binding:"required"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// MatchRecordResponse represents a match record in API responses
type MatchRecordResponse struct {
	ID             string  `json:"id"`
	GLEntryID      string  `json:"gl_entry_id"`
	ForecastLineID string  `json:"forecast_line_id"`
	Period         string  `json:"period"`
	Method         string  `json:"method"`
	Score          float64 `json:"score"`
	RunID          string  `json:"run_id,omitempty"`
	CreatedBy      string  `json:"created_by"`
	CreatedAt      string  `json:"created_at"`
}

// ScheduleResponse acknowledges a queued reconciliation request
type ScheduleResponse struct {
	RequestID string `json:"request_id"`
	Period    string `json:"period"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
}

// ReconciliationLogResponse represents one run log in API responses
type ReconciliationLogResponse struct {
	RunID         string          `json:"run_id"`
	Period        string          `json:"period"`
	Mode          string          `json:"mode"`
	Outcome       string          `json:"outcome"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Initiator     string          `json:"initiator"`
	Counts        reconlog.Counts `json:"counts"`
	DurationMs    int64           `json:"duration_ms"`
	CreatedAt     string          `json:"created_at"`
}

func mapMatchRecordToResponse(rec *match.Record) MatchRecordResponse {
	response := MatchRecordResponse{
		ID:             rec.ID.String(),
		GLEntryID:      rec.GLEntryID.String(),
		ForecastLineID: rec.ForecastLineID.String(),
		Period:         rec.Period.String(),
		Method:         string(rec.Method),
		Score:          rec.Score,
		CreatedBy:      rec.CreatedBy,
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.RunID != nil {
		response.RunID = rec.RunID.String()
	}
	return response
}

func mapLogToResponse(l *reconlog.Log) ReconciliationLogResponse {
	return ReconciliationLogResponse{
		RunID:         l.RunID.String(),
		Period:        l.Period.String(),
		Mode:          string(l.Mode),
		Outcome:       string(l.Outcome),
		FailureReason: l.FailureReason,
		Initiator:     l.Initiator,
		Counts:        l.Counts,
		DurationMs:    l.Duration().Milliseconds(),
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
	}
}
