package glentry

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

var (
	ErrEmptyAccountCode = errors.New("account code cannot be empty")
	ErrInvalidPeriod    = errors.New("entry period is not a valid fiscal month")
)

// Entry represents one posted general-ledger transaction
type Entry struct {
	ID                    uuid.UUID          `json:"id"`
	Period                shared.Period      `json:"period"`
	AccountCode           string             `json:"account_code"`
	Amount                int64              `json:"amount"` // Stored in cents/minor units, signed
	Reference             string             `json:"reference"`
	PostingDate           time.Time          `json:"posting_date"`
	Description           string             `json:"description"`
	MatchStatus           shared.MatchStatus `json:"match_status"`
	MatchedForecastLineID *uuid.UUID         `json:"matched_forecast_line_id,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// NewEntry creates an unmatched GL entry
func NewEntry(period shared.Period, accountCode string, amount int64, reference string, postingDate time.Time, description string) (*Entry, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	accountCode = strings.TrimSpace(accountCode)
	if accountCode == "" {
		return nil, ErrEmptyAccountCode
	}

	now := time.Now().UTC()
	return &Entry{
		ID:          uuid.New(),
		Period:      period,
		AccountCode: accountCode,
		Amount:      amount,
		Reference:   reference,
		PostingDate: postingDate,
		Description: description,
		MatchStatus: shared.MatchStatusUnmatched,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsMatched reports whether the cached status says the entry is paired
func (e *Entry) IsMatched() bool {
	return e.MatchStatus.IsMatched()
}

// Link records the pairing with a forecast line on the cached view
func (e *Entry) Link(status shared.MatchStatus, forecastLineID uuid.UUID) {
	e.MatchStatus = status
	id := forecastLineID
	e.MatchedForecastLineID = &id
	e.UpdatedAt = time.Now().UTC()
}

// Unlink resets the cached view to unmatched
func (e *Entry) Unlink() {
	e.MatchStatus = shared.MatchStatusUnmatched
	e.MatchedForecastLineID = nil
	e.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy safe to hand across goroutines
func (e *Entry) Clone() *Entry {
	c := *e
	if e.MatchedForecastLineID != nil {
		id := *e.MatchedForecastLineID
		c.MatchedForecastLineID = &id
	}
	return &c
}
