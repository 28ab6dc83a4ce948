package forecast

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

var (
	ErrEmptyAccountCode = errors.New("expected account code cannot be empty")
	ErrInvalidPeriod    = errors.New("forecast period is not a valid fiscal month")
)

// Line represents one expected-revenue line of an order forecast
type Line struct {
	ID               uuid.UUID          `json:"id"`
	Period           shared.Period      `json:"period"`
	Reference        string             `json:"reference"` // project or customer reference
	ExpectedAmount   int64              `json:"expected_amount"`
	AccountCode      string             `json:"account_code"`
	MatchStatus      shared.MatchStatus `json:"match_status"`
	MatchedGLEntryID *uuid.UUID         `json:"matched_gl_entry_id,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewLine creates an unmatched forecast line
func NewLine(period shared.Period, reference string, expectedAmount int64, accountCode string) (*Line, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	accountCode = strings.TrimSpace(accountCode)
	if accountCode == "" {
		return nil, ErrEmptyAccountCode
	}

	now := time.Now().UTC()
	return &Line{
		ID:             uuid.New(),
		Period:         period,
		Reference:      reference,
		ExpectedAmount: expectedAmount,
		AccountCode:    accountCode,
		MatchStatus:    shared.MatchStatusUnmatched,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (l *Line) IsMatched() bool {
	return l.MatchStatus.IsMatched()
}

// Link records the pairing with a GL entry on the cached view
func (l *Line) Link(status shared.MatchStatus, glEntryID uuid.UUID) {
	l.MatchStatus = status
	id := glEntryID
	l.MatchedGLEntryID = &id
	l.UpdatedAt = time.Now().UTC()
}

func (l *Line) Unlink() {
	l.MatchStatus = shared.MatchStatusUnmatched
	l.MatchedGLEntryID = nil
	l.UpdatedAt = time.Now().UTC()
}

func (l *Line) Clone() *Line {
	c := *l
	if l.MatchedGLEntryID != nil {
		id := *l.MatchedGLEntryID
		c.MatchedGLEntryID = &id
	}
	return &c
}
