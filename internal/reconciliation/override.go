package reconciliation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/domain/unitofwork"
)

// OverrideRequest identifies the pair a user wants to link or unlink
type OverrideRequest struct {
	GLEntryID      uuid.UUID
	ForecastLineID uuid.UUID
	Initiator      string
	CorrelationID  string
}

// OverrideHandler applies manual matches and unmatches. Each operation is a single unit of work
// and touches only the two named entities.
type OverrideHandler struct {
	uow    unitofwork.UnitOfWork
	logger *slog.Logger
}

func NewOverrideHandler(uow unitofwork.UnitOfWork, logger *slog.Logger) *OverrideHandler {
	return &OverrideHandler{
		uow:    uow,
		logger: logger.With("component", "override_handler"),
	}
}

// ManualMatch links a GL entry with a forecast line. It fails with match.ErrAlreadyMatched when
// either side already has an active record, including one created concurrently.
func (h *OverrideHandler) ManualMatch(ctx context.Context, req OverrideRequest) (*match.Record, error) {
	logger := h.requestLogger(req)

	var created *match.Record
	err := h.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		gl, err := repos.GLEntries.GetByID(ctx, req.GLEntryID)
		if err != nil {
			return err
		}
		fc, err := repos.ForecastLines.GetByID(ctx, req.ForecastLineID)
		if err != nil {
			return err
		}

		alreadyMatched := match.ErrAlreadyMatched{GLEntryID: gl.ID, ForecastLineID: fc.ID}
		if rec, err := repos.Matches.GetByGLEntryID(ctx, gl.ID); err != nil {
			return err
		} else if rec != nil {
			return alreadyMatched
		}
		if rec, err := repos.Matches.GetByForecastLineID(ctx, fc.ID); err != nil {
			return err
		} else if rec != nil {
			return alreadyMatched
		}

		rec := match.NewManualRecord(gl.ID, fc.ID, gl.Period, req.Initiator)
		if err := linkEntities(ctx, repos, rec, req.Initiator, req.CorrelationID); err != nil {
			if errors.Is(err, shared.ErrStatusConflict{}) {
				return alreadyMatched
			}
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		err = classify("manual match", err)
		logOverrideFailure(logger, "Manual match rejected", err)
		return nil, err
	}

	logger.Info("Manual match created", "match_record_id", created.ID.String())
	return created, nil
}

// Unmatch removes the active record linking exactly the requested pair and returns it
func (h *OverrideHandler) Unmatch(ctx context.Context, req OverrideRequest) (*match.Record, error) {
	logger := h.requestLogger(req)

	var removed *match.Record
	err := h.uow.Do(ctx, func(ctx context.Context, repos unitofwork.Repositories) error {
		notMatched := match.ErrNotMatched{GLEntryID: req.GLEntryID, ForecastLineID: req.ForecastLineID}

		rec, err := repos.Matches.GetByGLEntryID(ctx, req.GLEntryID)
		if err != nil {
			return err
		}
		if rec == nil || !rec.Links(req.GLEntryID, req.ForecastLineID) {
			return notMatched
		}

		if err := unlinkEntities(ctx, repos, rec, req.Initiator, removalReasonUnmatch, req.CorrelationID); err != nil {
			if errors.Is(err, shared.ErrStatusConflict{}) {
				return notMatched
			}
			return err
		}
		removed = rec
		return nil
	})
	if err != nil {
		err = classify("unmatch", err)
		logOverrideFailure(logger, "Unmatch rejected", err)
		return nil, err
	}

	logger.Info("Match removed", "match_record_id", removed.ID.String(), "method", string(removed.Method))
	return removed, nil
}

func (h *OverrideHandler) requestLogger(req OverrideRequest) *slog.Logger {
	logger := h.logger.With(
		"gl_entry_id", req.GLEntryID.String(),
		"forecast_line_id", req.ForecastLineID.String(),
		"initiator", req.Initiator,
	)
	if req.CorrelationID != "" {
		logger = logger.With("correlation_id", req.CorrelationID)
	}
	return logger
}

func logOverrideFailure(logger *slog.Logger, msg string, err error) {
	if errors.Is(err, ErrStoreFailure{}) {
		logger.Error(msg, "error", err)
		return
	}
	logger.Warn(msg, "error", err)
}
