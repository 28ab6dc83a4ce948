package reconciliation

import (
	"context"
	"fmt"

	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/outbox"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/domain/unitofwork"
)

// Reasons attached to MATCH_REMOVED events
const (
	removalReasonUnmatch      = "unmatch"
	removalReasonCompensation = "compensation"
)

// linkEntities moves both entities from unmatched to the record's status, stores the record
// and queues its MATCH_CREATED event. Callers run it inside a unit of work.
func linkEntities(ctx context.Context, repos unitofwork.Repositories, rec *match.Record, initiator, correlationID string) error {
	status := rec.Method.Status()
	forecastLineID, glEntryID := rec.ForecastLineID, rec.GLEntryID

	if err := repos.GLEntries.UpdateMatchStatus(ctx, rec.GLEntryID, shared.MatchStatusUnmatched, status, &forecastLineID); err != nil {
		return err
	}
	if err := repos.ForecastLines.UpdateMatchStatus(ctx, rec.ForecastLineID, shared.MatchStatusUnmatched, status, &glEntryID); err != nil {
		return err
	}
	if err := repos.Matches.Create(ctx, rec); err != nil {
		return err
	}
	return queueEvent(ctx, repos, match.NewCreatedEvent(rec, initiator, correlationID))
}

// unlinkEntities removes the record, resets both entities to unmatched and queues a MATCH_REMOVED event
func unlinkEntities(ctx context.Context, repos unitofwork.Repositories, rec *match.Record, initiator, reason, correlationID string) error {
	status := rec.Method.Status()

	if err := repos.Matches.Delete(ctx, rec.GLEntryID, rec.ForecastLineID); err != nil {
		return err
	}
	if err := repos.GLEntries.UpdateMatchStatus(ctx, rec.GLEntryID, status, shared.MatchStatusUnmatched, nil); err != nil {
		return err
	}
	if err := repos.ForecastLines.UpdateMatchStatus(ctx, rec.ForecastLineID, status, shared.MatchStatusUnmatched, nil); err != nil {
		return err
	}
	return queueEvent(ctx, repos, match.NewRemovedEvent(rec, initiator, reason, correlationID))
}

func queueEvent(ctx context.Context, repos unitofwork.Repositories, event *match.Event) error {
	msg, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return repos.Outbox.Create(ctx, msg)
}
