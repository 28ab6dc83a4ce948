package memory

import (
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/outbox"
)

func newTestMessage(rec *match.Record) (*outbox.Message, error) {
	return outbox.NewMessage(match.NewCreatedEvent(rec, "tester", ""))
}
