package match

import (
	"time"
)

// EventType names a change to the set of active match records
type EventType string

const (
	EventTypeCreated EventType = "MATCH_CREATED"
	EventTypeRemoved EventType = "MATCH_REMOVED"
)

// Event is published downstream whenever a match record is created or removed
type Event struct {
	Type          EventType `json:"type"`
	Record        Record    `json:"record"`
	Initiator     string    `json:"initiator"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewCreatedEvent(record *Record, initiator, correlationID string) *Event {
	return &Event{
		Type:          EventTypeCreated,
		Record:        *record,
		Initiator:     initiator,
		CorrelationID: correlationID,
		OccurredAt:    time.Now().UTC(),
	}
}

// NewRemovedEvent records an unmatch or a compensation; reason tells them apart
func NewRemovedEvent(record *Record, initiator, reason, correlationID string) *Event {
	return &Event{
		Type:          EventTypeRemoved,
		Record:        *record,
		Initiator:     initiator,
		Reason:        reason,
		CorrelationID: correlationID,
		OccurredAt:    time.Now().UTC(),
	}
}
