package shared

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationRequest defines a Kafka message asking the worker to reconcile a period
type ReconciliationRequest struct {
	RequestID     uuid.UUID `json:"request_id"`
	Period        string    `json:"period"`
	Mode          Mode      `json:"mode"`
	Initiator     string    `json:"initiator"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}
