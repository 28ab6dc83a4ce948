package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/revenue-reconciliation/internal/domain/reconlog"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

const (
	// ReconciliationLogCollectionName is the name of the reconciliation log collection in MongoDB
	ReconciliationLogCollectionName = "reconciliation_logs"
)

// logDocument is the stored shape of a reconlog.Log; the run id doubles as _id so a run can be logged once
type logDocument struct {
	RunID         string            `bson:"_id"`
	Period        string            `bson:"period"`
	Mode          string            `bson:"mode"`
	Counts        reconlog.Counts   `bson:"counts"`
	Initiator     string            `bson:"initiator"`
	Outcome       string            `bson:"outcome"`
	FailureReason string            `bson:"failure_reason,omitempty"`
	Settings      reconlog.Settings `bson:"settings"`
	CorrelationID string            `bson:"correlation_id,omitempty"`
	StartedAt     time.Time         `bson:"started_at"`
	CreatedAt     time.Time         `bson:"created_at"`
}

func toDocument(log *reconlog.Log) logDocument {
	return logDocument{
		RunID:         log.RunID.String(),
		Period:        log.Period.String(),
		Mode:          string(log.Mode),
		Counts:        log.Counts,
		Initiator:     log.Initiator,
		Outcome:       string(log.Outcome),
		FailureReason: log.FailureReason,
		Settings:      log.Settings,
		CorrelationID: log.CorrelationID,
		StartedAt:     log.StartedAt,
		CreatedAt:     log.CreatedAt,
	}
}

func (d logDocument) toLog() (*reconlog.Log, error) {
	runID, err := uuid.Parse(d.RunID)
	if err != nil {
		return nil, fmt.Errorf("stored run id %q is corrupt: %w", d.RunID, err)
	}
	period, err := shared.ParsePeriod(d.Period)
	if err != nil {
		return nil, fmt.Errorf("stored period %q is corrupt: %w", d.Period, err)
	}
	return &reconlog.Log{
		RunID:         runID,
		Period:        period,
		Mode:          shared.Mode(d.Mode),
		Counts:        d.Counts,
		Initiator:     d.Initiator,
		Outcome:       shared.RunOutcome(d.Outcome),
		FailureReason: d.FailureReason,
		Settings:      d.Settings,
		CorrelationID: d.CorrelationID,
		StartedAt:     d.StartedAt,
		CreatedAt:     d.CreatedAt,
	}, nil
}

// ReconciliationLogRepository implements reconlog.Repository for MongoDB
type ReconciliationLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReconciliationLogRepository creates a new MongoDB reconciliation log repository
func NewReconciliationLogRepository(logger *slog.Logger, db *mongo.Database) *ReconciliationLogRepository {
	return &ReconciliationLogRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the period listing index; safe to call on every start
func (r *ReconciliationLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ReconciliationLogCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "period", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("period_created_at"),
	})
	if err != nil {
		r.logger.Error("Failed to create reconciliation log indexes", "error", err)
		return fmt.Errorf("failed to create reconciliation log indexes: %w", err)
	}
	return nil
}

// Append stores the log of one run.
// Returns ErrDuplicateLog if the run has already been logged.
func (r *ReconciliationLogRepository) Append(ctx context.Context, log *reconlog.Log) error {
	collection := r.db.Collection(ReconciliationLogCollectionName)

	_, err := collection.InsertOne(ctx, toDocument(log))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reconlog.ErrDuplicateLog{RunID: log.RunID}
		}
		r.logger.Error("Failed to append reconciliation log",
			"run_id", log.RunID.String(),
			"error", err)
		return fmt.Errorf("failed to append reconciliation log: %w", err)
	}

	return nil
}

// GetByRunID returns ErrLogNotFound if the run was never logged
func (r *ReconciliationLogRepository) GetByRunID(ctx context.Context, runID uuid.UUID) (*reconlog.Log, error) {
	collection := r.db.Collection(ReconciliationLogCollectionName)

	var doc logDocument
	err := collection.FindOne(ctx, bson.M{"_id": runID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reconlog.ErrLogNotFound{RunID: runID}
		}
		r.logger.Error("Failed to get reconciliation log",
			"run_id", runID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get reconciliation log: %w", err)
	}

	return doc.toLog()
}

// ListByPeriod retrieves paginated logs for a period, newest first
func (r *ReconciliationLogRepository) ListByPeriod(ctx context.Context, period shared.Period, limit, offset int) ([]*reconlog.Log, error) {
	collection := r.db.Collection(ReconciliationLogCollectionName)

	filter := bson.M{"period": period.String()}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list reconciliation logs",
			"period", period.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list reconciliation logs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []logDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode reconciliation logs",
			"period", period.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode reconciliation logs: %w", err)
	}

	logs := make([]*reconlog.Log, 0, len(docs))
	for _, doc := range docs {
		log, err := doc.toLog()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// CountByPeriod counts the logs recorded for a period
func (r *ReconciliationLogRepository) CountByPeriod(ctx context.Context, period shared.Period) (int64, error) {
	collection := r.db.Collection(ReconciliationLogCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"period": period.String()})
	if err != nil {
		r.logger.Error("Failed to count reconciliation logs",
			"period", period.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count reconciliation logs: %w", err)
	}

	return count, nil
}
