package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/revenue-reconciliation/internal/config"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// ReconciliationRequestProducer schedules reconciliation runs for the worker
type ReconciliationRequestProducer struct {
	logger  *slog.Logger
	writer  KafkaWriter
	topic   string
	timeout time.Duration
}

var _ MessagePublisher = (*ReconciliationRequestProducer)(nil)

// NewReconciliationRequestProducer ensures the request topic exists
func NewReconciliationRequestProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ReconciliationRequestProducer, error) {
	if cfg.RequestTopic == "" {
		return nil, fmt.Errorf("kafka reconciliation request topic is not configured")
	}

	writer, err := newTopicWriter(logger, cfg, cfg.RequestTopic, kafka.RequireOne)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciliation request producer: %w", err)
	}

	return &ReconciliationRequestProducer{
		logger:  logger,
		writer:  writer,
		topic:   cfg.RequestTopic,
		timeout: cfg.MaxWait,
	}, nil
}

// Publish marshals value to JSON and writes it under key
func (p *ReconciliationRequestProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal reconciliation request: %w", err)
	}

	ctx, cancel := writerContext(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: jsonValue}); err != nil {
		p.logger.Error("Failed to publish reconciliation request",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish reconciliation request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published reconciliation request", "topic", p.topic, "key", key)
	return nil
}

// PublishRequest keys the request by period so runs for one period stay ordered on a partition
func (p *ReconciliationRequestProducer) PublishRequest(ctx context.Context, req *shared.ReconciliationRequest) error {
	return p.Publish(ctx, req.Period, req)
}

func (p *ReconciliationRequestProducer) Close() error {
	p.logger.Info("Closing reconciliation request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
