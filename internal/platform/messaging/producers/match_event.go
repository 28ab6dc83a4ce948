package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/revenue-reconciliation/internal/config"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/segmentio/kafka-go"
)

const (
	headerEventType     = "event-type"
	headerCorrelationID = "correlation-id"
)

// MatchEventProducer relays MATCH_CREATED and MATCH_REMOVED events downstream
type MatchEventProducer struct {
	logger  *slog.Logger
	writer  KafkaWriter
	topic   string
	timeout time.Duration
}

func NewMatchEventProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*MatchEventProducer, error) {
	if cfg.MatchEventTopic == "" {
		return nil, fmt.Errorf("kafka match event topic is not configured")
	}

	writer, err := newTopicWriter(logger, cfg, cfg.MatchEventTopic, kafka.RequireAll)
	if err != nil {
		return nil, fmt.Errorf("failed to create match event producer: %w", err)
	}

	return &MatchEventProducer{
		logger:  logger,
		writer:  writer,
		topic:   cfg.MatchEventTopic,
		timeout: cfg.MaxWait,
	}, nil
}

// PublishEvent keys events by GL entry id so a created/removed pair for one entry keeps its order
func (p *MatchEventProducer) PublishEvent(ctx context.Context, event *match.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal match event: %w", err)
	}

	key := event.Record.GLEntryID.String()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(event.Type)},
			{Key: headerCorrelationID, Value: []byte(event.CorrelationID)},
		},
	}

	ctx, cancel := writerContext(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish match event",
			"topic", p.topic,
			"key", key,
			"event_type", string(event.Type),
			"error", err,
		)
		return fmt.Errorf("failed to publish match event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published match event", "topic", p.topic, "key", key, "event_type", string(event.Type))
	return nil
}

func (p *MatchEventProducer) Close() error {
	p.logger.Info("Closing match event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
