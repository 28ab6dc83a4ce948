package memory

import (
	"context"
	"sort"
	"time"

	"github.com/revenue-reconciliation/internal/domain/outbox"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// OutboxRepository implements outbox.Repository over the store
type OutboxRepository struct {
	v view
}

var _ outbox.Repository = (*OutboxRepository)(nil)

func cloneMessage(m *outbox.Message) *outbox.Message {
	c := *m
	c.Payload = append([]byte(nil), m.Payload...)
	if m.LastAttemptAt != nil {
		t := *m.LastAttemptAt
		c.LastAttemptAt = &t
	}
	return &c
}

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	return r.v.write(func(s *state) error {
		s.nextOutboxID++
		message.ID = s.nextOutboxID
		s.outbox[message.ID] = cloneMessage(message)
		return nil
	})
}

func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	var messages []*outbox.Message
	_ = r.v.read(func(s *state) error {
		for _, m := range s.outbox {
			if m.Status == shared.OutboxStatusPending {
				messages = append(messages, cloneMessage(m))
			}
		}
		return nil
	})
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.v.write(func(s *state) error {
		m, ok := s.outbox[id]
		if !ok {
			return outbox.ErrMessageNotFound{ID: id}
		}
		now := time.Now()
		m.Status = status
		m.LastAttemptAt = &now
		return nil
	})
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.v.write(func(s *state) error {
		m, ok := s.outbox[id]
		if !ok {
			return outbox.ErrMessageNotFound{ID: id}
		}
		m.IncrementAttempts()
		return nil
	})
}
