package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// MatchRepository implements match.Repository over the store
type MatchRepository struct {
	v view
}

var _ match.Repository = (*MatchRepository)(nil)

func cloneRecord(r *match.Record) *match.Record {
	c := *r
	if r.RunID != nil {
		id := *r.RunID
		c.RunID = &id
	}
	return &c
}

func (r *MatchRepository) Create(_ context.Context, record *match.Record) error {
	return r.v.write(func(s *state) error {
		for _, existing := range s.matches {
			if existing.GLEntryID == record.GLEntryID || existing.ForecastLineID == record.ForecastLineID {
				return match.ErrAlreadyMatched{GLEntryID: record.GLEntryID, ForecastLineID: record.ForecastLineID}
			}
		}
		s.matches[record.ID] = cloneRecord(record)
		return nil
	})
}

func (r *MatchRepository) Delete(_ context.Context, glEntryID, forecastLineID uuid.UUID) error {
	return r.v.write(func(s *state) error {
		for id, existing := range s.matches {
			if existing.Links(glEntryID, forecastLineID) {
				delete(s.matches, id)
				return nil
			}
		}
		return match.ErrNotMatched{GLEntryID: glEntryID, ForecastLineID: forecastLineID}
	})
}

func (r *MatchRepository) GetByGLEntryID(_ context.Context, glEntryID uuid.UUID) (*match.Record, error) {
	return r.find(func(rec *match.Record) bool { return rec.GLEntryID == glEntryID })
}

func (r *MatchRepository) GetByForecastLineID(_ context.Context, forecastLineID uuid.UUID) (*match.Record, error) {
	return r.find(func(rec *match.Record) bool { return rec.ForecastLineID == forecastLineID })
}

func (r *MatchRepository) find(pred func(*match.Record) bool) (*match.Record, error) {
	var found *match.Record
	_ = r.v.read(func(s *state) error {
		for _, rec := range s.matches {
			if pred(rec) {
				found = cloneRecord(rec)
				return nil
			}
		}
		return nil
	})
	return found, nil
}

func (r *MatchRepository) ListByPeriod(_ context.Context, period shared.Period) ([]*match.Record, error) {
	var records []*match.Record
	_ = r.v.read(func(s *state) error {
		for _, rec := range s.matches {
			if rec.Period == period {
				records = append(records, cloneRecord(rec))
			}
		}
		return nil
	})
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID.String() < records[j].ID.String()
	})
	return records, nil
}
