package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// ForecastLineRepository implements forecast.Repository over the store
type ForecastLineRepository struct {
	v view
}

var _ forecast.Repository = (*ForecastLineRepository)(nil)

func (r *ForecastLineRepository) Create(_ context.Context, line *forecast.Line) error {
	return r.v.write(func(s *state) error {
		if _, exists := s.forecastLines[line.ID]; exists {
			return fmt.Errorf("forecast line %s already exists", line.ID)
		}
		s.forecastLines[line.ID] = line.Clone()
		return nil
	})
}

func (r *ForecastLineRepository) GetByID(_ context.Context, id uuid.UUID) (*forecast.Line, error) {
	var found *forecast.Line
	err := r.v.read(func(s *state) error {
		l, ok := s.forecastLines[id]
		if !ok {
			return forecast.ErrLineNotFound{LineID: id}
		}
		found = l.Clone()
		return nil
	})
	return found, err
}

func (r *ForecastLineRepository) ListByPeriod(_ context.Context, period shared.Period) ([]*forecast.Line, error) {
	var lines []*forecast.Line
	_ = r.v.read(func(s *state) error {
		for _, l := range s.forecastLines {
			if l.Period == period {
				lines = append(lines, l.Clone())
			}
		}
		return nil
	})
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		}
		return lines[i].ID.String() < lines[j].ID.String()
	})
	return lines, nil
}

func (r *ForecastLineRepository) UpdateMatchStatus(_ context.Context, id uuid.UUID, expected, status shared.MatchStatus, glEntryID *uuid.UUID) error {
	return r.v.write(func(s *state) error {
		l, ok := s.forecastLines[id]
		if !ok {
			return forecast.ErrLineNotFound{LineID: id}
		}
		if l.MatchStatus != expected {
			return shared.ErrStatusConflict{EntityID: id, Expected: expected}
		}
		if glEntryID == nil {
			l.Unlink()
		} else {
			l.Link(status, *glEntryID)
		}
		l.MatchStatus = status
		return nil
	})
}
