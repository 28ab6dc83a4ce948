package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

// GLEntryRepository implements glentry.Repository over the store
type GLEntryRepository struct {
	v view
}

var _ glentry.Repository = (*GLEntryRepository)(nil)

func (r *GLEntryRepository) Create(_ context.Context, entry *glentry.Entry) error {
	return r.v.write(func(s *state) error {
		if _, exists := s.glEntries[entry.ID]; exists {
			return fmt.Errorf("gl entry %s already exists", entry.ID)
		}
		s.glEntries[entry.ID] = entry.Clone()
		return nil
	})
}

func (r *GLEntryRepository) GetByID(_ context.Context, id uuid.UUID) (*glentry.Entry, error) {
	var found *glentry.Entry
	err := r.v.read(func(s *state) error {
		e, ok := s.glEntries[id]
		if !ok {
			return glentry.ErrEntryNotFound{EntryID: id}
		}
		found = e.Clone()
		return nil
	})
	return found, err
}

// ListByPeriod returns entries ordered by creation time then id
func (r *GLEntryRepository) ListByPeriod(_ context.Context, period shared.Period) ([]*glentry.Entry, error) {
	var entries []*glentry.Entry
	_ = r.v.read(func(s *state) error {
		for _, e := range s.glEntries {
			if e.Period == period {
				entries = append(entries, e.Clone())
			}
		}
		return nil
	})
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries, nil
}

func (r *GLEntryRepository) UpdateMatchStatus(_ context.Context, id uuid.UUID, expected, status shared.MatchStatus, forecastLineID *uuid.UUID) error {
	return r.v.write(func(s *state) error {
		e, ok := s.glEntries[id]
		if !ok {
			return glentry.ErrEntryNotFound{EntryID: id}
		}
		if e.MatchStatus != expected {
			return shared.ErrStatusConflict{EntityID: id, Expected: expected}
		}
		if forecastLineID == nil {
			e.Unlink()
		} else {
			e.Link(status, *forecastLineID)
		}
		e.MatchStatus = status
		return nil
	})
}
