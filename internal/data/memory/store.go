// Package memory provides map-backed implementations of the domain repositories.
// Transactions run against a private copy of the state that replaces the committed
// state only when the unit of work succeeds.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/outbox"
	"github.com/revenue-reconciliation/internal/domain/unitofwork"
)

type state struct {
	glEntries     map[uuid.UUID]*glentry.Entry
	forecastLines map[uuid.UUID]*forecast.Line
	matches       map[uuid.UUID]*match.Record
	outbox        map[int64]*outbox.Message
	nextOutboxID  int64
}

func newState() *state {
	return &state{
		glEntries:     make(map[uuid.UUID]*glentry.Entry),
		forecastLines: make(map[uuid.UUID]*forecast.Line),
		matches:       make(map[uuid.UUID]*match.Record),
		outbox:        make(map[int64]*outbox.Message),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, e := range s.glEntries {
		c.glEntries[id] = e.Clone()
	}
	for id, l := range s.forecastLines {
		c.forecastLines[id] = l.Clone()
	}
	for id, r := range s.matches {
		c.matches[id] = cloneRecord(r)
	}
	for id, m := range s.outbox {
		c.outbox[id] = cloneMessage(m)
	}
	c.nextOutboxID = s.nextOutboxID
	return c
}

// Store holds GL entries, forecast lines, match records and outbox messages
type Store struct {
	// writeMu serialises writers so a transaction's private copy cannot miss a concurrent write
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// view binds repository calls either to the committed state or to a transaction's copy
type view struct {
	store *Store
	tx    *state
}

func (v view) read(fn func(s *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.state)
}

func (v view) write(fn func(s *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.writeMu.Lock()
	defer v.store.writeMu.Unlock()
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (s *Store) GLEntries() *GLEntryRepository {
	return &GLEntryRepository{view{store: s}}
}

func (s *Store) ForecastLines() *ForecastLineRepository {
	return &ForecastLineRepository{view{store: s}}
}

func (s *Store) Matches() *MatchRepository {
	return &MatchRepository{view{store: s}}
}

func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{view{store: s}}
}

// Do implements unitofwork.UnitOfWork
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos unitofwork.Repositories) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	tx := s.state.clone()
	s.mu.RUnlock()

	v := view{store: s, tx: tx}
	repos := unitofwork.Repositories{
		GLEntries:     &GLEntryRepository{v},
		ForecastLines: &ForecastLineRepository{v},
		Matches:       &MatchRepository{v},
		Outbox:        &OutboxRepository{v},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = tx
	s.mu.Unlock()
	return nil
}

var _ unitofwork.UnitOfWork = (*Store)(nil)
