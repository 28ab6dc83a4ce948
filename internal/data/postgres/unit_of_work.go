package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/revenue-reconciliation/internal/domain/unitofwork"
	"github.com/revenue-reconciliation/internal/platform/persistence"
)

// UnitOfWork runs a function against transaction-bound repositories and commits only when it succeeds
type UnitOfWork struct {
	db            persistence.Beginner
	glEntries     *GLEntryRepository
	forecastLines *ForecastLineRepository
	matches       *MatchRepository
	outbox        *OutboxRepository
}

var _ unitofwork.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(logger *slog.Logger, db persistence.Beginner) *UnitOfWork {
	return &UnitOfWork{
		db:            db,
		glEntries:     &GLEntryRepository{logger: logger},
		forecastLines: &ForecastLineRepository{logger: logger},
		matches:       &MatchRepository{logger: logger},
		outbox:        &OutboxRepository{logger: logger},
	}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos unitofwork.Repositories) error) error {
	return persistence.ExecuteTx(ctx, u.db, func(tx pgx.Tx) error {
		return fn(ctx, unitofwork.Repositories{
			GLEntries:     u.glEntries.WithTx(tx),
			ForecastLines: u.forecastLines.WithTx(tx),
			Matches:       u.matches.WithTx(tx),
			Outbox:        u.outbox.WithTx(tx),
		})
	})
}
