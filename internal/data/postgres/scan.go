// Package postgres implements the reconciliation repositories on PostgreSQL.
// Every repository can be bound to a transaction with WithTx; UnitOfWork does that
// for all of them at once.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/revenue-reconciliation/internal/domain/shared"
)

const uniqueViolation = "23505"

// rowScanner is implemented by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func parsePeriodColumn(value string) (shared.Period, error) {
	period, err := shared.ParsePeriod(value)
	if err != nil {
		return shared.Period{}, fmt.Errorf("stored period %q is corrupt: %w", value, err)
	}
	return period, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
