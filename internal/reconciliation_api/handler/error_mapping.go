package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/match"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/revenue-reconciliation/internal/reconciliation_api/middleware"
)

// respondDomainError translates engine errors into the HTTP error contract.
// Anything unrecognised is logged and reported as a 500.
func respondDomainError(c *gin.Context, logger *slog.Logger, op string, err error) {
	var (
		invalidPeriod shared.ErrInvalidPeriod
		invalidMode   shared.ErrInvalidMode
	)

	switch {
	case errors.As(err, &invalidPeriod):
		RespondWithError(c, http.StatusBadRequest, "INVALID_PERIOD", err.Error())
	case errors.As(err, &invalidMode):
		RespondWithError(c, http.StatusBadRequest, "INVALID_MODE", err.Error())
	case errors.Is(err, glentry.ErrEntryNotFound{}):
		RespondNotFound(c, "GL entry not found")
	case errors.Is(err, forecast.ErrLineNotFound{}):
		RespondNotFound(c, "Forecast line not found")
	case errors.Is(err, match.ErrAlreadyMatched{}):
		RespondConflict(c, "ALREADY_MATCHED", err.Error())
	case errors.Is(err, match.ErrNotMatched{}):
		RespondConflict(c, "NOT_MATCHED", err.Error())
	case errors.Is(err, shared.ErrConcurrentRunConflict{}):
		RespondConflict(c, "CONCURRENT_RUN", err.Error())
	case errors.Is(err, reconciliation.ErrStoreFailure{}):
		logger.Error("Store failure", "op", op, "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondStoreFailure(c)
	default:
		logger.Error("Failed to "+op, "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
	}
}
