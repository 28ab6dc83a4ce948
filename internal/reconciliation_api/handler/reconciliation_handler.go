package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/revenue-reconciliation/internal/reconciliation_api/middleware"
	"github.com/revenue-reconciliation/internal/reconciliation_api/service"
)

const (
	defaultInitiator = "api"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReconciliationHandler handles HTTP requests for reconciliation operations
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// Execute runs reconciliation synchronously and returns the pairs created by this run
func (h *ReconciliationHandler) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reconciliationService.Execute(c.Request.Context(), h.runRequest(c, req))
	if err != nil {
		// a cancelled run still reports the batches it committed
		if errors.Is(err, reconciliation.ErrRunCancelled) && result != nil {
			h.logger.Warn("Reconciliation run cancelled", "period", req.Period, "run_id", result.RunID.String())
			RespondOK(c, result)
			return
		}
		respondDomainError(c, h.logger, "execute reconciliation", err)
		return
	}

	RespondOK(c, result)
}

// Schedule queues a reconciliation request for the worker
func (h *ReconciliationHandler) Schedule(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.reconciliationService.Schedule(c.Request.Context(), h.runRequest(c, req))
	if err != nil {
		if errors.Is(err, service.ErrSchedulingDisabled) {
			RespondServiceUnavailable(c, "Reconciliation scheduling is not available")
			return
		}
		respondDomainError(c, h.logger, "schedule reconciliation", err)
		return
	}

	RespondAccepted(c, ScheduleResponse{
		RequestID: request.RequestID.String(),
		Period:    request.Period,
		Mode:      string(request.Mode),
		Status:    "QUEUED",
	})
}

// AccountSummary returns matched and unmatched totals per account for a period
func (h *ReconciliationHandler) AccountSummary(c *gin.Context) {
	var query PeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Query parameter period is required")
		return
	}

	summary, err := h.reconciliationService.AccountSummary(c.Request.Context(), query.Period)
	if err != nil {
		respondDomainError(c, h.logger, "compute account summary", err)
		return
	}

	RespondOK(c, summary)
}

// ExportAccountSummary streams the account summary as an XLSX workbook
func (h *ReconciliationHandler) ExportAccountSummary(c *gin.Context) {
	var query PeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Query parameter period is required")
		return
	}

	summary, err := h.reconciliationService.AccountSummary(c.Request.Context(), query.Period)
	if err != nil {
		respondDomainError(c, h.logger, "compute account summary", err)
		return
	}

	var buf bytes.Buffer
	if err := summary.WriteXLSX(&buf); err != nil {
		h.logger.Error("Failed to render account summary workbook", "period", query.Period, "error", err)
		RespondInternalError(c)
		return
	}

	filename := fmt.Sprintf("account-summary-%s.xlsx", summary.Period.String())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ManualMatch links a GL entry with a forecast line, returning 409 if either is already matched
func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	req, ok := h.bindOverride(c)
	if !ok {
		return
	}

	rec, err := h.reconciliationService.ManualMatch(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, h.logger, "create manual match", err)
		return
	}

	RespondCreated(c, mapMatchRecordToResponse(rec))
}

// Unmatch removes the match between a GL entry and a forecast line
func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	req, ok := h.bindOverride(c)
	if !ok {
		return
	}

	rec, err := h.reconciliationService.Unmatch(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, h.logger, "remove match", err)
		return
	}

	RespondOK(c, mapMatchRecordToResponse(rec))
}

// Logs returns paginated run logs for a period, newest first
func (h *ReconciliationHandler) Logs(c *gin.Context) {
	var query PeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Query parameter period is required")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	logs, total, err := h.reconciliationService.Logs(c.Request.Context(), query.Period, pagination.Page, pagination.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, "list reconciliation logs", err)
		return
	}

	responses := make([]ReconciliationLogResponse, 0, len(logs))
	for _, l := range logs {
		responses = append(responses, mapLogToResponse(l))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

func (h *ReconciliationHandler) runRequest(c *gin.Context, req ExecuteRequest) reconciliation.RunRequest {
	initiator := req.Initiator
	if initiator == "" {
		initiator = defaultInitiator
	}
	return reconciliation.RunRequest{
		Period:        req.Period,
		Mode:          shared.Mode(req.Mode),
		Initiator:     initiator,
		CorrelationID: middleware.GetCorrelationID(c),
	}
}

func (h *ReconciliationHandler) bindOverride(c *gin.Context) (reconciliation.OverrideRequest, bool) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return reconciliation.OverrideRequest{}, false
	}

	// binding already checked the uuid format
	glEntryID, _ := uuid.Parse(req.GLEntryID)
	forecastLineID, _ := uuid.Parse(req.ForecastLineID)

	initiator := req.Initiator
	if initiator == "" {
		initiator = defaultInitiator
	}
	return reconciliation.OverrideRequest{
		GLEntryID:      glEntryID,
		ForecastLineID: forecastLineID,
		Initiator:      initiator,
		CorrelationID:  middleware.GetCorrelationID(c),
	}, true
}
