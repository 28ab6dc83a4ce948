package reconciliation_api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revenue-reconciliation/internal/config"
	"github.com/revenue-reconciliation/internal/data/memory"
	"github.com/revenue-reconciliation/internal/domain/forecast"
	"github.com/revenue-reconciliation/internal/domain/glentry"
	"github.com/revenue-reconciliation/internal/domain/shared"
	"github.com/revenue-reconciliation/internal/platform/locking"
	"github.com/revenue-reconciliation/internal/reconciliation"
	"github.com/revenue-reconciliation/internal/reconciliation_api/handler"
	"github.com/revenue-reconciliation/internal/reconciliation_api/middleware"
	"github.com/revenue-reconciliation/internal/reconciliation_api/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server *Server
	store  *memory.Store
	gl     *glentry.Entry
	fc     *forecast.Line
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	april := shared.Period{Year: 2024, Month: 4}

	store := memory.NewStore()
	logs := memory.NewReconciliationLogRepository()

	gl, err := glentry.NewEntry(april, "4000", 150000, "PRJ-1001", time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC), "April milestone")
	require.NoError(t, err)
	fc, err := forecast.NewLine(april, "PRJ-1001", 150000, "4000")
	require.NoError(t, err)
	require.NoError(t, store.GLEntries().Create(ctx, gl))
	require.NoError(t, store.ForecastLines().Create(ctx, fc))

	orchestrator := reconciliation.NewOrchestrator(reconciliation.Stores{
		GLEntries:     store.GLEntries(),
		ForecastLines: store.ForecastLines(),
		Matches:       store.Matches(),
		Logs:          logs,
		UnitOfWork:    store,
	}, locking.NewLocalLocker(), reconciliation.DefaultConfig(), logger)

	svc := service.NewReconciliationService(
		logger,
		orchestrator,
		reconciliation.NewOverrideHandler(store, logger),
		reconciliation.NewSummaryAggregator(store.GLEntries(), store.Matches(), logger),
		logs,
		nil,
	)

	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = time.Second
	cfg.Server.WriteTimeout = time.Second
	cfg.Server.IdleTimeout = time.Second

	return &apiFixture{server: NewServer(logger, cfg, svc), store: store, gl: gl, fc: fc}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, handler.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CorrelationIDHeader, "test-correlation")

	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)

	var resp handler.Response
	if rr.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestServer_ReconciliationFlow(t *testing.T) {
	f := newAPIFixture(t)
	override := handler.OverrideRequest{GLEntryID: f.gl.ID.String(), ForecastLineID: f.fc.ID.String(), Initiator: "controller"}

	rr, resp := f.do(t, http.MethodPost, "/api/v1/reconciliation/execute", handler.ExecuteRequest{Period: "2024-04", Mode: "both"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "test-correlation", resp.CorrelationID)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["matched_exact"])
	assert.Len(t, data["pairs"], 1)

	// a rerun finds nothing new
	rr, resp = f.do(t, http.MethodPost, "/api/v1/reconciliation/execute", handler.ExecuteRequest{Period: "2024-04", Mode: "both"})
	require.Equal(t, http.StatusOK, rr.Code)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, float64(0), data["matched_exact"])
	assert.Equal(t, float64(1), data["already_matched"])
	assert.Len(t, data["pairs"], 0)

	rr, resp = f.do(t, http.MethodPost, "/api/v1/reconciliation/manual-match", override)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_MATCHED", resp.Error.Code)

	rr, _ = f.do(t, http.MethodPost, "/api/v1/reconciliation/unmatch", override)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, resp = f.do(t, http.MethodPost, "/api/v1/reconciliation/unmatch", override)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "NOT_MATCHED", resp.Error.Code)

	rr, resp = f.do(t, http.MethodPost, "/api/v1/reconciliation/manual-match", override)
	require.Equal(t, http.StatusCreated, rr.Code)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, "manual", data["method"])
	assert.Equal(t, float64(1), data["score"])
	assert.Equal(t, "controller", data["created_by"])

	rr, resp = f.do(t, http.MethodGet, "/api/v1/reconciliation/account-summary?period=2024-04", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	totals := resp.Data.(map[string]interface{})["accounts"].(map[string]interface{})["4000"].(map[string]interface{})
	assert.Equal(t, float64(150000), totals["matched_amount"])
	assert.Equal(t, float64(0), totals["unmatched_count"])

	rr, resp = f.do(t, http.MethodGet, "/api/v1/reconciliation/logs?period=2024-04", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.TotalItems)
}

func TestServer_Errors(t *testing.T) {
	f := newAPIFixture(t)

	rr, resp := f.do(t, http.MethodPost, "/api/v1/reconciliation/execute", handler.ExecuteRequest{Period: "2031-01"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_PERIOD", resp.Error.Code)

	rr, resp = f.do(t, http.MethodPost, "/api/v1/reconciliation/execute", handler.ExecuteRequest{Period: "2024-04", Mode: "greedy"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_MODE", resp.Error.Code)

	rr, _ = f.do(t, http.MethodPost, "/api/v1/reconciliation/schedule", handler.ExecuteRequest{Period: "2024-04"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr, _ = f.do(t, http.MethodGet, "/api/v1/reconciliation/account-summary/export?period=2024-04", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Body.Bytes())
}

func TestServer_Health(t *testing.T) {
	f := newAPIFixture(t)

	rr, _ := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "test-correlation", rr.Header().Get(middleware.CorrelationIDHeader))
}

func TestCorsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Allowlist", func(t *testing.T) {
		r := gin.New()
		r.Use(corsMiddleware([]string{"https://finance.example.com"}))
		r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://finance.example.com")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, "https://finance.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("AllowAll", func(t *testing.T) {
		r := gin.New()
		r.Use(corsMiddleware(nil))
		r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})
}
