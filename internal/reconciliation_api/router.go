package reconciliation_api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/revenue-reconciliation/internal/reconciliation_api/handler"
	"github.com/revenue-reconciliation/internal/reconciliation_api/middleware"
)

// corsMiddleware allows every origin unless an explicit allowlist is configured
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AddAllowHeaders(middleware.CorrelationIDHeader)
	corsConfig.AddExposeHeaders(middleware.CorrelationIDHeader, "Content-Disposition")
	return cors.New(corsConfig)
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	allowedOrigins []string,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(corsMiddleware(allowedOrigins))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		recon := v1.Group("/reconciliation")
		{
			recon.POST("/execute", reconciliationHandler.Execute)
			recon.POST("/schedule", reconciliationHandler.Schedule)
			recon.GET("/account-summary", reconciliationHandler.AccountSummary)
			recon.GET("/account-summary/export", reconciliationHandler.ExportAccountSummary)
			recon.POST("/manual-match", reconciliationHandler.ManualMatch)
			recon.POST("/unmatch", reconciliationHandler.Unmatch)
			recon.GET("/logs", reconciliationHandler.Logs)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
