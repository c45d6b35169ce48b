package router

import (
	"github.com/gin-gonic/gin"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/handler"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	recordH *handler.RecordHandler,
	runH *handler.RunHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Ledger ingestion
	records := v1.Group("/records")
	records.POST("", recordH.Ingest)
	records.GET("/:id", recordH.GetByID)

	// Reconciliation runs
	runs := v1.Group("/runs")
	runs.POST("", runH.Trigger)
	runs.GET("", runH.List)
	runs.GET("/:id", runH.GetByID)
	runs.GET("/:id/export", runH.Export)
	runs.GET("/:id/archive-url", runH.ArchiveURL)

	return r
}
