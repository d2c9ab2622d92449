package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admetric-labs/ad-performance-iq/internal/api/handlers"
	"github.com/admetric-labs/ad-performance-iq/internal/api/middleware"
	"github.com/admetric-labs/ad-performance-iq/internal/config"
	"github.com/admetric-labs/ad-performance-iq/internal/repository"
	"github.com/admetric-labs/ad-performance-iq/internal/scoring"
	"github.com/admetric-labs/ad-performance-iq/pkg/auth"
)

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.StructuredLogging())

	// Health check (no auth required)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "ad-performance-iq",
		})
	})

	// Initialize repositories
	uploadRepo := repository.NewUploadRepository(pool)
	insightRowRepo := repository.NewInsightRowRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	scoredAdRepo := repository.NewScoredAdRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)

	// Initialize scoring pipeline
	pipeline := scoring.NewPipeline(
		reportRepo,
		insightRowRepo,
		scoredAdRepo,
		cfg.Scoring.MaxRetries,
		cfg.Scoring.RetryBaseWait,
	)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(uploadRepo, insightRowRepo, idempotencyRepo, cfg)
	reportHandler := handlers.NewReportHandler(reportRepo, uploadRepo, idempotencyRepo, pipeline, cfg)
	resultsHandler := handlers.NewResultsHandler(scoredAdRepo, reportRepo, insightRowRepo, cfg)

	// API v1 routes (authenticated)
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		// Uploads — require admin or analyst role
		v1.POST("/uploads",
			middleware.RequireRole("admin", "analyst"),
			uploadHandler.HandleUpload,
		)

		// Reports — require admin or analyst role to create
		v1.POST("/uploads/:upload_id/reports",
			middleware.RequireRole("admin", "analyst"),
			reportHandler.HandleCreateReport,
		)
		v1.GET("/reports/:report_id",
			middleware.RequireRole("admin", "analyst", "viewer"),
			reportHandler.HandleGetReport,
		)

		// Results — all authenticated roles can view
		v1.GET("/reports/:report_id/ads",
			middleware.RequireRole("admin", "analyst", "viewer"),
			resultsHandler.HandleGetAds,
		)
		v1.GET("/reports/:report_id/winners",
			middleware.RequireRole("admin", "analyst", "viewer"),
			resultsHandler.HandleGetWinners,
		)
		v1.GET("/reports/:report_id/summary",
			middleware.RequireRole("admin", "analyst", "viewer"),
			resultsHandler.HandleGetSummary,
		)
		v1.GET("/reports/:report_id/export",
			middleware.RequireRole("admin", "analyst", "viewer"),
			resultsHandler.HandleExport,
		)
	}

	// Token generation endpoint (dev only — generates test JWTs)
	r.POST("/dev/token", devTokenHandler(cfg))

	return r
}

// devTokenHandler returns a handler that generates test JWTs for development.
func devTokenHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AccountID string `json:"account_id"`
			UserID    string `json:"user_id"`
			Role      string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request"})
			return
		}

		if req.AccountID == "" {
			c.JSON(400, gin.H{"error": "account_id is required"})
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid user_id"})
			return
		}
		if req.Role == "" {
			req.Role = "admin"
		}

		token, err := auth.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, req.AccountID, userID, req.Role, cfg.JWT.ExpiryHours)
		if err != nil {
			c.JSON(500, gin.H{"error": "failed to generate token"})
			return
		}

		c.JSON(200, gin.H{"token": token})
	}
}
