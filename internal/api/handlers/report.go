package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/admetric-labs/ad-performance-iq/internal/api/response"
	"github.com/admetric-labs/ad-performance-iq/internal/config"
	"github.com/admetric-labs/ad-performance-iq/internal/models"
	"github.com/admetric-labs/ad-performance-iq/internal/repository"
	"github.com/admetric-labs/ad-performance-iq/internal/scoring"
)

// ReportHandler handles scoring report operations.
type ReportHandler struct {
	reportRepo      *repository.ReportRepository
	uploadRepo      *repository.UploadRepository
	idempotencyRepo *repository.IdempotencyRepository
	pipeline        *scoring.Pipeline
	cfg             *config.Config
}

// NewReportHandler creates a new report handler.
func NewReportHandler(
	reportRepo *repository.ReportRepository,
	uploadRepo *repository.UploadRepository,
	idempotencyRepo *repository.IdempotencyRepository,
	pipeline *scoring.Pipeline,
	cfg *config.Config,
) *ReportHandler {
	return &ReportHandler{
		reportRepo:      reportRepo,
		uploadRepo:      uploadRepo,
		idempotencyRepo: idempotencyRepo,
		pipeline:        pipeline,
		cfg:             cfg,
	}
}

// createReportRequest is the optional POST body for triggering a report.
// Weights, when present, are merged over the default rubric.
type createReportRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Weights        json.RawMessage `json:"weights"`
}

// HandleCreateReport handles POST /api/v1/uploads/:upload_id/reports.
func (h *ReportHandler) HandleCreateReport(c *gin.Context) {
	accountID := c.MustGet("account_id").(string)

	// Parse upload_id from URL
	uploadIDStr := c.Param("upload_id")
	uploadID, err := uuid.Parse(uploadIDStr)
	if err != nil {
		response.BadRequest(c, "invalid upload_id format", nil)
		return
	}

	// Parse optional request body (weights + idempotency_key)
	var req createReportRequest
	_ = c.ShouldBindJSON(&req) // optional body; OK if missing

	// Determine idempotency key: header takes precedence, then body
	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	// Custom weights are rejected up front so a bad rubric never reaches
	// the async pipeline.
	if len(req.Weights) > 0 {
		if _, err := scoring.ResolveWeights(req.Weights); err != nil {
			response.BadRequest(c, fmt.Sprintf("invalid weights: %v", err), nil)
			return
		}
	}

	// Verify upload exists and belongs to the account
	upload, err := h.uploadRepo.GetByID(c.Request.Context(), accountID, uploadID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve upload: %v", err))
		return
	}
	if upload == nil {
		response.NotFound(c, "upload not found")
		return
	}

	// Verify upload passed validation
	if upload.ValidationStatus != "valid" {
		response.Unprocessable(c, "upload failed validation and cannot be scored")
		return
	}

	// Atomic idempotency claim — return 409 Conflict with the existing report
	reportID := uuid.New()
	if idempotencyKey != "" {
		claim, err := h.idempotencyRepo.Claim(c.Request.Context(), accountID, idempotencyKey, "report", reportID)
		if err != nil {
			response.InternalError(c, fmt.Sprintf("idempotency check failed: %v", err))
			return
		}
		if claim.AlreadyExists {
			existing, _ := h.reportRepo.GetByID(c.Request.Context(), accountID, claim.ResourceID)
			response.Conflict(c, "duplicate report (idempotency key match)", existing)
			return
		}
	}

	// Create report record
	now := time.Now()
	var idempotencyKeyPtr *string
	if idempotencyKey != "" {
		idempotencyKeyPtr = &idempotencyKey
	}

	rowCount := upload.RowCount

	report := &models.Report{
		ID:             reportID,
		UploadID:       uploadID,
		AccountID:      accountID,
		Status:         "queued",
		Weights:        req.Weights,
		RowCount:       &rowCount,
		Attempt:        0,
		IdempotencyKey: idempotencyKeyPtr,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.reportRepo.Create(c.Request.Context(), report); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to create report: %v", err))
		return
	}

	// Launch the scoring pipeline asynchronously
	go func() {
		bgCtx := context.Background()
		_ = h.pipeline.ExecuteWithRetry(bgCtx, report)
	}()

	response.Success(c, http.StatusAccepted, report)
}

// HandleGetReport handles GET /api/v1/reports/:report_id.
func (h *ReportHandler) HandleGetReport(c *gin.Context) {
	accountID := c.MustGet("account_id").(string)

	reportIDStr := c.Param("report_id")
	reportID, err := uuid.Parse(reportIDStr)
	if err != nil {
		response.BadRequest(c, "invalid report_id format", nil)
		return
	}

	report, err := h.reportRepo.GetByID(c.Request.Context(), accountID, reportID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve report: %v", err))
		return
	}
	if report == nil {
		response.NotFound(c, "report not found")
		return
	}

	response.Success(c, http.StatusOK, report)
}
