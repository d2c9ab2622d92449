package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/admetric-labs/ad-performance-iq/internal/api/response"
	"github.com/admetric-labs/ad-performance-iq/internal/config"
	"github.com/admetric-labs/ad-performance-iq/internal/ingest"
	"github.com/admetric-labs/ad-performance-iq/internal/models"
	"github.com/admetric-labs/ad-performance-iq/internal/repository"
)

// UploadHandler handles insights CSV uploads.
type UploadHandler struct {
	uploadRepo      *repository.UploadRepository
	insightRowRepo  *repository.InsightRowRepository
	idempotencyRepo *repository.IdempotencyRepository
	cfg             *config.Config
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(
	uploadRepo *repository.UploadRepository,
	insightRowRepo *repository.InsightRowRepository,
	idempotencyRepo *repository.IdempotencyRepository,
	cfg *config.Config,
) *UploadHandler {
	return &UploadHandler{
		uploadRepo:      uploadRepo,
		insightRowRepo:  insightRowRepo,
		idempotencyRepo: idempotencyRepo,
		cfg:             cfg,
	}
}

// HandleUpload handles POST /api/v1/uploads.
//
// The request is a multipart form with a "file" part (the insights CSV
// export) and an optional "level" field naming the reporting level of the
// export (ad, campaign, or account; defaults to ad). Optional "date_start"
// and "date_stop" fields record the export's date range.
func (h *UploadHandler) HandleUpload(c *gin.Context) {
	accountID := c.MustGet("account_id").(string)

	// Check idempotency key atomically — return 409 Conflict with the
	// existing upload on a repeat.
	idempotencyKey := c.GetHeader("Idempotency-Key")
	uploadID := uuid.New()
	if idempotencyKey != "" {
		claim, err := h.idempotencyRepo.Claim(c.Request.Context(), accountID, idempotencyKey, "upload", uploadID)
		if err != nil {
			response.InternalError(c, fmt.Sprintf("idempotency check failed: %v", err))
			return
		}
		if claim.AlreadyExists {
			existing, _ := h.uploadRepo.GetByID(c.Request.Context(), accountID, claim.ResourceID)
			response.Conflict(c, "duplicate upload (idempotency key match)", existing)
			return
		}
	}

	// Reporting level determines which identity column the CSV must carry.
	level := c.DefaultPostForm("level", models.LevelAd)
	switch level {
	case models.LevelAd, models.LevelCampaign, models.LevelAccount:
	default:
		response.BadRequest(c, "level must be one of: ad, campaign, account", nil)
		return
	}

	var dateStart, dateStop *string
	if v := c.PostForm("date_start"); v != "" {
		dateStart = &v
	}
	if v := c.PostForm("date_stop"); v != "" {
		dateStop = &v
	}

	// Get file from multipart form
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required", nil)
		return
	}

	// Validate file type (content-type + extension)
	if file.Header.Get("Content-Type") != "text/csv" && filepath.Ext(file.Filename) != ".csv" {
		response.BadRequest(c, "file must be a CSV", nil)
		return
	}

	// Validate file size
	if file.Size > h.cfg.Upload.MaxFileSize {
		response.TooLarge(c, fmt.Sprintf("file exceeds max size of %d bytes", h.cfg.Upload.MaxFileSize))
		return
	}

	// Open uploaded file
	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	// Save to temp directory
	if err := os.MkdirAll(h.cfg.Upload.TempDir, 0755); err != nil {
		response.InternalError(c, "failed to create temp directory")
		return
	}

	tempPath := filepath.Join(h.cfg.Upload.TempDir, uploadID.String()+".csv")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		response.InternalError(c, "failed to create temp file")
		return
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, src); err != nil {
		os.Remove(tempPath)
		response.InternalError(c, "failed to save file")
		return
	}

	// Compute SHA-256 content hash for deduplication
	hashFile, err := os.Open(tempPath)
	if err != nil {
		os.Remove(tempPath)
		response.InternalError(c, "failed to reopen file for hashing")
		return
	}
	hasher := sha256.New()
	if _, err := io.Copy(hasher, hashFile); err != nil {
		hashFile.Close()
		os.Remove(tempPath)
		response.InternalError(c, "failed to hash file")
		return
	}
	hashFile.Close()
	contentHash := hex.EncodeToString(hasher.Sum(nil))

	// Check for duplicate content within this account — if the same export
	// was already uploaded, return the existing upload (and its results)
	// instead of creating a new one.
	existing, err := h.uploadRepo.GetByContentHash(c.Request.Context(), accountID, contentHash)
	if err == nil && existing != nil {
		os.Remove(tempPath)
		response.Success(c, http.StatusOK, gin.H{
			"upload_id":         existing.ID,
			"account_id":        existing.AccountID,
			"filename":          existing.Filename,
			"level":             existing.Level,
			"row_count":         existing.RowCount,
			"validation_status": existing.ValidationStatus,
			"content_hash":      existing.ContentHash,
			"created_at":        existing.CreatedAt,
			"duplicate":         true,
			"message":           "File already uploaded; returning existing upload and its results.",
		})
		return
	}

	// Create upload record
	now := time.Now()
	var idempotencyKeyPtr *string
	if idempotencyKey != "" {
		idempotencyKeyPtr = &idempotencyKey
	}
	contentHashPtr := &contentHash

	upload := &models.Upload{
		ID:               uploadID,
		AccountID:        accountID,
		Filename:         file.Filename,
		FileSize:         file.Size,
		Level:            level,
		DateStart:        dateStart,
		DateStop:         dateStop,
		Status:           "pending",
		ValidationStatus: "pending",
		RowCount:         0,
		Warnings:         json.RawMessage("[]"),
		Errors:           json.RawMessage("[]"),
		IdempotencyKey:   idempotencyKeyPtr,
		ContentHash:      contentHashPtr,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.uploadRepo.Create(c.Request.Context(), upload); err != nil {
		os.Remove(tempPath)
		response.InternalError(c, fmt.Sprintf("failed to create upload record: %v", err))
		return
	}

	// Reopen file for parsing
	csvFile, err := os.Open(tempPath)
	if err != nil {
		response.InternalError(c, "failed to reopen file for parsing")
		return
	}
	defer csvFile.Close()

	// Parse and validate CSV
	records, parseWarnings, err := ingest.Parse(csvFile, level)
	if err != nil {
		os.Remove(tempPath)
		upload.ValidationStatus = "invalid"
		upload.UpdatedAt = time.Now()
		_ = h.uploadRepo.Update(c.Request.Context(), upload)
		response.BadRequest(c, fmt.Sprintf("CSV validation failed: %v", err), nil)
		return
	}

	// Capture validation warnings
	warningsJSON, _ := json.Marshal(parseWarnings)
	upload.Warnings = warningsJSON

	insightRows := make([]models.InsightRow, len(records))
	for i, record := range records {
		insightRows[i] = models.InsightRow{
			ID:           uuid.New(),
			UploadID:     uploadID,
			AccountID:    accountID,
			EntityName:   record.EntityName,
			CampaignName: record.CampaignName,
			Data:         record.Data,
			CreatedAt:    now,
		}
	}

	if err := h.insightRowRepo.BulkInsert(c.Request.Context(), insightRows); err != nil {
		os.Remove(tempPath)
		upload.ValidationStatus = "invalid"
		upload.UpdatedAt = time.Now()
		_ = h.uploadRepo.Update(c.Request.Context(), upload)
		response.InternalError(c, fmt.Sprintf("failed to insert insight rows: %v", err))
		return
	}

	// Update upload as valid
	upload.ValidationStatus = "valid"
	upload.Status = "completed"
	upload.RowCount = len(records)
	upload.UpdatedAt = time.Now()

	if err := h.uploadRepo.Update(c.Request.Context(), upload); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to update upload: %v", err))
		return
	}

	os.Remove(tempPath)

	uploadResponse := gin.H{
		"upload_id":           upload.ID,
		"account_id":          upload.AccountID,
		"filename":            upload.Filename,
		"level":               upload.Level,
		"date_start":          upload.DateStart,
		"date_stop":           upload.DateStop,
		"row_count":           upload.RowCount,
		"validation_status":   upload.ValidationStatus,
		"validation_warnings": parseWarnings,
		"created_at":          upload.CreatedAt,
	}

	response.Success(c, http.StatusCreated, uploadResponse)
}
