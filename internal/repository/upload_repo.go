package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admetric-labs/ad-performance-iq/internal/models"
)

// UploadRepository handles data access for insights uploads.
type UploadRepository struct {
	pool *pgxpool.Pool
}

// NewUploadRepository creates a new upload repository.
func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{pool: pool}
}

// uploadColumns is the canonical column list for uploads, used across all queries.
const uploadColumns = `id, account_id, filename, file_size, level, date_start, date_stop,
	status, validation_status, row_count, warnings, errors, idempotency_key, content_hash,
	created_at, updated_at`

// scanUpload scans a row into an Upload struct using the canonical column order.
func scanUpload(row pgx.Row, upload *models.Upload) error {
	return row.Scan(
		&upload.ID,
		&upload.AccountID,
		&upload.Filename,
		&upload.FileSize,
		&upload.Level,
		&upload.DateStart,
		&upload.DateStop,
		&upload.Status,
		&upload.ValidationStatus,
		&upload.RowCount,
		&upload.Warnings,
		&upload.Errors,
		&upload.IdempotencyKey,
		&upload.ContentHash,
		&upload.CreatedAt,
		&upload.UpdatedAt,
	)
}

// Create inserts a new upload record.
func (r *UploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	if upload == nil {
		return errors.New("upload cannot be nil")
	}

	query := `
		INSERT INTO uploads (
			id, account_id, filename, file_size, level, date_start, date_stop,
			status, validation_status, row_count, warnings, errors,
			idempotency_key, content_hash, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING ` + uploadColumns

	return scanUpload(r.pool.QueryRow(
		ctx, query,
		upload.ID, upload.AccountID, upload.Filename, upload.FileSize,
		upload.Level, upload.DateStart, upload.DateStop,
		upload.Status, upload.ValidationStatus, upload.RowCount,
		upload.Warnings, upload.Errors, upload.IdempotencyKey, upload.ContentHash,
		upload.CreatedAt, upload.UpdatedAt,
	), upload)
}

// GetByID retrieves an upload by ID, scoped to the account.
func (r *UploadRepository) GetByID(ctx context.Context, accountID string, uploadID uuid.UUID) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1 AND account_id = $2`
	upload := &models.Upload{}
	err := scanUpload(r.pool.QueryRow(ctx, query, uploadID, accountID), upload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return upload, nil
}

// GetByContentHash retrieves an upload by SHA-256 content hash, scoped to the
// account. Returns nil, nil if no match found.
func (r *UploadRepository) GetByContentHash(ctx context.Context, accountID, hash string) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE account_id = $1 AND content_hash = $2`
	upload := &models.Upload{}
	err := scanUpload(r.pool.QueryRow(ctx, query, accountID, hash), upload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return upload, nil
}

// Update updates an upload record.
func (r *UploadRepository) Update(ctx context.Context, upload *models.Upload) error {
	if upload == nil {
		return errors.New("upload cannot be nil")
	}

	query := `
		UPDATE uploads
		SET filename = $3, file_size = $4, level = $5, date_start = $6,
		    date_stop = $7, status = $8, validation_status = $9, row_count = $10,
		    warnings = $11, errors = $12, idempotency_key = $13,
		    content_hash = $14, updated_at = $15
		WHERE id = $1 AND account_id = $2
		RETURNING ` + uploadColumns

	err := scanUpload(r.pool.QueryRow(
		ctx, query,
		upload.ID, upload.AccountID, upload.Filename, upload.FileSize,
		upload.Level, upload.DateStart, upload.DateStop,
		upload.Status, upload.ValidationStatus, upload.RowCount,
		upload.Warnings, upload.Errors, upload.IdempotencyKey, upload.ContentHash,
		upload.UpdatedAt,
	), upload)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.New("upload not found")
		}
		return err
	}
	return nil
}
