package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admetric-labs/ad-performance-iq/internal/models"
)

// ReportRepository handles data access for scoring reports.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new report repository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// reportColumns is the canonical column list for reports, used across all queries.
const reportColumns = `id, upload_id, account_id, status, weights, row_count,
	scored_count, attempt, last_error, idempotency_key, duration_ms,
	created_at, updated_at`

// scanReport scans a row into a Report struct using the canonical column order.
func scanReport(row pgx.Row, report *models.Report) error {
	return row.Scan(
		&report.ID,
		&report.UploadID,
		&report.AccountID,
		&report.Status,
		&report.Weights,
		&report.RowCount,
		&report.ScoredCount,
		&report.Attempt,
		&report.LastError,
		&report.IdempotencyKey,
		&report.DurationMs,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
}

// Create inserts a new report record.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report == nil {
		return errors.New("report cannot be nil")
	}

	query := `
		INSERT INTO reports (
			id, upload_id, account_id, status, weights, row_count,
			scored_count, attempt, last_error, idempotency_key, duration_ms,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING ` + reportColumns

	return scanReport(r.pool.QueryRow(
		ctx, query,
		report.ID, report.UploadID, report.AccountID, report.Status,
		report.Weights, report.RowCount, report.ScoredCount, report.Attempt,
		report.LastError, report.IdempotencyKey, report.DurationMs,
		report.CreatedAt, report.UpdatedAt,
	), report)
}

// GetByID retrieves a report by ID, scoped to the account.
func (r *ReportRepository) GetByID(ctx context.Context, accountID string, reportID uuid.UUID) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 AND account_id = $2`
	report := &models.Report{}
	err := scanReport(r.pool.QueryRow(ctx, query, reportID, accountID), report)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return report, nil
}

// UpdateStatus transitions a report's lifecycle status and optionally records
// the scored count, last error and duration.
func (r *ReportRepository) UpdateStatus(
	ctx context.Context,
	reportID uuid.UUID,
	status string,
	scoredCount *int,
	lastError *string,
	durationMs *int,
) error {
	query := `
		UPDATE reports
		SET status = $2,
		    scored_count = COALESCE($3, scored_count),
		    last_error = COALESCE($4, last_error),
		    duration_ms = COALESCE($5, duration_ms),
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, reportID, status, scoredCount, lastError, durationMs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("report not found")
	}
	return nil
}

// IncrementAttempt bumps the retry counter for a report.
func (r *ReportRepository) IncrementAttempt(ctx context.Context, reportID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE reports SET attempt = attempt + 1, updated_at = NOW() WHERE id = $1`, reportID)
	return err
}
