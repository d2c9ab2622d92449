package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admetric-labs/ad-performance-iq/internal/models"
)

// InsightRowRepository handles data access for the raw insight rows parsed
// from an upload. Row order is preserved by insertion order.
type InsightRowRepository struct {
	pool *pgxpool.Pool
}

// NewInsightRowRepository creates a new insight row repository.
func NewInsightRowRepository(pool *pgxpool.Pool) *InsightRowRepository {
	return &InsightRowRepository{pool: pool}
}

// BulkInsert performs a batch insert of insight rows using parameterized queries.
func (r *InsightRowRepository) BulkInsert(ctx context.Context, records []models.InsightRow) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO insight_rows (
			id, upload_id, account_id, entity_name, campaign_name, data, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	for _, record := range records {
		batch.Queue(
			query,
			record.ID,
			record.UploadID,
			record.AccountID,
			record.EntityName,
			record.CampaignName,
			record.Data,
			record.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(records); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// GetByUpload retrieves all insight rows for a given upload in insertion order.
func (r *InsightRowRepository) GetByUpload(ctx context.Context, uploadID uuid.UUID) ([]models.InsightRow, error) {
	query := `
		SELECT id, upload_id, account_id, entity_name, campaign_name, data, created_at
		FROM insight_rows
		WHERE upload_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.InsightRow
	for rows.Next() {
		record := models.InsightRow{}
		err := rows.Scan(
			&record.ID,
			&record.UploadID,
			&record.AccountID,
			&record.EntityName,
			&record.CampaignName,
			&record.Data,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// CountByUpload returns the total number of insight rows for a given upload.
func (r *InsightRowRepository) CountByUpload(ctx context.Context, uploadID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM insight_rows WHERE upload_id = $1`, uploadID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
