package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/admetric-labs/ad-performance-iq/internal/models"
)

// ScoredAdRepository handles data access for the scored ads of a report.
type ScoredAdRepository struct {
	pool *pgxpool.Pool
}

// NewScoredAdRepository creates a new scored ad repository.
func NewScoredAdRepository(pool *pgxpool.Pool) *ScoredAdRepository {
	return &ScoredAdRepository{pool: pool}
}

// BulkInsert performs a batch insert of scored ads using parameterized queries.
func (r *ScoredAdRepository) BulkInsert(ctx context.Context, ads []models.ScoredAdRecord) error {
	if len(ads) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO scored_ads (
			id, report_id, account_id, ad_name, campaign_name, ranking,
			composite_score, metrics, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	for _, ad := range ads {
		batch.Queue(
			query,
			ad.ID,
			ad.ReportID,
			ad.AccountID,
			ad.AdName,
			ad.CampaignName,
			ad.Ranking,
			ad.CompositeScore,
			ad.Metrics,
			ad.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(ads); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// GetByReport retrieves scored ads for a report ordered by ranking, with
// pagination and an optional minimum composite score filter.
func (r *ScoredAdRepository) GetByReport(
	ctx context.Context,
	reportID uuid.UUID,
	page int,
	pageSize int,
	minScore *float64,
) ([]models.ScoredAdRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize

	countQuery := `SELECT COUNT(*) FROM scored_ads WHERE report_id = $1`
	countArgs := []interface{}{reportID}
	if minScore != nil {
		countQuery += ` AND composite_score >= $2`
		countArgs = append(countArgs, *minScore)
	}

	var totalCount int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, report_id, account_id, ad_name, campaign_name, ranking,
		       composite_score, metrics, created_at
		FROM scored_ads
		WHERE report_id = $1
	`
	args := []interface{}{reportID}

	if minScore != nil {
		query += ` AND composite_score >= $2`
		args = append(args, *minScore)
	}

	query += fmt.Sprintf(` ORDER BY ranking ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ads, err := scanScoredAds(rows)
	if err != nil {
		return nil, 0, err
	}
	return ads, totalCount, nil
}

// GetAllByReport retrieves every scored ad of a report in ranking order.
// Used by the winners split and the CSV export, which operate on the full
// batch.
func (r *ScoredAdRepository) GetAllByReport(ctx context.Context, reportID uuid.UUID) ([]models.ScoredAdRecord, error) {
	query := `
		SELECT id, report_id, account_id, ad_name, campaign_name, ranking,
		       composite_score, metrics, created_at
		FROM scored_ads
		WHERE report_id = $1
		ORDER BY ranking ASC
	`

	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredAds(rows)
}

func scanScoredAds(rows pgx.Rows) ([]models.ScoredAdRecord, error) {
	var ads []models.ScoredAdRecord
	for rows.Next() {
		ad := models.ScoredAdRecord{}
		err := rows.Scan(
			&ad.ID,
			&ad.ReportID,
			&ad.AccountID,
			&ad.AdName,
			&ad.CampaignName,
			&ad.Ranking,
			&ad.CompositeScore,
			&ad.Metrics,
			&ad.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ads, nil
}
