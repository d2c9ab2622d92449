package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Reporting levels accepted for an insights upload. They mirror the levels
// the ads platform exports: per-campaign, per-ad, and account-wide slices.
const (
	LevelCampaign = "campaign"
	LevelAd       = "ad"
	LevelAccount  = "account"
)

// Upload represents an uploaded insights export (CSV).
// DB columns: id, account_id, filename, file_size, level, date_start,
// date_stop, status, validation_status, row_count, warnings, errors,
// idempotency_key, content_hash, created_at, updated_at
type Upload struct {
	ID               uuid.UUID       `json:"upload_id"`
	AccountID        string          `json:"account_id"`
	Filename         string          `json:"filename"`
	FileSize         int64           `json:"file_size"`
	Level            string          `json:"level"`
	DateStart        *string         `json:"date_start,omitempty"`
	DateStop         *string         `json:"date_stop,omitempty"`
	Status           string          `json:"status"`
	ValidationStatus string          `json:"validation_status"`
	RowCount         int             `json:"row_count"`
	Warnings         json.RawMessage `json:"warnings"`
	Errors           json.RawMessage `json:"errors"`
	IdempotencyKey   *string         `json:"idempotency_key,omitempty"`
	ContentHash      *string         `json:"content_hash,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// InsightRow is one parsed row of an insights export, stored as JSONB.
// DB columns: id, upload_id, account_id, entity_name, campaign_name,
// data, created_at
type InsightRow struct {
	ID           uuid.UUID       `json:"id"`
	UploadID     uuid.UUID       `json:"upload_id"`
	AccountID    string          `json:"account_id"`
	EntityName   string          `json:"entity_name"`
	CampaignName string          `json:"campaign_name"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Report represents one scoring execution over an upload's rows.
// DB columns: id, upload_id, account_id, status, weights, row_count,
// scored_count, attempt, last_error, idempotency_key, duration_ms,
// created_at, updated_at
type Report struct {
	ID             uuid.UUID       `json:"report_id"`
	UploadID       uuid.UUID       `json:"upload_id"`
	AccountID      string          `json:"account_id"`
	Status         string          `json:"status"`
	Weights        json.RawMessage `json:"weights,omitempty"`
	RowCount       *int            `json:"row_count,omitempty"`
	ScoredCount    *int            `json:"scored_count,omitempty"`
	Attempt        int             `json:"attempt"`
	LastError      *string         `json:"last_error,omitempty"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty"`
	DurationMs     *int            `json:"duration_ms,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ScoredAdRecord persists one scored ad of a report. The full metric set
// (rates, normalized sub-scores) lives in the Metrics JSONB payload; the
// columns pulled out of it exist for ordering and display.
// DB columns: id, report_id, account_id, ad_name, campaign_name, ranking,
// composite_score, metrics, created_at
type ScoredAdRecord struct {
	ID             uuid.UUID       `json:"id"`
	ReportID       uuid.UUID       `json:"report_id"`
	AccountID      string          `json:"account_id"`
	AdName         string          `json:"ad_name"`
	CampaignName   string          `json:"campaign_name"`
	Ranking        int             `json:"ranking"`
	CompositeScore float64         `json:"composite_score"`
	Metrics        json.RawMessage `json:"metrics"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Pagination holds pagination metadata.
type Pagination struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}
