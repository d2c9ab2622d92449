package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/admetric-labs/ad-performance-iq/internal/models"
	"github.com/admetric-labs/ad-performance-iq/internal/repository"
)

// Pipeline manages the asynchronous report execution workflow: it loads an
// upload's insight rows, derives the action-based counters, scores the
// batch, and persists the ranked result.
type Pipeline struct {
	reportRepo     *repository.ReportRepository
	insightRowRepo *repository.InsightRowRepository
	scoredAdRepo   *repository.ScoredAdRepository
	maxRetries     int
	retryBaseWait  time.Duration
}

// NewPipeline creates a new report pipeline.
func NewPipeline(
	reportRepo *repository.ReportRepository,
	insightRowRepo *repository.InsightRowRepository,
	scoredAdRepo *repository.ScoredAdRepository,
	maxRetries int,
	retryBaseWait time.Duration,
) *Pipeline {
	return &Pipeline{
		reportRepo:     reportRepo,
		insightRowRepo: insightRowRepo,
		scoredAdRepo:   scoredAdRepo,
		maxRetries:     maxRetries,
		retryBaseWait:  retryBaseWait,
	}
}

// Execute performs one synchronous report execution.
// Steps:
// a. Updates report status to "running"
// b. Resolves the scoring weights (report overrides merged over defaults)
// c. Fetches the upload's insight rows
// d. Derives action counters and coerces metrics (Derive)
// e. Scores the batch (ScoreAds), ranks by composite_score DESC
// f. Bulk inserts scored ads
// g. Updates report status to "succeeded" with duration_ms and scored_count
// On error: updates report status to "failed" with last_error.
func (p *Pipeline) Execute(ctx context.Context, report *models.Report) error {
	startTime := time.Now()
	logger := slog.Default().With(
		slog.String("service", "report-pipeline"),
		slog.String("account_id", report.AccountID),
		slog.String("upload_id", report.UploadID.String()),
		slog.String("report_id", report.ID.String()),
	)

	logger.Info("updating report status to running")
	if err := p.reportRepo.UpdateStatus(ctx, report.ID, "running", nil, nil, nil); err != nil {
		logger.Error("failed to update report status", slog.String("error", err.Error()))
		return p.handleExecutionError(ctx, logger, report, err)
	}

	weights, err := ResolveWeights(report.Weights)
	if err != nil {
		logger.Error("invalid scoring weights", slog.String("error", err.Error()))
		return p.handleExecutionError(ctx, logger, report, err)
	}

	records, err := p.insightRowRepo.GetByUpload(ctx, report.UploadID)
	if err != nil {
		logger.Error("failed to fetch insight rows", slog.String("error", err.Error()))
		return p.handleExecutionError(ctx, logger, report, err)
	}
	logger.Info("insight rows fetched", slog.Int("count", len(records)))

	if len(records) == 0 {
		// An empty batch is a valid, reportable state.
		duration := int(time.Since(startTime).Milliseconds())
		if err := p.reportRepo.UpdateStatus(ctx, report.ID, "succeeded", intPtr(0), nil, intPtr(duration)); err != nil {
			logger.Error("failed to update final status", slog.String("error", err.Error()))
		}
		return nil
	}

	// Decode the stored rows. Undecodable rows are skipped, never fatal.
	batch := make([]Row, 0, len(records))
	for _, record := range records {
		var row Row
		if err := json.Unmarshal(record.Data, &row); err != nil {
			logger.Warn("failed to decode insight row, skipping",
				slog.String("row_id", record.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		batch = append(batch, row)
	}

	Derive(batch)
	ads := ScoreAds(batch, weights)

	ranked := make([]ScoredAd, len(ads))
	copy(ranked, ads)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})

	now := time.Now()
	scored := make([]models.ScoredAdRecord, 0, len(ranked))
	for i, ad := range ranked {
		metrics, err := json.Marshal(ad)
		if err != nil {
			logger.Warn("failed to marshal scored ad, skipping",
				slog.String("ad_name", ad.AdName))
			continue
		}
		scored = append(scored, models.ScoredAdRecord{
			ID:             uuid.New(),
			ReportID:       report.ID,
			AccountID:      report.AccountID,
			AdName:         ad.AdName,
			CampaignName:   ad.CampaignName,
			Ranking:        i + 1,
			CompositeScore: ad.CompositeScore,
			Metrics:        metrics,
			CreatedAt:      now,
		})
	}

	logger.Info("ads scored",
		slog.Int("scored_count", len(scored)),
		slog.Int("row_count", len(records)))

	if err := p.scoredAdRepo.BulkInsert(ctx, scored); err != nil {
		logger.Error("failed to bulk insert scored ads", slog.String("error", err.Error()))
		return p.handleExecutionError(ctx, logger, report, err)
	}

	duration := int(time.Since(startTime).Milliseconds())
	scoredCount := len(scored)
	if err := p.reportRepo.UpdateStatus(ctx, report.ID, "succeeded", &scoredCount, nil, &duration); err != nil {
		logger.Error("failed to update final status", slog.String("error", err.Error()))
		return err
	}

	logger.Info("report pipeline completed successfully",
		slog.Int("duration_ms", duration),
		slog.Int("scored_count", scoredCount))

	return nil
}

// ExecuteWithRetry wraps Execute with exponential backoff + jitter retry logic.
func (p *Pipeline) ExecuteWithRetry(ctx context.Context, report *models.Report) error {
	logger := slog.Default().With(
		slog.String("service", "report-pipeline"),
		slog.String("account_id", report.AccountID),
		slog.String("report_id", report.ID.String()),
	)

	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		logger.Info("executing report pipeline",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", p.maxRetries))

		if err := p.reportRepo.IncrementAttempt(ctx, report.ID); err != nil {
			logger.Error("failed to increment attempt counter", slog.String("error", err.Error()))
		}

		err := p.Execute(ctx, report)
		if err == nil {
			logger.Info("report pipeline succeeded")
			return nil
		}

		lastErr = err
		logger.Warn("report pipeline failed",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1))

		if attempt >= p.maxRetries {
			break
		}

		backoff := p.calculateBackoff(attempt)
		logger.Info("retrying after backoff",
			slog.Int("backoff_ms", int(backoff.Milliseconds())),
			slog.Int("next_attempt", attempt+2))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			logger.Info("context cancelled, stopping retries")
			return ctx.Err()
		}
	}

	errorMsg := fmt.Sprintf("report pipeline failed after %d attempts: %v", p.maxRetries+1, lastErr)
	logger.Error("all retry attempts exhausted", slog.String("error", errorMsg))

	if err := p.reportRepo.UpdateStatus(ctx, report.ID, "failed", nil, &errorMsg, nil); err != nil {
		logger.Error("failed to update failed status", slog.String("error", err.Error()))
	}

	return fmt.Errorf("%s", errorMsg)
}

// ResolveWeights merges a report's custom weight overrides (if any) over the
// default rubric and validates the result.
func ResolveWeights(overrides json.RawMessage) (Weights, error) {
	weights := DefaultWeights()
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &weights); err != nil {
			return Weights{}, fmt.Errorf("decode weights: %w", err)
		}
	}
	if err := weights.Validate(); err != nil {
		return Weights{}, err
	}
	return weights, nil
}

// calculateBackoff calculates exponential backoff with jitter.
// Formula: min(baseWait * 2^attempt + random jitter, maxWait)
func (p *Pipeline) calculateBackoff(attempt int) time.Duration {
	exponentialMs := p.retryBaseWait.Milliseconds() * int64(math.Pow(2, float64(attempt)))

	// Jitter: random value between 0 and exponentialMs * 0.1
	jitterMs := rand.Int63n(exponentialMs/10 + 1)

	totalMs := exponentialMs + jitterMs

	// Cap at a reasonable maximum (5 minutes)
	maxMs := int64(5 * 60 * 1000)
	if totalMs > maxMs {
		totalMs = maxMs
	}

	return time.Duration(totalMs) * time.Millisecond
}

// handleExecutionError updates report status to "failed" and returns the error.
func (p *Pipeline) handleExecutionError(
	ctx context.Context,
	logger *slog.Logger,
	report *models.Report,
	err error,
) error {
	errorMsg := err.Error()
	logger.Error("execution error occurred", slog.String("error", errorMsg))

	if updateErr := p.reportRepo.UpdateStatus(ctx, report.ID, "failed", nil, &errorMsg, nil); updateErr != nil {
		logger.Error("failed to update report status to failed",
			slog.String("update_error", updateErr.Error()))
	}

	return err
}

func intPtr(i int) *int {
	return &i
}
