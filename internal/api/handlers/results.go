package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/admetric-labs/ad-performance-iq/internal/api/response"
	"github.com/admetric-labs/ad-performance-iq/internal/config"
	"github.com/admetric-labs/ad-performance-iq/internal/models"
	"github.com/admetric-labs/ad-performance-iq/internal/repository"
	"github.com/admetric-labs/ad-performance-iq/internal/scoring"
)

// ResultsHandler serves the scored output of a report: the ranked ad list,
// the winners/underperformers split, the account summary, and the CSV export.
type ResultsHandler struct {
	scoredAdRepo   *repository.ScoredAdRepository
	reportRepo     *repository.ReportRepository
	insightRowRepo *repository.InsightRowRepository
	cfg            *config.Config
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(
	scoredAdRepo *repository.ScoredAdRepository,
	reportRepo *repository.ReportRepository,
	insightRowRepo *repository.InsightRowRepository,
	cfg *config.Config,
) *ResultsHandler {
	return &ResultsHandler{
		scoredAdRepo:   scoredAdRepo,
		reportRepo:     reportRepo,
		insightRowRepo: insightRowRepo,
		cfg:            cfg,
	}
}

// getReport loads a report scoped to the caller's account, writing the error
// response itself when the report is unavailable.
func (h *ResultsHandler) getReport(c *gin.Context) *models.Report {
	accountID := c.MustGet("account_id").(string)

	reportID, err := uuid.Parse(c.Param("report_id"))
	if err != nil {
		response.BadRequest(c, "invalid report_id format", nil)
		return nil
	}

	report, err := h.reportRepo.GetByID(c.Request.Context(), accountID, reportID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve report: %v", err))
		return nil
	}
	if report == nil {
		response.NotFound(c, "report not found")
		return nil
	}
	return report
}

// HandleGetAds handles GET /api/v1/reports/:report_id/ads.
// Returns the ranked scored ads of a report, paginated, with an optional
// min_score filter.
func (h *ResultsHandler) HandleGetAds(c *gin.Context) {
	report := h.getReport(c)
	if report == nil {
		return
	}

	// Parse pagination params
	page := 1
	pageSize := 20

	if pageParam := c.Query("page"); pageParam != "" {
		var p int
		if _, err := fmt.Sscanf(pageParam, "%d", &p); err == nil && p > 0 {
			page = p
		}
	}

	if pageSizeParam := c.Query("page_size"); pageSizeParam != "" {
		var ps int
		if _, err := fmt.Sscanf(pageSizeParam, "%d", &ps); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}

	// Parse optional min_score filter
	var minScore *float64
	if minScoreParam := c.Query("min_score"); minScoreParam != "" {
		var ms float64
		if _, err := fmt.Sscanf(minScoreParam, "%f", &ms); err == nil && ms >= 0 {
			minScore = &ms
		}
	}

	records, totalCount, err := h.scoredAdRepo.GetByReport(
		c.Request.Context(),
		report.ID,
		page,
		pageSize,
		minScore,
	)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve scored ads: %v", err))
		return
	}

	adResponses := make([]gin.H, len(records))
	for i, record := range records {
		var metrics scoring.ScoredAd
		if len(record.Metrics) > 0 {
			_ = json.Unmarshal(record.Metrics, &metrics)
		}
		adResponses[i] = gin.H{
			"rank":            record.Ranking,
			"ad_name":         record.AdName,
			"campaign_name":   record.CampaignName,
			"composite_score": record.CompositeScore,
			"metrics":         metrics,
		}
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}

	pagination := models.Pagination{
		Page:         page,
		PageSize:     pageSize,
		TotalResults: totalCount,
		TotalPages:   totalPages,
	}

	result := gin.H{
		"report_id":  report.ID,
		"status":     report.Status,
		"ads":        adResponses,
		"pagination": pagination,
	}

	response.Success(c, http.StatusOK, result)
}

// HandleGetWinners handles GET /api/v1/reports/:report_id/winners.
// Applies the volume filters, then partitions the subset around its median
// composite score: winners at or above it (best first), underperformers
// below it (worst first). An empty subset is a valid result with a null
// median, not an error.
//
// Query params: min_impressions, min_clicks (inclusive thresholds, defaults
// from config), campaigns (comma-separated campaign names; empty admits all).
func (h *ResultsHandler) HandleGetWinners(c *gin.Context) {
	report := h.getReport(c)
	if report == nil {
		return
	}

	opts := scoring.FilterOptions{
		MinImpressions: h.cfg.Scoring.MinImpressions,
		MinClicks:      h.cfg.Scoring.MinClicks,
	}

	if v := c.Query("min_impressions"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			response.BadRequest(c, "min_impressions must be a non-negative number", nil)
			return
		}
		opts.MinImpressions = f
	}

	if v := c.Query("min_clicks"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			response.BadRequest(c, "min_clicks must be a non-negative number", nil)
			return
		}
		opts.MinClicks = f
	}

	if v := c.Query("campaigns"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.Campaigns = append(opts.Campaigns, name)
			}
		}
	}

	records, err := h.scoredAdRepo.GetAllByReport(c.Request.Context(), report.ID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve scored ads: %v", err))
		return
	}

	ads := decodeScoredAds(records)
	filtered := opts.Apply(ads)

	if len(filtered) == 0 {
		response.Success(c, http.StatusOK, gin.H{
			"report_id":       report.ID,
			"filters":         opts,
			"median_score":    nil,
			"winners":         []scoring.ScoredAd{},
			"underperformers": []scoring.ScoredAd{},
		})
		return
	}

	split, err := scoring.SplitByMedian(filtered)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to split scored ads: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"report_id":       report.ID,
		"filters":         opts,
		"median_score":    split.MedianScore,
		"winners":         split.Winners,
		"underperformers": split.Underperformers,
	})
}

// HandleGetSummary handles GET /api/v1/reports/:report_id/summary.
// Recomputes the account-level KPI totals from the upload's stored rows,
// so the summary covers every row, including ads filtered out of the
// winners view.
func (h *ResultsHandler) HandleGetSummary(c *gin.Context) {
	report := h.getReport(c)
	if report == nil {
		return
	}

	records, err := h.insightRowRepo.GetByUpload(c.Request.Context(), report.UploadID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve insight rows: %v", err))
		return
	}

	batch := make([]scoring.Row, 0, len(records))
	for _, record := range records {
		var row scoring.Row
		if err := json.Unmarshal(record.Data, &row); err != nil {
			continue
		}
		batch = append(batch, row)
	}

	scoring.Derive(batch)
	summary := scoring.Summarize(batch)

	response.Success(c, http.StatusOK, gin.H{
		"report_id": report.ID,
		"upload_id": report.UploadID,
		"summary":   summary,
	})
}

// exportColumns is the CSV header of the scored-ads export, in the order the
// dashboard presents them.
var exportColumns = []string{
	"rank", "ad_name", "campaign_name", "composite_score",
	"impressions", "clicks", "reach", "cost_per_click", "cost_per_lpv",
	"landing_page_view", "messaging_conversation_starts",
	"ctr", "lpv_rate", "conv_rate", "reach_rate", "frequency",
}

// HandleExport handles GET /api/v1/reports/:report_id/export.
// Streams the full ranked result as a CSV attachment. Unlike the JSON
// endpoints the body is the bare file, not an envelope.
func (h *ResultsHandler) HandleExport(c *gin.Context) {
	report := h.getReport(c)
	if report == nil {
		return
	}

	records, err := h.scoredAdRepo.GetAllByReport(c.Request.Context(), report.ID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve scored ads: %v", err))
		return
	}

	filename := fmt.Sprintf("scored_ads_%s.csv", report.ID)
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportColumns)

	for _, record := range records {
		var m scoring.ScoredAd
		if len(record.Metrics) > 0 {
			_ = json.Unmarshal(record.Metrics, &m)
		}
		_ = w.Write([]string{
			strconv.Itoa(record.Ranking),
			record.AdName,
			record.CampaignName,
			formatFloat(record.CompositeScore),
			formatFloat(m.Impressions),
			formatFloat(m.Clicks),
			formatFloat(m.Reach),
			formatFloat(m.CostPerClick),
			formatFloat(m.CostPerLPV),
			formatFloat(m.LandingPageViews),
			formatFloat(m.MessagingStarts),
			formatFloat(m.CTR),
			formatFloat(m.LPVRate),
			formatFloat(m.ConvRate),
			formatFloat(m.ReachRate),
			formatFloat(m.Frequency),
		})
	}

	w.Flush()
}

// decodeScoredAds unmarshals the stored metric payloads back into scored ads.
// Rows with an unreadable payload are dropped rather than failing the request.
func decodeScoredAds(records []models.ScoredAdRecord) []scoring.ScoredAd {
	ads := make([]scoring.ScoredAd, 0, len(records))
	for _, record := range records {
		var ad scoring.ScoredAd
		if err := json.Unmarshal(record.Metrics, &ad); err != nil {
			continue
		}
		ads = append(ads, ad)
	}
	return ads
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
