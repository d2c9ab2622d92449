package scoring

// Summary holds the account-level KPI totals shown at the top of a report.
// Averages are taken over rows where the metric is present; missing values
// are excluded rather than counted as zero.
type Summary struct {
	TotalSpend            float64 `json:"total_spend"`
	TotalClicks           float64 `json:"total_clicks"`
	TotalImpressions      float64 `json:"total_impressions"`
	TotalReach            float64 `json:"total_reach"`
	TotalLandingPageViews float64 `json:"total_landing_page_views"`
	TotalMessagingStarts  float64 `json:"total_messaging_conversation_starts"`
	AvgCTR                float64 `json:"avg_ctr"`
	AvgCPC                float64 `json:"avg_cpc"`
	RowCount              int     `json:"row_count"`
}

// Summarize totals the derived batch. It tolerates missing columns the same
// way the scorer does.
func Summarize(rows []Row) Summary {
	s := Summary{RowCount: len(rows)}

	var ctrSum, cpcSum float64
	var ctrN, cpcN int
	for _, row := range rows {
		s.TotalSpend += numeric(row, ColSpend)
		s.TotalClicks += numeric(row, ColClicks)
		s.TotalImpressions += numeric(row, ColImpressions)
		s.TotalReach += numeric(row, ColReach)
		s.TotalLandingPageViews += numeric(row, ColLandingPageView)
		s.TotalMessagingStarts += numeric(row, ColMessagingStarts)

		if v, ok := toFloat(row[ColCTR]); ok {
			ctrSum += v
			ctrN++
		}
		if v, ok := toFloat(row[ColCPC]); ok {
			cpcSum += v
			cpcN++
		}
	}

	if ctrN > 0 {
		s.AvgCTR = ctrSum / float64(ctrN)
	}
	if cpcN > 0 {
		s.AvgCPC = cpcSum / float64(cpcN)
	}
	return s
}
