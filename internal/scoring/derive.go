package scoring

// Row is one reporting row (ad, campaign or account level) as delivered by
// the ingest layer: unordered columns keyed by the platform's field names.
// Metric values may arrive as JSON numbers or numeric strings; identity
// fields are strings. A key may be entirely absent.
type Row = map[string]interface{}

// Column names used by the deriver and scorer.
const (
	ColAdName          = "ad_name"
	ColAdSetName       = "adset_name"
	ColCampaignName    = "campaign_name"
	ColImpressions     = "impressions"
	ColClicks          = "clicks"
	ColReach           = "reach"
	ColSpend           = "spend"
	ColCTR             = "ctr"
	ColCPC             = "cpc"
	ColActions         = "actions"
	ColLandingPageView = "landing_page_view"
	ColMessagingStarts = "messaging_conversation_starts"
	ColCostPerLPV      = "cost_per_lpv"
)

// metricColumns are the columns coerced to float64 by Derive. Values that
// fail coercion become missing (nil), which is distinct from zero: missing
// resolves to 0 only at the point of use.
var metricColumns = []string{
	ColImpressions, ColClicks, ColReach, ColSpend, ColCTR, ColCPC,
	ColLandingPageView, ColMessagingStarts,
}

// Derive enriches rows in place with the counters the scorer consumes:
//
//   - landing_page_view: sum of action values with action_type equal to
//     "landing_page_view" (0 when the actions column is absent)
//   - messaging_conversation_starts: sum of action values whose action_type
//     starts with "onsite_conversion.messaging_conversation_started"
//   - cost_per_lpv: spend / landing_page_view when landing_page_view > 0,
//     missing (nil) otherwise — never zero, never an error
//
// It then coerces every metric column to float64. Malformed action payloads
// are treated as empty lists per row; nothing in Derive fails the batch.
func Derive(rows []Row) {
	for _, row := range rows {
		row[ColLandingPageView] = sumActions(row[ColActions], matchLandingPageView)
		row[ColMessagingStarts] = sumActions(row[ColActions], matchMessagingStart)

		coerceMetrics(row)

		lpv := numeric(row, ColLandingPageView)
		if lpv > 0 {
			row[ColCostPerLPV] = numeric(row, ColSpend) / lpv
		} else {
			row[ColCostPerLPV] = nil
		}
	}
}

// coerceMetrics converts the known metric columns of a row to float64.
// Present but non-convertible values become nil (missing).
func coerceMetrics(row Row) {
	for _, col := range metricColumns {
		value, present := row[col]
		if !present {
			continue
		}
		if f, ok := toFloat(value); ok {
			row[col] = f
		} else {
			row[col] = nil
		}
	}
}

// numeric reads a metric column with a 0.0 default: absent columns, missing
// (nil) values and non-convertible leftovers all resolve to 0 here.
func numeric(row Row, col string) float64 {
	if f, ok := toFloat(row[col]); ok {
		return f
	}
	return 0
}
