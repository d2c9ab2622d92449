package scoring

import (
	"fmt"
	"math"
)

// Weights holds the composite-score rubric. Every tier's weights are
// expected to sum to 1.0 (the defaults do); custom weights are accepted as
// injected configuration and are the caller's responsibility to balance,
// but must be non-negative.
type Weights struct {
	Engagement EngagementWeights `json:"engagement"`
	Efficiency EfficiencyWeights `json:"efficiency"`
	Volume     VolumeWeights     `json:"volume"`
	Composite  CompositeWeights  `json:"composite"`
}

// EngagementWeights weight the click-quality rates.
type EngagementWeights struct {
	CTR      float64 `json:"ctr"`
	LPVRate  float64 `json:"lpv_rate"`
	ConvRate float64 `json:"conv_rate"`
}

// EfficiencyWeights weight the cost metrics (lower cost scores higher).
type EfficiencyWeights struct {
	CostPerClick float64 `json:"cost_per_click"`
	CostPerLPV   float64 `json:"cost_per_lpv"`
}

// VolumeWeights weight the delivery metrics.
type VolumeWeights struct {
	Clicks    float64 `json:"clicks"`
	Reach     float64 `json:"reach"`
	ReachRate float64 `json:"reach_rate"`
}

// CompositeWeights weight the top-level tiers.
type CompositeWeights struct {
	Engagement float64 `json:"engagement"`
	Efficiency float64 `json:"efficiency"`
	Volume     float64 `json:"volume"`
	Frequency  float64 `json:"frequency"`
}

// DefaultWeights returns the fixed scoring rubric used by the dashboard.
func DefaultWeights() Weights {
	return Weights{
		Engagement: EngagementWeights{CTR: 0.4, LPVRate: 0.3, ConvRate: 0.3},
		Efficiency: EfficiencyWeights{CostPerClick: 0.5, CostPerLPV: 0.5},
		Volume:     VolumeWeights{Clicks: 0.4, Reach: 0.3, ReachRate: 0.3},
		Composite:  CompositeWeights{Engagement: 0.4, Efficiency: 0.3, Volume: 0.2, Frequency: 0.1},
	}
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"engagement.ctr":            w.Engagement.CTR,
		"engagement.lpv_rate":       w.Engagement.LPVRate,
		"engagement.conv_rate":      w.Engagement.ConvRate,
		"efficiency.cost_per_click": w.Efficiency.CostPerClick,
		"efficiency.cost_per_lpv":   w.Efficiency.CostPerLPV,
		"volume.clicks":             w.Volume.Clicks,
		"volume.reach":              w.Volume.Reach,
		"volume.reach_rate":         w.Volume.ReachRate,
		"composite.engagement":      w.Composite.Engagement,
		"composite.efficiency":      w.Composite.Efficiency,
		"composite.volume":          w.Composite.Volume,
		"composite.frequency":       w.Composite.Frequency,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative finite number", name)
		}
	}
	return nil
}

// ScoredAd is one ad's scored metrics. Normalized fields are relative to the
// batch the ad was scored with; scores from different batches or date ranges
// are not comparable.
type ScoredAd struct {
	AdName       string `json:"ad_name"`
	CampaignName string `json:"campaign_name"`

	Clicks           float64 `json:"clicks"`
	Impressions      float64 `json:"impressions"`
	Reach            float64 `json:"reach"`
	LandingPageViews float64 `json:"landing_page_view"`
	MessagingStarts  float64 `json:"messaging_conversation_starts"`
	CostPerClick     float64 `json:"cost_per_click"`
	CostPerLPV       float64 `json:"cost_per_lpv"`

	CTR       float64 `json:"ctr"`
	LPVRate   float64 `json:"lpv_rate"`
	ConvRate  float64 `json:"conv_rate"`
	ReachRate float64 `json:"reach_rate"`
	Frequency float64 `json:"frequency"`

	FrequencyScore   float64 `json:"frequency_score"`
	ClicksNorm       float64 `json:"clicks_norm"`
	ImpressionsNorm  float64 `json:"impressions_norm"`
	ReachNorm        float64 `json:"reach_norm"`
	CTRNorm          float64 `json:"ctr_norm"`
	LPVRateNorm      float64 `json:"lpv_rate_norm"`
	ConvRateNorm     float64 `json:"conv_rate_norm"`
	ReachRateNorm    float64 `json:"reach_rate_norm"`
	CostPerClickNorm float64 `json:"cost_per_click_norm"`
	CostPerLPVNorm   float64 `json:"cost_per_lpv_norm"`

	CompositeScore float64 `json:"composite_score"`
}

// ScoreAds computes a composite performance score (0-100) for every row of
// the batch. The transformation is pure and order-preserving: no state is
// carried between calls, and every normalization divisor is recomputed from
// the batch at hand. An empty batch returns an empty result, not an error.
//
// Missing metric columns are read as all-zero; reach falls back to
// impressions row-wise when zero or missing, since account-level reports
// omit per-row reach.
func ScoreAds(rows []Row, w Weights) []ScoredAd {
	if len(rows) == 0 {
		return []ScoredAd{}
	}

	ads := make([]ScoredAd, len(rows))

	for i, row := range rows {
		ad := &ads[i]
		ad.AdName, _ = row[ColAdName].(string)
		ad.CampaignName, _ = row[ColCampaignName].(string)

		ad.Clicks = numeric(row, ColClicks)
		ad.Impressions = numeric(row, ColImpressions)
		ad.LandingPageViews = numeric(row, ColLandingPageView)
		ad.MessagingStarts = numeric(row, ColMessagingStarts)
		ad.CostPerClick = numeric(row, ColCPC)
		ad.CostPerLPV = numeric(row, ColCostPerLPV)

		ad.Reach = numeric(row, ColReach)
		if ad.Reach == 0 {
			ad.Reach = ad.Impressions
		}

		ad.CTR = rate(100*ad.Clicks, ad.Impressions)
		ad.LPVRate = rate(100*ad.LandingPageViews, ad.Clicks)
		ad.ConvRate = rate(100*ad.MessagingStarts, ad.Clicks)
		ad.ReachRate = rate(100*ad.Reach, ad.Impressions)
		ad.Frequency = rate(ad.Impressions, ad.Reach)
	}

	maxFreq := maxOf(ads, func(a *ScoredAd) float64 { return a.Frequency })
	for i := range ads {
		if maxFreq > 0 {
			ads[i].FrequencyScore = zeroNaN(1 - ads[i].Frequency/maxFreq)
		} else {
			ads[i].FrequencyScore = 0
		}
	}

	// Higher-is-better metrics: scaled against the batch maximum.
	normalize(ads,
		func(a *ScoredAd) float64 { return a.Clicks },
		func(a *ScoredAd, v float64) { a.ClicksNorm = v })
	normalize(ads,
		func(a *ScoredAd) float64 { return a.Impressions },
		func(a *ScoredAd, v float64) { a.ImpressionsNorm = v })
	normalize(ads,
		func(a *ScoredAd) float64 { return a.Reach },
		func(a *ScoredAd, v float64) { a.ReachNorm = v })
	normalize(ads,
		func(a *ScoredAd) float64 { return a.CTR },
		func(a *ScoredAd, v float64) { a.CTRNorm = v })
	normalize(ads,
		func(a *ScoredAd) float64 { return a.LPVRate },
		func(a *ScoredAd, v float64) { a.LPVRateNorm = v })
	normalize(ads,
		func(a *ScoredAd) float64 { return a.ConvRate },
		func(a *ScoredAd, v float64) { a.ConvRateNorm = v })
	normalize(ads,
		func(a *ScoredAd) float64 { return a.ReachRate },
		func(a *ScoredAd, v float64) { a.ReachRateNorm = v })

	// Cost metrics: lower is better, so the normalized value is inverted.
	// A batch whose costs are all zero carries no cost signal and scores 0
	// on these dimensions instead of rewarding the absence of cost data.
	normalizeInverted(ads,
		func(a *ScoredAd) float64 { return a.CostPerClick },
		func(a *ScoredAd, v float64) { a.CostPerClickNorm = v })
	normalizeInverted(ads,
		func(a *ScoredAd) float64 { return a.CostPerLPV },
		func(a *ScoredAd, v float64) { a.CostPerLPVNorm = v })

	for i := range ads {
		ad := &ads[i]
		engagement := ad.CTRNorm*w.Engagement.CTR +
			ad.LPVRateNorm*w.Engagement.LPVRate +
			ad.ConvRateNorm*w.Engagement.ConvRate
		efficiency := ad.CostPerClickNorm*w.Efficiency.CostPerClick +
			ad.CostPerLPVNorm*w.Efficiency.CostPerLPV
		volume := ad.ClicksNorm*w.Volume.Clicks +
			ad.ReachNorm*w.Volume.Reach +
			ad.ReachRateNorm*w.Volume.ReachRate

		ad.CompositeScore = 100 * (engagement*w.Composite.Engagement +
			efficiency*w.Composite.Efficiency +
			volume*w.Composite.Volume +
			ad.FrequencyScore*w.Composite.Frequency)
	}

	return ads
}

// rate divides num by den with the zero-safe policy: a zero denominator or
// a non-finite result yields 0, never Inf or NaN.
func rate(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return zeroNaN(num / den)
}

func zeroNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func maxOf(ads []ScoredAd, get func(*ScoredAd) float64) float64 {
	max := math.Inf(-1)
	for i := range ads {
		if v := get(&ads[i]); v > max {
			max = v
		}
	}
	return max
}

// normalize applies min-free max-scaling: v/max across the batch. When the
// batch maximum is zero or negative the metric carries no signal and every
// normalized value is 0.
func normalize(ads []ScoredAd, get func(*ScoredAd) float64, set func(*ScoredAd, float64)) {
	max := maxOf(ads, get)
	for i := range ads {
		if max > 0 {
			set(&ads[i], zeroNaN(get(&ads[i])/max))
		} else {
			set(&ads[i], 0)
		}
	}
}

// normalizeInverted is normalize for cost metrics: 1 - v/max, so the
// cheapest ad in the batch scores highest. Degenerate batches score 0.
func normalizeInverted(ads []ScoredAd, get func(*ScoredAd) float64, set func(*ScoredAd, float64)) {
	max := maxOf(ads, get)
	for i := range ads {
		if max > 0 {
			set(&ads[i], zeroNaN(1-get(&ads[i])/max))
		} else {
			set(&ads[i], 0)
		}
	}
}
