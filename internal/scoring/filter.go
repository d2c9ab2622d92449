package scoring

import (
	"errors"
	"sort"
)

// FilterOptions select the subset of scored ads considered for the
// winners/underperformers split. Thresholds are inclusive (>=); an empty
// campaign list admits every campaign.
type FilterOptions struct {
	MinImpressions float64  `json:"min_impressions"`
	MinClicks      float64  `json:"min_clicks"`
	Campaigns      []string `json:"campaigns,omitempty"`
}

// Apply returns the ads passing every filter, preserving input order. An
// empty result is a valid, reportable state.
func (o FilterOptions) Apply(ads []ScoredAd) []ScoredAd {
	var allowed map[string]struct{}
	if len(o.Campaigns) > 0 {
		allowed = make(map[string]struct{}, len(o.Campaigns))
		for _, c := range o.Campaigns {
			allowed[c] = struct{}{}
		}
	}

	out := make([]ScoredAd, 0, len(ads))
	for _, ad := range ads {
		if ad.Impressions < o.MinImpressions || ad.Clicks < o.MinClicks {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[ad.CampaignName]; !ok {
				continue
			}
		}
		out = append(out, ad)
	}
	return out
}

// Split partitions a filtered batch around its median composite score.
type Split struct {
	// MedianScore is the median composite score of the batch: the middle
	// value for odd-sized batches, the mean of the two middle values for
	// even-sized ones.
	MedianScore float64 `json:"median_score"`
	// Winners score at or above the median, ordered best first.
	Winners []ScoredAd `json:"winners"`
	// Underperformers score below the median, ordered worst first.
	Underperformers []ScoredAd `json:"underperformers"`
}

// ErrEmptyBatch is returned when a median split is requested for an empty
// set of ads. Callers must filter first and check for emptiness.
var ErrEmptyBatch = errors.New("cannot split an empty batch of scored ads")

// SplitByMedian computes the median composite score over ads and partitions
// them into winners (score >= median, descending) and underperformers
// (score < median, ascending).
func SplitByMedian(ads []ScoredAd) (*Split, error) {
	if len(ads) == 0 {
		return nil, ErrEmptyBatch
	}

	median := medianScore(ads)

	split := &Split{
		MedianScore:     median,
		Winners:         make([]ScoredAd, 0, len(ads)),
		Underperformers: make([]ScoredAd, 0),
	}
	for _, ad := range ads {
		if ad.CompositeScore >= median {
			split.Winners = append(split.Winners, ad)
		} else {
			split.Underperformers = append(split.Underperformers, ad)
		}
	}

	sort.SliceStable(split.Winners, func(i, j int) bool {
		return split.Winners[i].CompositeScore > split.Winners[j].CompositeScore
	})
	sort.SliceStable(split.Underperformers, func(i, j int) bool {
		return split.Underperformers[i].CompositeScore < split.Underperformers[j].CompositeScore
	})

	return split, nil
}

func medianScore(ads []ScoredAd) float64 {
	scores := make([]float64, len(ads))
	for i, ad := range ads {
		scores[i] = ad.CompositeScore
	}
	sort.Float64s(scores)

	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return scores[mid]
	}
	return (scores[mid-1] + scores[mid]) / 2
}
