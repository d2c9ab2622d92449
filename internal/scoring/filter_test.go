package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adsWithScores(scores ...float64) []ScoredAd {
	ads := make([]ScoredAd, len(scores))
	for i, s := range scores {
		ads[i] = ScoredAd{AdName: string(rune('A' + i)), CompositeScore: s}
	}
	return ads
}

func TestFilterOptions_InclusiveBoundary(t *testing.T) {
	ads := []ScoredAd{
		{AdName: "exact", Impressions: 100, Clicks: 10},
		{AdName: "below", Impressions: 99, Clicks: 10},
		{AdName: "few clicks", Impressions: 100, Clicks: 9},
	}

	opts := FilterOptions{MinImpressions: 100, MinClicks: 10}
	filtered := opts.Apply(ads)

	require.Len(t, filtered, 1)
	assert.Equal(t, "exact", filtered[0].AdName)
}

func TestFilterOptions_CampaignAllowList(t *testing.T) {
	ads := []ScoredAd{
		{AdName: "a1", CampaignName: "Spring", Impressions: 500, Clicks: 50},
		{AdName: "b1", CampaignName: "Winter", Impressions: 500, Clicks: 50},
		{AdName: "a2", CampaignName: "Spring", Impressions: 500, Clicks: 50},
	}

	filtered := FilterOptions{Campaigns: []string{"Spring"}}.Apply(ads)

	require.Len(t, filtered, 2)
	assert.Equal(t, "a1", filtered[0].AdName)
	assert.Equal(t, "a2", filtered[1].AdName)

	// An empty allow-list admits every campaign.
	assert.Len(t, FilterOptions{}.Apply(ads), 3)
}

func TestFilterOptions_EmptyResultIsValid(t *testing.T) {
	ads := []ScoredAd{
		{AdName: "a", Impressions: 10, Clicks: 1},
	}

	filtered := FilterOptions{MinImpressions: 1000}.Apply(ads)

	require.NotNil(t, filtered)
	assert.Empty(t, filtered)
}

func TestSplitByMedian_EvenBatch(t *testing.T) {
	// Scores [10, 20, 30, 40]: median is the mean of the middle two (25).
	split, err := SplitByMedian(adsWithScores(10, 20, 30, 40))
	require.NoError(t, err)

	assert.Equal(t, 25.0, split.MedianScore)

	// Winners: >= median, best first.
	require.Len(t, split.Winners, 2)
	assert.Equal(t, 40.0, split.Winners[0].CompositeScore)
	assert.Equal(t, 30.0, split.Winners[1].CompositeScore)

	// Underperformers: < median, worst first.
	require.Len(t, split.Underperformers, 2)
	assert.Equal(t, 10.0, split.Underperformers[0].CompositeScore)
	assert.Equal(t, 20.0, split.Underperformers[1].CompositeScore)
}

func TestSplitByMedian_OddBatch(t *testing.T) {
	split, err := SplitByMedian(adsWithScores(30, 10, 20))
	require.NoError(t, err)

	assert.Equal(t, 20.0, split.MedianScore)
	// The median element itself is a winner (>= is inclusive).
	assert.Len(t, split.Winners, 2)
	assert.Len(t, split.Underperformers, 1)
}

func TestSplitByMedian_AllEqualScores(t *testing.T) {
	split, err := SplitByMedian(adsWithScores(50, 50, 50))
	require.NoError(t, err)

	assert.Equal(t, 50.0, split.MedianScore)
	assert.Len(t, split.Winners, 3)
	assert.Empty(t, split.Underperformers)
}

func TestSplitByMedian_EmptyBatch(t *testing.T) {
	split, err := SplitByMedian(nil)

	assert.Nil(t, split)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestSplitByMedian_SingleAd(t *testing.T) {
	split, err := SplitByMedian(adsWithScores(42))
	require.NoError(t, err)

	assert.Equal(t, 42.0, split.MedianScore)
	assert.Len(t, split.Winners, 1)
	assert.Empty(t, split.Underperformers)
}
