package ingest

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admetric-labs/ad-performance-iq/internal/models"
)

func TestParse_AdLevel(t *testing.T) {
	csvData := `ad_name,campaign_name,impressions,clicks,spend
Ad A,Spring,1000,100,50.5
Ad B,Spring,500,10,20
`

	records, warnings, err := Parse(strings.NewReader(csvData), models.LevelAd)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 2)

	assert.Equal(t, "Ad A", records[0].EntityName)
	assert.Equal(t, "Spring", records[0].CampaignName)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(records[0].Data, &row))
	// Values are kept as raw strings; coercion happens at scoring time.
	assert.Equal(t, "1000", row["impressions"])
	assert.Equal(t, "50.5", row["spend"])
}

func TestParse_ActionsColumnKeptVerbatim(t *testing.T) {
	csvData := `ad_name,clicks,actions
Ad A,10,"[{""action_type"":""landing_page_view"",""value"":""3""}]"
`

	records, _, err := Parse(strings.NewReader(csvData), models.LevelAd)

	require.NoError(t, err)
	require.Len(t, records, 1)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(records[0].Data, &row))
	assert.Equal(t, `[{"action_type":"landing_page_view","value":"3"}]`, row["actions"])
}

func TestParse_MissingIdentityColumnFails(t *testing.T) {
	csvData := `campaign_name,impressions
Spring,1000
`

	_, _, err := Parse(strings.NewReader(csvData), models.LevelAd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ad_name")
}

func TestParse_CampaignLevelIdentity(t *testing.T) {
	csvData := `campaign_name,impressions,clicks
Spring,1000,100
Winter,500,10
`

	records, warnings, err := Parse(strings.NewReader(csvData), models.LevelCampaign)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, records, 2)
	// Without an ad_name, the campaign name identifies the row.
	assert.Equal(t, "Spring", records[0].EntityName)
	assert.Equal(t, "Winter", records[1].EntityName)
}

func TestParse_AccountLevelNeedsNoIdentity(t *testing.T) {
	csvData := `impressions,clicks,spend
10000,500,300
`

	records, _, err := Parse(strings.NewReader(csvData), models.LevelAccount)

	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestParse_UnknownLevel(t *testing.T) {
	_, _, err := Parse(strings.NewReader("ad_name\nX\n"), "adset")
	assert.Error(t, err)
}

func TestParse_NoMetricColumnsFails(t *testing.T) {
	csvData := `ad_name,campaign_name
Ad A,Spring
`

	_, _, err := Parse(strings.NewReader(csvData), models.LevelAd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no metric columns")
}

func TestParse_UnknownColumnsWarn(t *testing.T) {
	csvData := `ad_name,impressions,mystery_metric
Ad A,1000,42
`

	records, warnings, err := Parse(strings.NewReader(csvData), models.LevelAd)

	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "mystery_metric")

	// The unknown column still lands in the stored row.
	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(records[0].Data, &row))
	assert.Equal(t, "42", row["mystery_metric"])
}

func TestParse_RowsMissingIdentitySkipped(t *testing.T) {
	csvData := `ad_name,impressions
Ad A,1000
,500
Ad C,200
`

	records, warnings, err := Parse(strings.NewReader(csvData), models.LevelAd)

	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "row 3")
	assert.Equal(t, "Ad A", records[0].EntityName)
	assert.Equal(t, "Ad C", records[1].EntityName)
}

func TestParse_EmptyFile(t *testing.T) {
	_, _, err := Parse(strings.NewReader(""), models.LevelAd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestParse_ShortRowsPadded(t *testing.T) {
	csvData := `ad_name,impressions,clicks
Ad A,1000
`

	records, _, err := Parse(strings.NewReader(csvData), models.LevelAd)

	require.NoError(t, err)
	require.Len(t, records, 1)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(records[0].Data, &row))
	assert.Equal(t, "", row["clicks"])
}
