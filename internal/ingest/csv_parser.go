package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/admetric-labs/ad-performance-iq/internal/models"
	"github.com/admetric-labs/ad-performance-iq/internal/scoring"
)

// ParsedRow is one validated row of an insights export, ready for storage.
type ParsedRow struct {
	EntityName   string
	CampaignName string
	Data         json.RawMessage
}

// knownColumns are the columns an insights export may carry. Unknown columns
// are kept in the stored row but reported as warnings.
var knownColumns = map[string]struct{}{
	"ad_id":                    {},
	scoring.ColAdName:          {},
	scoring.ColAdSetName:       {},
	scoring.ColCampaignName:    {},
	scoring.ColImpressions:     {},
	scoring.ColClicks:          {},
	scoring.ColReach:           {},
	scoring.ColSpend:           {},
	scoring.ColCTR:             {},
	scoring.ColCPC:             {},
	scoring.ColActions:         {},
	scoring.ColLandingPageView: {},
	scoring.ColMessagingStarts: {},
	"date_start":               {},
	"date_stop":                {},
	"publisher_platform":       {},
	"age":                      {},
	"gender":                   {},
	"device_platform":          {},
}

// identityColumn names the column that identifies a row at each reporting
// level. Account-level exports have no per-row identity.
var identityColumn = map[string]string{
	models.LevelAd:       scoring.ColAdName,
	models.LevelCampaign: scoring.ColCampaignName,
	models.LevelAccount:  "",
}

// Parse reads and validates an insights CSV export, returning parsed rows,
// validation warnings, and any fatal error. Warnings are non-fatal (unknown
// columns, skipped rows); errors are fatal (empty file, missing identity
// column for the level). The per-row actions column, when present, is kept
// verbatim: it holds a JSON-encoded action list that the deriver normalizes
// later, and a malformed value there is a row-local concern for the scorer,
// not an upload failure.
func Parse(reader io.Reader, level string) (records []ParsedRow, warnings []string, err error) {
	records = make([]ParsedRow, 0)
	warnings = make([]string, 0)

	idCol, ok := identityColumn[level]
	if !ok {
		return records, warnings, fmt.Errorf("unknown reporting level %q", level)
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1 // allow variable number of fields

	headers, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return records, warnings, fmt.Errorf("CSV file is empty")
		}
		return records, warnings, fmt.Errorf("failed to read CSV headers: %v", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	headerWarnings, headerErrors := validateHeaders(headers, idCol)
	warnings = append(warnings, headerWarnings...)
	if len(headerErrors) > 0 {
		return records, warnings, fmt.Errorf("header validation failed: %v", headerErrors)
	}

	lineNum := 2 // line 1 is headers

	for {
		csvRow, err := csvReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return records, warnings, fmt.Errorf("line %d: failed to read CSV row: %v", lineNum, err)
		}

		rowMap := make(map[string]interface{}, len(headers))
		for i, header := range headers {
			if i < len(csvRow) {
				rowMap[header] = csvRow[i]
			} else {
				rowMap[header] = ""
			}
		}

		entityName, _ := rowMap[scoring.ColAdName].(string)
		campaignName, _ := rowMap[scoring.ColCampaignName].(string)
		if entityName == "" {
			entityName = campaignName
		}

		// Rows without an identity value at an identified level are
		// skipped and reported.
		if idCol != "" {
			if v, _ := rowMap[idCol].(string); strings.TrimSpace(v) == "" {
				warnings = append(warnings, fmt.Sprintf("row %d skipped: missing %s", lineNum, idCol))
				lineNum++
				continue
			}
		}

		dataJSON, err := json.Marshal(rowMap)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d skipped: %v", lineNum, err))
			lineNum++
			continue
		}

		records = append(records, ParsedRow{
			EntityName:   entityName,
			CampaignName: campaignName,
			Data:         dataJSON,
		})
		lineNum++
	}

	return records, warnings, nil
}

// validateHeaders checks the header row: the level's identity column must be
// present (error), and at least one metric column must exist (error);
// columns outside the known set are warnings only.
func validateHeaders(headers []string, idCol string) (warnings []string, errs []string) {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
		if _, known := knownColumns[h]; !known {
			warnings = append(warnings, fmt.Sprintf("unknown column %q", h))
		}
	}

	if idCol != "" {
		if _, ok := present[idCol]; !ok {
			errs = append(errs, fmt.Sprintf("required column %q not found", idCol))
		}
	}

	hasMetric := false
	for _, col := range []string{
		scoring.ColImpressions, scoring.ColClicks, scoring.ColReach,
		scoring.ColSpend, scoring.ColCTR, scoring.ColCPC, scoring.ColActions,
	} {
		if _, ok := present[col]; ok {
			hasMetric = true
			break
		}
	}
	if !hasMetric {
		errs = append(errs, "no metric columns found (expected at least one of impressions, clicks, reach, spend, ctr, cpc, actions)")
	}

	return warnings, errs
}
