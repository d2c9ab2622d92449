package scoring

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Action type constants matching the ads platform's insights payload.
const (
	// actionLandingPageView is matched exactly.
	actionLandingPageView = "landing_page_view"
	// actionMessagingStartPrefix is matched as a prefix because the platform
	// suffixes the attribution window (e.g. "_7d").
	actionMessagingStartPrefix = "onsite_conversion.messaging_conversation_started"
)

// normalizeActions turns the semi-structured "actions" value of a raw row
// into a sequence of records. The value arrives either as a native decoded
// array or as a JSON-encoded string holding the same shape. Anything that
// cannot be interpreted as a sequence of records yields an empty list; the
// failure is row-local and never surfaces to the caller.
func normalizeActions(value interface{}) []map[string]interface{} {
	var raw []interface{}

	switch v := value.(type) {
	case nil:
		return nil
	case []interface{}:
		raw = v
	case []map[string]interface{}:
		return v
	case string:
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return nil
		}
	case json.RawMessage:
		if err := json.Unmarshal(v, &raw); err != nil {
			return nil
		}
	default:
		return nil
	}

	records := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		record, ok := entry.(map[string]interface{})
		if !ok {
			// Malformed entry, skip silently.
			continue
		}
		records = append(records, record)
	}
	return records
}

// sumActions totals the "value" of every action record whose action_type
// satisfies the match predicate. Records with an absent or non-numeric value
// contribute 0 rather than an error.
func sumActions(value interface{}, match func(actionType string) bool) float64 {
	var total float64
	for _, record := range normalizeActions(value) {
		actionType, _ := record["action_type"].(string)
		if actionType == "" || !match(actionType) {
			continue
		}
		if v, ok := toFloat(record["value"]); ok {
			total += v
		}
	}
	return total
}

func matchLandingPageView(actionType string) bool {
	return actionType == actionLandingPageView
}

func matchMessagingStart(actionType string) bool {
	return strings.HasPrefix(actionType, actionMessagingStartPrefix)
}

// toFloat converts the loosely typed values found in insights payloads
// (JSON numbers, numeric strings, native ints) to float64. The second
// return reports whether the conversion succeeded.
func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
