package shape

import (
	"time"

	"github.com/catherinevee/mixport/pkg/models"
)

// SavedReport shapes a saved-Insights execution envelope: computed_at, the
// report's date range, headers, and a label -> bucket -> count series.
func SavedReport(raw any, bookmarkID int64, reportType string) (*models.SavedReportResult, error) {
	root, err := asMap(raw, "insights response")
	if err != nil {
		return nil, err
	}

	result := &models.SavedReportResult{
		BookmarkID: bookmarkID,
		ReportType: reportType,
	}

	if s, ok := root["computed_at"].(string); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if ts, err := time.Parse(layout, s); err == nil {
				result.ComputedAt = ts.UTC()
				break
			}
		}
	}
	if rangeRaw, ok := root["date_range"]; ok && rangeRaw != nil {
		dateRange, err := asMap(rangeRaw, "insights date range")
		if err != nil {
			return nil, err
		}
		if s, ok := dateRange["from_date"].(string); ok {
			result.From = s
		}
		if s, ok := dateRange["to_date"].(string); ok {
			result.To = s
		}
	}
	if headersRaw, ok := root["headers"]; ok && headersRaw != nil {
		headers, err := asSlice(headersRaw, "insights headers")
		if err != nil {
			return nil, err
		}
		result.Headers = make([]string, 0, len(headers))
		for _, h := range headers {
			result.Headers = append(result.Headers, stringify(h))
		}
	}

	seriesRaw, err := requireKey(root, "series", "insights response")
	if err != nil {
		return nil, err
	}
	result.Series, err = countSeries(seriesRaw, "insights series")
	if err != nil {
		return nil, err
	}
	return result, nil
}
