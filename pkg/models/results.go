package models

import "time"

// SegmentationResult holds a segmentation query response as a two-level
// series: segment value (or event name when unsegmented) -> bucket start ->
// count. Total is the sum of every count in the series.
type SegmentationResult struct {
	Event  string                        `json:"event"`
	From   string                        `json:"from"`
	To     string                        `json:"to"`
	Unit   string                        `json:"unit"`
	On     string                        `json:"on,omitempty"`
	Total  float64                       `json:"total"`
	Series map[string]map[string]float64 `json:"series"`
}

// FunnelStep is one step of a computed funnel. ConversionRate is relative to
// the previous step (1.0 at step 0); OverallConversionRate is relative to
// step 0.
type FunnelStep struct {
	Event                 string  `json:"event"`
	StepIndex             int     `json:"step_index"`
	Count                 float64 `json:"count"`
	ConversionRate        float64 `json:"conversion_rate"`
	OverallConversionRate float64 `json:"overall_conversion_rate"`
}

// FunnelResult holds a computed funnel with per-step conversion rates.
type FunnelResult struct {
	FunnelID          int64        `json:"funnel_id"`
	Name              string       `json:"name,omitempty"`
	From              string       `json:"from"`
	To                string       `json:"to"`
	OverallConversion float64      `json:"overall_conversion"`
	Steps             []FunnelStep `json:"steps"`
}

// RetentionCohort is one cohort row of a retention matrix. Retention[0] is
// the cohort-defining period; periods that have not yet elapsed are absent
// from the slice rather than reported as zero.
type RetentionCohort struct {
	Date      string    `json:"date"`
	Size      int       `json:"size"`
	Retention []float64 `json:"retention"`
}

// RetentionResult holds a retention query response, cohorts sorted by date
// ascending.
type RetentionResult struct {
	BornEvent     string            `json:"born_event"`
	ReturnEvent   string            `json:"return_event,omitempty"`
	From          string            `json:"from"`
	To            string            `json:"to"`
	Interval      string            `json:"interval"`
	IntervalCount int               `json:"interval_count"`
	Cohorts       []RetentionCohort `json:"cohorts"`
}

// ActivityFeedResult holds the event stream for a set of distinct ids, in
// Provider order.
type ActivityFeedResult struct {
	DistinctIDs []string    `json:"distinct_ids"`
	From        string      `json:"from,omitempty"`
	To          string      `json:"to,omitempty"`
	Events      []UserEvent `json:"events"`
}

// FrequencyResult holds an addiction curve: for each outer bucket, entry N
// of the array counts users who performed the event in at least N+1
// sub-periods of the granularity. Values are non-increasing within a bucket.
type FrequencyResult struct {
	Event       string           `json:"event,omitempty"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Unit        string           `json:"unit"`
	Granularity string           `json:"granularity"`
	Data        map[string][]int `json:"data"`
}

// NumericBucketResult holds a numeric segmentation response, keyed by the
// Provider-assigned bucket label (for example "0 - 100"). BucketOrder
// preserves the Provider's label iteration order.
type NumericBucketResult struct {
	Event       string                        `json:"event"`
	From        string                        `json:"from"`
	To          string                        `json:"to"`
	On          string                        `json:"on"`
	Unit        string                        `json:"unit"`
	Series      map[string]map[string]float64 `json:"series"`
	BucketOrder []string                      `json:"bucket_order"`
}

// NumericSeriesResult holds a sum or average segmentation response: one
// scalar per bucket start. ComputedAt is set when the Provider reports it.
type NumericSeriesResult struct {
	Event      string             `json:"event"`
	From       string             `json:"from"`
	To         string             `json:"to"`
	On         string             `json:"on"`
	Unit       string             `json:"unit"`
	Results    map[string]float64 `json:"results"`
	ComputedAt *time.Time         `json:"computed_at,omitempty"`
}

// EventCountsResult holds a multi-event segmentation response: event name ->
// bucket start -> count.
type EventCountsResult struct {
	Events []string                      `json:"events"`
	From   string                        `json:"from"`
	To     string                        `json:"to"`
	Unit   string                        `json:"unit"`
	Series map[string]map[string]float64 `json:"series"`
}

// SavedReportResult holds the re-execution of a saved Insights report.
type SavedReportResult struct {
	BookmarkID int64                         `json:"bookmark_id"`
	ReportType string                        `json:"report_type"`
	ComputedAt time.Time                     `json:"computed_at"`
	From       string                        `json:"from"`
	To         string                        `json:"to"`
	Headers    []string                      `json:"headers"`
	Series     map[string]map[string]float64 `json:"series"`
}

// JQLResult holds the raw rows returned by a JQL script.
type JQLResult struct {
	Rows []any `json:"rows"`
}
