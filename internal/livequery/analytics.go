package livequery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/catherinevee/mixport/internal/shape"
	"github.com/catherinevee/mixport/pkg/models"
)

// SegmentationQuery parameterizes a segmentation request. Dates are
// inclusive calendar dates in the project timezone, passed verbatim; Where
// and On expressions are passed verbatim too, the Provider being the
// arbiter.
type SegmentationQuery struct {
	Event string `validate:"required"`
	From  string `validate:"required,datetime=2006-01-02"`
	To    string `validate:"required,datetime=2006-01-02"`
	Unit  string `validate:"omitempty,oneof=minute hour day week month"`
	On    string
	Where string
}

// Segmentation computes event counts over time, optionally segmented by a
// property expression.
func (s *Service) Segmentation(ctx context.Context, q SegmentationQuery) (*models.SegmentationResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.Unit == "" {
		q.Unit = "day"
	}
	params := url.Values{}
	params.Set("event", q.Event)
	params.Set("from_date", q.From)
	params.Set("to_date", q.To)
	params.Set("unit", q.Unit)
	if q.On != "" {
		params.Set("on", q.On)
	}
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/segmentation", params)
	if err != nil {
		return nil, err
	}
	return shape.Segmentation(raw, q.Event, q.From, q.To, q.Unit, q.On)
}

// EventCountsQuery parameterizes a multi-event count request.
type EventCountsQuery struct {
	Events []string `validate:"required,min=1"`
	From   string   `validate:"required,datetime=2006-01-02"`
	To     string   `validate:"required,datetime=2006-01-02"`
	Unit   string   `validate:"omitempty,oneof=minute hour day week month"`
}

// EventCounts computes counts for several events at once.
func (s *Service) EventCounts(ctx context.Context, q EventCountsQuery) (*models.EventCountsResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.Unit == "" {
		q.Unit = "day"
	}
	encoded, err := json.Marshal(q.Events)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("event", string(encoded))
	params.Set("from_date", q.From)
	params.Set("to_date", q.To)
	params.Set("unit", q.Unit)
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/segmentation/multi", params)
	if err != nil {
		return nil, err
	}
	return shape.EventCounts(raw, q.Events, q.From, q.To, q.Unit)
}

// NumericQuery parameterizes the numeric segmentation family. On is the
// numeric property expression to bucket, sum, or average.
type NumericQuery struct {
	Event string `validate:"required"`
	On    string `validate:"required"`
	From  string `validate:"required,datetime=2006-01-02"`
	To    string `validate:"required,datetime=2006-01-02"`
	Unit  string `validate:"omitempty,oneof=hour day"`
	Where string
}

func (q NumericQuery) params() url.Values {
	params := url.Values{}
	params.Set("event", q.Event)
	params.Set("on", q.On)
	params.Set("from_date", q.From)
	params.Set("to_date", q.To)
	params.Set("unit", q.Unit)
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	return params
}

// NumericBuckets buckets events by a numeric property expression.
func (s *Service) NumericBuckets(ctx context.Context, q NumericQuery) (*models.NumericBucketResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.Unit == "" {
		q.Unit = "day"
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/segmentation/numeric", q.params())
	if err != nil {
		return nil, err
	}
	return shape.NumericBuckets(raw, q.Event, q.From, q.To, q.On, q.Unit)
}

// NumericSum sums a numeric property expression per bucket.
func (s *Service) NumericSum(ctx context.Context, q NumericQuery) (*models.NumericSeriesResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.Unit == "" {
		q.Unit = "day"
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/segmentation/sum", q.params())
	if err != nil {
		return nil, err
	}
	return shape.NumericSum(raw, q.Event, q.From, q.To, q.On, q.Unit)
}

// NumericAverage averages a numeric property expression per bucket.
func (s *Service) NumericAverage(ctx context.Context, q NumericQuery) (*models.NumericSeriesResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.Unit == "" {
		q.Unit = "day"
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/segmentation/average", q.params())
	if err != nil {
		return nil, err
	}
	return shape.NumericAverage(raw, q.Event, q.From, q.To, q.On, q.Unit)
}

// FunnelQuery parameterizes a saved-funnel computation.
type FunnelQuery struct {
	FunnelID int64  `validate:"required"`
	Name     string
	From     string `validate:"required,datetime=2006-01-02"`
	To       string `validate:"required,datetime=2006-01-02"`
}

// Funnel computes a saved funnel over a date range.
func (s *Service) Funnel(ctx context.Context, q FunnelQuery) (*models.FunnelResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("funnel_id", strconv.FormatInt(q.FunnelID, 10))
	params.Set("from_date", q.From)
	params.Set("to_date", q.To)
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/funnels", params)
	if err != nil {
		return nil, err
	}
	return shape.Funnel(raw, q.FunnelID, q.Name, q.From, q.To)
}

// RetentionQuery parameterizes a retention request.
type RetentionQuery struct {
	BornEvent     string `validate:"required"`
	ReturnEvent   string
	From          string `validate:"required,datetime=2006-01-02"`
	To            string `validate:"required,datetime=2006-01-02"`
	Interval      string `validate:"omitempty,oneof=day week month"`
	IntervalCount int    `validate:"omitempty,min=1"`
	Where         string
}

// Retention computes a birth/return cohort matrix.
func (s *Service) Retention(ctx context.Context, q RetentionQuery) (*models.RetentionResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.Interval == "" {
		q.Interval = "day"
	}
	if q.IntervalCount == 0 {
		q.IntervalCount = 7
	}
	params := url.Values{}
	params.Set("retention_type", "birth")
	params.Set("born_event", q.BornEvent)
	if q.ReturnEvent != "" {
		params.Set("event", q.ReturnEvent)
	}
	params.Set("from_date", q.From)
	params.Set("to_date", q.To)
	params.Set("unit", q.Interval)
	params.Set("interval_count", strconv.Itoa(q.IntervalCount))
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/retention", params)
	if err != nil {
		return nil, err
	}
	return shape.Retention(raw, q.BornEvent, q.ReturnEvent, q.From, q.To, q.Interval, q.IntervalCount)
}

// FrequencyQuery parameterizes an addiction-curve request. Unit is the
// outer bucket; Granularity the sub-period counted within it.
type FrequencyQuery struct {
	Event       string
	From        string `validate:"required,datetime=2006-01-02"`
	To          string `validate:"required,datetime=2006-01-02"`
	Unit        string `validate:"omitempty,oneof=day week month"`
	Granularity string `validate:"omitempty,oneof=hour day"`
	Where       string
}

// Frequency computes how often users perform an event within each outer
// bucket. This always calls the frequency endpoint, never segmentation.
func (s *Service) Frequency(ctx context.Context, q FrequencyQuery) (*models.FrequencyResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.Unit == "" {
		q.Unit = "week"
	}
	if q.Granularity == "" {
		q.Granularity = "day"
	}
	params := url.Values{}
	if q.Event != "" {
		params.Set("event", q.Event)
	}
	params.Set("from_date", q.From)
	params.Set("to_date", q.To)
	params.Set("unit", q.Unit)
	params.Set("addiction_unit", q.Granularity)
	if q.Where != "" {
		params.Set("where", q.Where)
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/retention/properties", params)
	if err != nil {
		return nil, err
	}
	return shape.Frequency(raw, q.Event, q.From, q.To, q.Unit, q.Granularity)
}

// ActivityQuery parameterizes an activity-feed request.
type ActivityQuery struct {
	DistinctIDs []string `validate:"required,min=1"`
	From        string   `validate:"omitempty,datetime=2006-01-02"`
	To          string   `validate:"omitempty,datetime=2006-01-02"`
}

// ActivityFeed returns the raw event stream for a set of users via the
// dedicated activity endpoint.
func (s *Service) ActivityFeed(ctx context.Context, q ActivityQuery) (*models.ActivityFeedResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(q.DistinctIDs)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("distinct_ids", string(encoded))
	if q.From != "" {
		params.Set("from_date", q.From)
	}
	if q.To != "" {
		params.Set("to_date", q.To)
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/stream/query", params)
	if err != nil {
		return nil, err
	}
	return shape.ActivityFeed(raw, q.DistinctIDs, q.From, q.To)
}

// SavedReportQuery parameterizes a saved-Insights execution.
type SavedReportQuery struct {
	BookmarkID int64  `validate:"required"`
	ReportType string
	From       string `validate:"omitempty,datetime=2006-01-02"`
	To         string `validate:"omitempty,datetime=2006-01-02"`
}

// SavedReport re-executes a saved Insights report.
func (s *Service) SavedReport(ctx context.Context, q SavedReportQuery) (*models.SavedReportResult, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("bookmark_id", strconv.FormatInt(q.BookmarkID, 10))
	if q.From != "" {
		params.Set("from_date", q.From)
	}
	if q.To != "" {
		params.Set("to_date", q.To)
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/insights", params)
	if err != nil {
		return nil, err
	}
	return shape.SavedReport(raw, q.BookmarkID, q.ReportType)
}

// JQL runs a script on the Provider's scripting endpoint and returns the
// raw result rows.
func (s *Service) JQL(ctx context.Context, script string, scriptParams map[string]any) (*models.JQLResult, error) {
	if script == "" {
		return nil, invalidQuery("jql script is required")
	}
	params := url.Values{}
	params.Set("script", script)
	if len(scriptParams) > 0 {
		encoded, err := json.Marshal(scriptParams)
		if err != nil {
			return nil, err
		}
		params.Set("params", string(encoded))
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodPost, "/query/jql", params)
	if err != nil {
		return nil, err
	}
	rows, ok := raw.([]any)
	if !ok {
		// Some scripts return a single aggregate value.
		rows = []any{raw}
	}
	return &models.JQLResult{Rows: rows}, nil
}
