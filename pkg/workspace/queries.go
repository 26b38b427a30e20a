package workspace

import (
	"context"

	"github.com/catherinevee/mixport/internal/livequery"
	"github.com/catherinevee/mixport/pkg/models"
)

// SegmentationQuery parameterizes Segmentation. Dates are inclusive calendar
// dates in the project timezone; Where and On expressions are passed to the
// Provider verbatim.
type SegmentationQuery struct {
	Event string
	From  string
	To    string
	Unit  string
	On    string
	Where string
}

// Segmentation computes event counts over time, optionally segmented by a
// property expression.
func (w *Workspace) Segmentation(ctx context.Context, q SegmentationQuery) (*models.SegmentationResult, error) {
	return w.query.Segmentation(ctx, livequery.SegmentationQuery(q))
}

// EventCountsQuery parameterizes EventCounts.
type EventCountsQuery struct {
	Events []string
	From   string
	To     string
	Unit   string
}

// EventCounts computes counts for several events at once.
func (w *Workspace) EventCounts(ctx context.Context, q EventCountsQuery) (*models.EventCountsResult, error) {
	return w.query.EventCounts(ctx, livequery.EventCountsQuery(q))
}

// NumericQuery parameterizes the numeric segmentation family. On is the
// numeric property expression to bucket, sum, or average.
type NumericQuery struct {
	Event string
	On    string
	From  string
	To    string
	Unit  string
	Where string
}

// NumericBuckets buckets events by a numeric property expression.
func (w *Workspace) NumericBuckets(ctx context.Context, q NumericQuery) (*models.NumericBucketResult, error) {
	return w.query.NumericBuckets(ctx, livequery.NumericQuery(q))
}

// NumericSum sums a numeric property expression per time bucket.
func (w *Workspace) NumericSum(ctx context.Context, q NumericQuery) (*models.NumericSeriesResult, error) {
	return w.query.NumericSum(ctx, livequery.NumericQuery(q))
}

// NumericAverage averages a numeric property expression per time bucket.
func (w *Workspace) NumericAverage(ctx context.Context, q NumericQuery) (*models.NumericSeriesResult, error) {
	return w.query.NumericAverage(ctx, livequery.NumericQuery(q))
}

// FunnelQuery parameterizes Funnel.
type FunnelQuery struct {
	FunnelID int64
	Name     string
	From     string
	To       string
}

// Funnel computes a saved funnel over a date range.
func (w *Workspace) Funnel(ctx context.Context, q FunnelQuery) (*models.FunnelResult, error) {
	return w.query.Funnel(ctx, livequery.FunnelQuery(q))
}

// RetentionQuery parameterizes Retention.
type RetentionQuery struct {
	BornEvent     string
	ReturnEvent   string
	From          string
	To            string
	Interval      string
	IntervalCount int
	Where         string
}

// Retention computes a birth/return cohort matrix.
func (w *Workspace) Retention(ctx context.Context, q RetentionQuery) (*models.RetentionResult, error) {
	return w.query.Retention(ctx, livequery.RetentionQuery(q))
}

// FrequencyQuery parameterizes Frequency. Unit is the outer bucket;
// Granularity the sub-period counted within it.
type FrequencyQuery struct {
	Event       string
	From        string
	To          string
	Unit        string
	Granularity string
	Where       string
}

// Frequency computes how often users perform an event within each outer
// bucket.
func (w *Workspace) Frequency(ctx context.Context, q FrequencyQuery) (*models.FrequencyResult, error) {
	return w.query.Frequency(ctx, livequery.FrequencyQuery(q))
}

// ActivityQuery parameterizes ActivityFeed.
type ActivityQuery struct {
	DistinctIDs []string
	From        string
	To          string
}

// ActivityFeed returns the raw event stream for a set of users.
func (w *Workspace) ActivityFeed(ctx context.Context, q ActivityQuery) (*models.ActivityFeedResult, error) {
	return w.query.ActivityFeed(ctx, livequery.ActivityQuery(q))
}

// SavedReportQuery parameterizes SavedReport.
type SavedReportQuery struct {
	BookmarkID int64
	ReportType string
	From       string
	To         string
}

// SavedReport re-executes a saved Insights report.
func (w *Workspace) SavedReport(ctx context.Context, q SavedReportQuery) (*models.SavedReportResult, error) {
	return w.query.SavedReport(ctx, livequery.SavedReportQuery(q))
}

// JQL runs a script on the Provider's scripting endpoint.
func (w *Workspace) JQL(ctx context.Context, script string, params map[string]any) (*models.JQLResult, error) {
	return w.query.JQL(ctx, script, params)
}

// ListEvents returns the project's event names.
func (w *Workspace) ListEvents(ctx context.Context) ([]string, error) {
	return w.query.ListEvents(ctx)
}

// ListProperties returns an event's property names, or the profile property
// names when event is empty.
func (w *Workspace) ListProperties(ctx context.Context, event string) ([]string, error) {
	return w.query.ListProperties(ctx, event)
}

// PropertyValues samples the values of an event property.
func (w *Workspace) PropertyValues(ctx context.Context, event, property string, limit int) ([]string, error) {
	return w.query.PropertyValues(ctx, event, property, limit)
}

// TopEvents returns today's top events by volume.
func (w *Workspace) TopEvents(ctx context.Context, limit int) (*models.TopEventsResult, error) {
	return w.query.TopEvents(ctx, limit)
}

// ListFunnels returns the project's saved funnels.
func (w *Workspace) ListFunnels(ctx context.Context) ([]models.FunnelInfo, error) {
	return w.query.ListFunnels(ctx)
}

// ListCohorts returns the project's saved cohorts.
func (w *Workspace) ListCohorts(ctx context.Context) ([]models.SavedCohort, error) {
	return w.query.ListCohorts(ctx)
}

// BookmarkQuery parameterizes ListBookmarks. Page is zero-based; Fields,
// when set, projects away optional descriptive fields not named.
type BookmarkQuery struct {
	Page    int
	PerPage int
	Fields  []string
}

// ListBookmarks returns one page of the project's saved reports.
func (w *Workspace) ListBookmarks(ctx context.Context, q BookmarkQuery) (*models.BookmarkPage, error) {
	return w.query.ListBookmarks(ctx, livequery.BookmarkQuery(q))
}
