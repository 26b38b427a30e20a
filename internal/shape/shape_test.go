package shape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mperrors "github.com/catherinevee/mixport/internal/errors"
)

func TestNumericBucketsOrder(t *testing.T) {
	raw := decode(t, `{
		"data": {
			"values": {
				"100 - 200": {"2024-01-01": 2},
				"0 - 100": {"2024-01-01": 5},
				"1,000 - 2,000": {"2024-01-01": 1}
			}
		}
	}`)
	result, err := NumericBuckets(raw, "purchase", "2024-01-01", "2024-01-01", "properties[\"amount\"]", "day")
	require.NoError(t, err)
	assert.Equal(t, []string{"0 - 100", "100 - 200", "1,000 - 2,000"}, result.BucketOrder)
	assert.Equal(t, 5.0, result.Series["0 - 100"]["2024-01-01"])
}

func TestNumericSum(t *testing.T) {
	raw := decode(t, `{
		"computed_at": "2024-01-03T00:15:00",
		"results": {"2024-01-01": 1234.5, "2024-01-02": null}
	}`)
	result, err := NumericSum(raw, "purchase", "2024-01-01", "2024-01-02", "amount", "day")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, result.Results["2024-01-01"])
	// Sparse buckets come back null and shape to zero.
	assert.Equal(t, 0.0, result.Results["2024-01-02"])
	require.NotNil(t, result.ComputedAt)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 15, 0, 0, time.UTC), *result.ComputedAt)
}

func TestNumericAverage(t *testing.T) {
	raw := decode(t, `{"results": {"2024-01-01": 12.5}}`)
	result, err := NumericAverage(raw, "purchase", "2024-01-01", "2024-01-01", "amount", "day")
	require.NoError(t, err)
	assert.Equal(t, 12.5, result.Results["2024-01-01"])
	assert.Nil(t, result.ComputedAt)
}

func TestFrequency(t *testing.T) {
	raw := decode(t, `{"data": {"2024-01-01": [120, 80, 30, 5], "2024-01-08": [90, 40, 10]}}`)
	result, err := Frequency(raw, "login", "2024-01-01", "2024-01-14", "week", "day")
	require.NoError(t, err)
	assert.Equal(t, []int{120, 80, 30, 5}, result.Data["2024-01-01"])
	assert.Equal(t, []int{90, 40, 10}, result.Data["2024-01-08"])
}

func TestActivityFeed(t *testing.T) {
	raw := decode(t, `{
		"results": {
			"events": [
				{"event": "login", "properties": {"time": 1700000000, "distinct_id": "u1"}},
				{"event": "purchase", "properties": {"time": 1700000100, "amount": 9.99}}
			]
		}
	}`)
	result, err := ActivityFeed(raw, []string{"u1"}, "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	assert.Equal(t, "login", result.Events[0].Name)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), result.Events[0].Time)
	assert.Equal(t, 9.99, result.Events[1].Properties["amount"])
	assert.NotContains(t, result.Events[1].Properties, "time")
}

func TestSavedReport(t *testing.T) {
	raw := decode(t, `{
		"computed_at": "2024-02-01T08:00:00",
		"date_range": {"from_date": "2024-01-01", "to_date": "2024-01-31"},
		"headers": ["$event"],
		"series": {"signup": {"2024-01-01": 11}}
	}`)
	result, err := SavedReport(raw, 99, "insights")
	require.NoError(t, err)

	assert.Equal(t, int64(99), result.BookmarkID)
	assert.Equal(t, "2024-01-01", result.From)
	assert.Equal(t, "2024-01-31", result.To)
	assert.Equal(t, []string{"$event"}, result.Headers)
	assert.Equal(t, 11.0, result.Series["signup"]["2024-01-01"])
}

func TestStringList(t *testing.T) {
	names, err := StringList(decode(t, `["signup", "login"]`), "event names")
	require.NoError(t, err)
	assert.Equal(t, []string{"signup", "login"}, names)

	_, err = StringList(decode(t, `{"not": "array"}`), "event names")
	assert.True(t, mperrors.IsKind(err, mperrors.KindProtocol))
}

func TestEngageProperties(t *testing.T) {
	raw := decode(t, `{"results": {"$email": {"count": 10}, "$city": {"count": 4}}}`)
	names, err := EngageProperties(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"$city", "$email"}, names)
}

func TestTopEvents(t *testing.T) {
	raw := decode(t, `{"events": [
		{"event": "login", "amount": 500, "percent_change": 0.05},
		{"event": "signup", "count": 120, "percent_change": -0.02}
	]}`)
	result, err := TopEvents(raw)
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	assert.Equal(t, 500.0, result.Events[0].Count)
	assert.Equal(t, 120.0, result.Events[1].Count)
	assert.Equal(t, -0.02, result.Events[1].PercentChange)
}

func TestFunnelList(t *testing.T) {
	funnels, err := FunnelList(decode(t, `[{"funnel_id": 7, "name": "checkout"}]`))
	require.NoError(t, err)
	require.Len(t, funnels, 1)
	assert.Equal(t, int64(7), funnels[0].FunnelID)
	assert.Equal(t, "checkout", funnels[0].Name)
}

func TestCohortList(t *testing.T) {
	raw := decode(t, `[{
		"id": 3, "project_id": 12345, "name": "power users",
		"count": 420, "is_visible": 1, "created": "2024-01-01 00:00:00"
	}]`)
	cohorts, err := CohortList(raw)
	require.NoError(t, err)
	require.Len(t, cohorts, 1)
	assert.Equal(t, int64(3), cohorts[0].ID)
	assert.Equal(t, int64(420), cohorts[0].Count)
	assert.True(t, cohorts[0].IsVisible)
}

func TestBookmarkList(t *testing.T) {
	t.Run("wrapped in results", func(t *testing.T) {
		raw := decode(t, `{"results": [
			{"id": 1, "name": "weekly", "type": "insights", "project_id": 9,
			 "workspace_id": 55, "description": "weekly numbers"}
		]}`)
		bookmarks, err := BookmarkList(raw)
		require.NoError(t, err)
		require.Len(t, bookmarks, 1)
		assert.Equal(t, int64(1), bookmarks[0].ID)
		require.NotNil(t, bookmarks[0].WorkspaceID)
		assert.Equal(t, int64(55), *bookmarks[0].WorkspaceID)
		require.NotNil(t, bookmarks[0].Description)
	})

	t.Run("bare array", func(t *testing.T) {
		bookmarks, err := BookmarkList(decode(t, `[{"id": 2, "name": "n", "type": "funnels"}]`))
		require.NoError(t, err)
		require.Len(t, bookmarks, 1)
		assert.Nil(t, bookmarks[0].DashboardID)
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := BookmarkList(decode(t, `[{"name": "n"}]`))
		assert.True(t, mperrors.IsKind(err, mperrors.KindProtocol))
	})
}
