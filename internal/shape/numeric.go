package shape

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/catherinevee/mixport/pkg/models"
)

// NumericBuckets shapes a numeric-segmentation envelope. Bucket labels are
// Provider-assigned range strings like "0 - 100"; BucketOrder lists them by
// ascending lower bound, the order the Provider assigns them in.
func NumericBuckets(raw any, event, from, to, on, unit string) (*models.NumericBucketResult, error) {
	series, err := segmentationSeries(raw, "numeric segmentation response")
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(series))
	for label := range series {
		order = append(order, label)
	}
	sort.Slice(order, func(i, j int) bool {
		li, iok := bucketLowerBound(order[i])
		lj, jok := bucketLowerBound(order[j])
		if iok && jok && li != lj {
			return li < lj
		}
		if iok != jok {
			return iok
		}
		return order[i] < order[j]
	})
	return &models.NumericBucketResult{
		Event:       event,
		From:        from,
		To:          to,
		On:          on,
		Unit:        unit,
		Series:      series,
		BucketOrder: order,
	}, nil
}

// bucketLowerBound extracts the leading number of a range label.
func bucketLowerBound(label string) (float64, bool) {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], ","), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// numericSeries parses the flat {results: {bucket: scalar}} envelope shared
// by sum and average segmentation.
func numericSeries(raw any, what string) (map[string]float64, *time.Time, error) {
	root, err := asMap(raw, what)
	if err != nil {
		return nil, nil, err
	}
	resultsRaw, err := requireKey(root, "results", what)
	if err != nil {
		return nil, nil, err
	}
	buckets, err := asMap(resultsRaw, what+" results")
	if err != nil {
		return nil, nil, err
	}
	results := make(map[string]float64, len(buckets))
	for bucket, valueRaw := range buckets {
		if valueRaw == nil {
			// Empty buckets come back as null on sparse ranges.
			results[bucket] = 0
			continue
		}
		value, err := asFloat(valueRaw, what+" value")
		if err != nil {
			return nil, nil, err
		}
		results[bucket] = value
	}

	var computedAt *time.Time
	if s, ok := root["computed_at"].(string); ok && s != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if ts, err := time.Parse(layout, s); err == nil {
				utc := ts.UTC()
				computedAt = &utc
				break
			}
		}
	}
	return results, computedAt, nil
}

// NumericSum shapes a sum-segmentation envelope.
func NumericSum(raw any, event, from, to, on, unit string) (*models.NumericSeriesResult, error) {
	results, computedAt, err := numericSeries(raw, "sum response")
	if err != nil {
		return nil, err
	}
	return &models.NumericSeriesResult{
		Event:      event,
		From:       from,
		To:         to,
		On:         on,
		Unit:       unit,
		Results:    results,
		ComputedAt: computedAt,
	}, nil
}

// NumericAverage shapes an average-segmentation envelope.
func NumericAverage(raw any, event, from, to, on, unit string) (*models.NumericSeriesResult, error) {
	results, _, err := numericSeries(raw, "average response")
	if err != nil {
		return nil, err
	}
	return &models.NumericSeriesResult{
		Event:   event,
		From:    from,
		To:      to,
		On:      on,
		Unit:    unit,
		Results: results,
	}, nil
}
