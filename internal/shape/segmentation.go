package shape

import "github.com/catherinevee/mixport/pkg/models"

// segmentationSeries parses the common {data: {values: {...}}} envelope
// shared by segmentation, numeric segmentation, and multi-event counts. A
// missing values map is an empty, successful result.
func segmentationSeries(raw any, what string) (map[string]map[string]float64, error) {
	root, err := asMap(raw, what)
	if err != nil {
		return nil, err
	}
	dataRaw, err := requireKey(root, "data", what)
	if err != nil {
		return nil, err
	}
	data, err := asMap(dataRaw, what+" data")
	if err != nil {
		return nil, err
	}
	valuesRaw, ok := data["values"]
	if !ok || valuesRaw == nil {
		return map[string]map[string]float64{}, nil
	}
	return countSeries(valuesRaw, what+" values")
}

// Segmentation shapes a segmentation envelope. The outer series key is the
// segment value, or the event name when the query was unsegmented. Total is
// the sum of every count.
func Segmentation(raw any, event, from, to, unit, on string) (*models.SegmentationResult, error) {
	series, err := segmentationSeries(raw, "segmentation response")
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, buckets := range series {
		for _, count := range buckets {
			total += count
		}
	}
	return &models.SegmentationResult{
		Event:  event,
		From:   from,
		To:     to,
		Unit:   unit,
		On:     on,
		Total:  total,
		Series: series,
	}, nil
}

// EventCounts shapes a multi-event segmentation envelope into per-event
// bucket counts.
func EventCounts(raw any, events []string, from, to, unit string) (*models.EventCountsResult, error) {
	series, err := segmentationSeries(raw, "event counts response")
	if err != nil {
		return nil, err
	}
	return &models.EventCountsResult{
		Events: events,
		From:   from,
		To:     to,
		Unit:   unit,
		Series: series,
	}, nil
}
