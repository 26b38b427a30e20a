package shape

import (
	"sort"

	"github.com/catherinevee/mixport/pkg/models"
)

// Funnel shapes a computed-funnel envelope. The Provider reports steps per
// date under data; counts are aggregated by step index across dates before
// conversion rates are computed. ConversionRate is 1.0 at step 0 and
// count_i/count_{i-1} after (0.0 when the previous count is 0);
// OverallConversionRate and the funnel's OverallConversion divide by step
// 0's count, 0.0 when that is 0 or the funnel is empty.
func Funnel(raw any, funnelID int64, name, from, to string) (*models.FunnelResult, error) {
	root, err := asMap(raw, "funnel response")
	if err != nil {
		return nil, err
	}
	dataRaw, err := requireKey(root, "data", "funnel response")
	if err != nil {
		return nil, err
	}
	data, err := asMap(dataRaw, "funnel data")
	if err != nil {
		return nil, err
	}

	// Aggregate deterministically: dates sorted ascending so step names
	// resolve the same way on every run.
	dates := make([]string, 0, len(data))
	for date := range data {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var names []string
	var counts []float64
	for _, date := range dates {
		day, err := asMap(data[date], "funnel day")
		if err != nil {
			return nil, err
		}
		stepsRaw, ok := day["steps"]
		if !ok {
			continue
		}
		steps, err := asSlice(stepsRaw, "funnel steps")
		if err != nil {
			return nil, err
		}
		for i, stepRaw := range steps {
			step, err := asMap(stepRaw, "funnel step")
			if err != nil {
				return nil, err
			}
			countRaw, err := requireKey(step, "count", "funnel step")
			if err != nil {
				return nil, err
			}
			count, err := asFloat(countRaw, "funnel step count")
			if err != nil {
				return nil, err
			}
			if i >= len(counts) {
				counts = append(counts, 0)
				names = append(names, "")
			}
			counts[i] += count
			if names[i] == "" {
				if eventRaw, ok := step["event"]; ok {
					names[i] = stringify(eventRaw)
				}
			}
		}
	}

	result := &models.FunnelResult{
		FunnelID: funnelID,
		Name:     name,
		From:     from,
		To:       to,
		Steps:    make([]models.FunnelStep, 0, len(counts)),
	}
	for i := range counts {
		step := models.FunnelStep{
			Event:     names[i],
			StepIndex: i,
			Count:     counts[i],
		}
		switch {
		case i == 0:
			step.ConversionRate = 1.0
		case counts[i-1] > 0:
			step.ConversionRate = counts[i] / counts[i-1]
		}
		if counts[0] > 0 {
			step.OverallConversionRate = counts[i] / counts[0]
		}
		result.Steps = append(result.Steps, step)
	}
	if len(counts) > 0 && counts[0] > 0 {
		result.OverallConversion = counts[len(counts)-1] / counts[0]
	}
	return result, nil
}
