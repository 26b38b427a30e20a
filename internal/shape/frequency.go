package shape

import "github.com/catherinevee/mixport/pkg/models"

// Frequency shapes an addiction-curve envelope: {data: {bucket: [counts]}}.
// Entry N of each array counts users who performed the event in at least
// N+1 sub-periods of the granularity; the Provider produces non-increasing
// arrays by construction.
func Frequency(raw any, event, from, to, unit, granularity string) (*models.FrequencyResult, error) {
	root, err := asMap(raw, "frequency response")
	if err != nil {
		return nil, err
	}
	dataRaw, err := requireKey(root, "data", "frequency response")
	if err != nil {
		return nil, err
	}
	data, err := asMap(dataRaw, "frequency data")
	if err != nil {
		return nil, err
	}

	curve := make(map[string][]int, len(data))
	for bucket, countsRaw := range data {
		counts, err := asSlice(countsRaw, "frequency counts")
		if err != nil {
			return nil, err
		}
		row := make([]int, 0, len(counts))
		for _, countRaw := range counts {
			count, err := asInt(countRaw, "frequency count")
			if err != nil {
				return nil, err
			}
			row = append(row, count)
		}
		curve[bucket] = row
	}

	return &models.FrequencyResult{
		Event:       event,
		From:        from,
		To:          to,
		Unit:        unit,
		Granularity: granularity,
		Data:        curve,
	}, nil
}
