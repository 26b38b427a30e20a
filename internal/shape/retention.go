package shape

import (
	"sort"

	"github.com/catherinevee/mixport/pkg/models"
)

// Retention shapes a retention envelope: a mapping from cohort date to
// {first: size, counts: [...]}. retention[i] = counts[i]/first, 0.0 when the
// cohort is empty. Periods that have not yet elapsed are simply absent from
// counts and stay absent from the result; a zero is never synthesized.
// Cohorts are sorted by date ascending.
func Retention(raw any, bornEvent, returnEvent, from, to, interval string, intervalCount int) (*models.RetentionResult, error) {
	root, err := asMap(raw, "retention response")
	if err != nil {
		return nil, err
	}

	cohorts := make([]models.RetentionCohort, 0, len(root))
	for date, cohortRaw := range root {
		cohort, err := asMap(cohortRaw, "retention cohort")
		if err != nil {
			return nil, err
		}
		firstRaw, err := requireKey(cohort, "first", "retention cohort")
		if err != nil {
			return nil, err
		}
		size, err := asInt(firstRaw, "retention cohort size")
		if err != nil {
			return nil, err
		}
		countsRaw, err := requireKey(cohort, "counts", "retention cohort")
		if err != nil {
			return nil, err
		}
		counts, err := asSlice(countsRaw, "retention counts")
		if err != nil {
			return nil, err
		}

		retention := make([]float64, 0, len(counts))
		for _, countRaw := range counts {
			count, err := asFloat(countRaw, "retention count")
			if err != nil {
				return nil, err
			}
			if size > 0 {
				retention = append(retention, count/float64(size))
			} else {
				retention = append(retention, 0.0)
			}
		}
		cohorts = append(cohorts, models.RetentionCohort{
			Date:      date,
			Size:      size,
			Retention: retention,
		})
	}
	sort.Slice(cohorts, func(i, j int) bool { return cohorts[i].Date < cohorts[j].Date })

	return &models.RetentionResult{
		BornEvent:     bornEvent,
		ReturnEvent:   returnEvent,
		From:          from,
		To:            to,
		Interval:      interval,
		IntervalCount: intervalCount,
		Cohorts:       cohorts,
	}, nil
}
