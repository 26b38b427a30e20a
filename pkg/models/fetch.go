package models

import "time"

// DateRange is an inclusive range of ISO calendar dates.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Union widens the range to cover other. An empty range adopts other.
func (r DateRange) Union(other DateRange) DateRange {
	out := r
	if out.From == "" || (other.From != "" && other.From < out.From) {
		out.From = other.From
	}
	if out.To == "" || (other.To != "" && other.To > out.To) {
		out.To = other.To
	}
	return out
}

// FetchResult reports a completed sequential fetch.
type FetchResult struct {
	Table     string        `json:"table"`
	Rows      int64         `json:"rows"`
	Kind      TableKind     `json:"kind"`
	Range     *DateRange    `json:"range,omitempty"`
	Duration  time.Duration `json:"duration"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// ParallelFetchProgress is emitted once per slice, in completion order. A
// successful slice always carries an empty Err.
type ParallelFetchProgress struct {
	SliceKey   string `json:"slice_key"`
	SliceTotal int    `json:"slice_total"`
	Rows       int64  `json:"rows"`
	Cumulative int64  `json:"cumulative_rows"`
	Success    bool   `json:"success"`
	Err        string `json:"error,omitempty"`
}

// ParallelFetchResult reports a completed parallel fetch. Successful plus
// Failed always equals the number of scheduled slices, and FailedSliceKeys
// holds exactly the keys of the failed ones so the caller can retry them.
type ParallelFetchResult struct {
	Table           string        `json:"table"`
	TotalRows       int64         `json:"total_rows"`
	Successful      int           `json:"successful_slices"`
	Failed          int           `json:"failed_slices"`
	FailedSliceKeys []string      `json:"failed_slice_keys,omitempty"`
	Duration        time.Duration `json:"duration"`
	FetchedAt       time.Time     `json:"fetched_at"`
}

// HasFailures reports whether any slice failed.
func (r *ParallelFetchResult) HasFailures() bool {
	return r.Failed > 0
}

// TotalSlices returns the number of slices the fetch scheduled.
func (r *ParallelFetchResult) TotalSlices() int {
	return r.Successful + r.Failed
}
