package models

import "time"

// EventRecord represents a normalized exported event.
//
// Identity fields are promoted out of the raw property map: the event name,
// the event time (converted from epoch seconds to a UTC instant), the
// distinct id, and the insert id (synthesized when the Provider ships the
// record without one). Properties holds everything that was not promoted.
type EventRecord struct {
	Name       string         `json:"event"`
	Time       time.Time      `json:"time"`
	DistinctID string         `json:"distinct_id"`
	InsertID   string         `json:"insert_id"`
	Properties map[string]any `json:"properties"`
}

// ProfileRecord represents a normalized user profile.
type ProfileRecord struct {
	DistinctID string         `json:"distinct_id"`
	LastSeen   *time.Time     `json:"last_seen,omitempty"`
	Properties map[string]any `json:"properties"`
}

// UserEvent is a single entry in an activity feed.
type UserEvent struct {
	Name       string         `json:"event"`
	Time       time.Time      `json:"time"`
	Properties map[string]any `json:"properties"`
}

// EngagePage is one page of the Provider's paged profile export.
type EngagePage struct {
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	Total     int              `json:"total"`
	SessionID string           `json:"session_id"`
	Results   []map[string]any `json:"results"`
}

// HasMore reports whether pages beyond this one exist.
func (p *EngagePage) HasMore() bool {
	if p.PageSize == 0 {
		return false
	}
	return (p.Page+1)*p.PageSize < p.Total
}

// NumPages returns the total number of pages implied by Total and PageSize.
func (p *EngagePage) NumPages() int {
	if p.PageSize == 0 || p.Total == 0 {
		return 1
	}
	n := p.Total / p.PageSize
	if p.Total%p.PageSize != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
