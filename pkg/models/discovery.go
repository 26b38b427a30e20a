package models

// FunnelInfo identifies a saved funnel definition.
type FunnelInfo struct {
	FunnelID int64  `json:"funnel_id"`
	Name     string `json:"name"`
}

// SavedCohort describes a saved cohort definition.
type SavedCohort struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Count       int64  `json:"count"`
	IsVisible   bool   `json:"is_visible"`
	Created     string `json:"created,omitempty"`
}

// BookmarkInfo describes a saved report. Optional descriptive fields are nil
// when the caller projected them away or the Provider omitted them.
type BookmarkInfo struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	ProjectID   int64   `json:"project_id"`
	Created     string  `json:"created,omitempty"`
	Modified    string  `json:"modified,omitempty"`
	WorkspaceID *int64  `json:"workspace_id,omitempty"`
	DashboardID *int64  `json:"dashboard_id,omitempty"`
	Description *string `json:"description,omitempty"`
	CreatorID   *int64  `json:"creator_id,omitempty"`
	CreatorName *string `json:"creator_name,omitempty"`
}

// BookmarkPage is one page of a saved-report listing.
type BookmarkPage struct {
	Bookmarks []BookmarkInfo `json:"bookmarks"`
	Page      int            `json:"page"`
	PerPage   int            `json:"per_page"`
	Total     int            `json:"total"`
	HasMore   bool           `json:"has_more"`
}

// TopEvent is one entry of a top-events listing.
type TopEvent struct {
	Event         string  `json:"event"`
	Count         float64 `json:"count"`
	PercentChange float64 `json:"percent_change"`
}

// TopEventsResult holds today's top events by volume.
type TopEventsResult struct {
	Events []TopEvent `json:"events"`
}
