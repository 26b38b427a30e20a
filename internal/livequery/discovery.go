package livequery

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/catherinevee/mixport/internal/shape"
	"github.com/catherinevee/mixport/pkg/models"
)

// maxBookmarkPage caps a bookmark listing page so the shaped response stays
// well under the 1 MiB envelope ceiling.
const maxBookmarkPage = 200

// ListEvents returns the project's event names.
func (s *Service) ListEvents(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("type", "general")
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/events/names", params)
	if err != nil {
		return nil, err
	}
	return shape.StringList(raw, "event names response")
}

// ListProperties returns the property names of an event, or the profile
// property names when event is empty.
func (s *Service) ListProperties(ctx context.Context, event string) ([]string, error) {
	if event == "" {
		raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/engage/properties", url.Values{})
		if err != nil {
			return nil, err
		}
		return shape.EngageProperties(raw)
	}
	params := url.Values{}
	params.Set("event", event)
	params.Set("type", "general")
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/events/properties", params)
	if err != nil {
		return nil, err
	}
	return shape.StringList(raw, "event properties response")
}

// PropertyValues samples the values of an event property.
func (s *Service) PropertyValues(ctx context.Context, event, property string, limit int) ([]string, error) {
	if event == "" || property == "" {
		return nil, invalidQuery("event and property are required")
	}
	if limit <= 0 {
		limit = 25
	}
	params := url.Values{}
	params.Set("event", event)
	params.Set("name", property)
	params.Set("limit", strconv.Itoa(limit))
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/events/properties/values", params)
	if err != nil {
		return nil, err
	}
	return shape.StringList(raw, "property values response")
}

// TopEvents returns today's top events by volume.
func (s *Service) TopEvents(ctx context.Context, limit int) (*models.TopEventsResult, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("type", "general")
	params.Set("limit", strconv.Itoa(limit))
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/events/top", params)
	if err != nil {
		return nil, err
	}
	return shape.TopEvents(raw)
}

// ListFunnels returns the project's saved funnels.
func (s *Service) ListFunnels(ctx context.Context) ([]models.FunnelInfo, error) {
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/funnels/list", url.Values{})
	if err != nil {
		return nil, err
	}
	return shape.FunnelList(raw)
}

// ListCohorts returns the project's saved cohorts.
func (s *Service) ListCohorts(ctx context.Context) ([]models.SavedCohort, error) {
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/cohorts/list", url.Values{})
	if err != nil {
		return nil, err
	}
	return shape.CohortList(raw)
}

// BookmarkQuery parameterizes a saved-report listing. Page is zero-based;
// Fields, when set, projects away optional descriptive fields not named.
type BookmarkQuery struct {
	Page    int      `validate:"min=0"`
	PerPage int      `validate:"min=0,max=200"`
	Fields  []string
}

// ListBookmarks returns one page of the project's saved reports. The
// Provider ships the whole listing; paging and projection are applied here
// so no response exceeds the envelope ceiling.
func (s *Service) ListBookmarks(ctx context.Context, q BookmarkQuery) (*models.BookmarkPage, error) {
	if err := s.check(q); err != nil {
		return nil, err
	}
	if q.PerPage == 0 {
		q.PerPage = 50
	}
	if q.PerPage > maxBookmarkPage {
		q.PerPage = maxBookmarkPage
	}
	raw, err := s.client.RequestJSON(ctx, http.MethodGet, "/query/bookmarks/list", url.Values{})
	if err != nil {
		return nil, err
	}
	all, err := shape.BookmarkList(raw)
	if err != nil {
		return nil, err
	}

	start := q.Page * q.PerPage
	if start > len(all) {
		start = len(all)
	}
	end := start + q.PerPage
	if end > len(all) {
		end = len(all)
	}
	page := make([]models.BookmarkInfo, end-start)
	copy(page, all[start:end])
	if len(q.Fields) > 0 {
		keep := make(map[string]bool, len(q.Fields))
		for _, f := range q.Fields {
			keep[f] = true
		}
		for i := range page {
			projectBookmark(&page[i], keep)
		}
	}
	return &models.BookmarkPage{
		Bookmarks: page,
		Page:      q.Page,
		PerPage:   q.PerPage,
		Total:     len(all),
		HasMore:   end < len(all),
	}, nil
}

// projectBookmark drops optional fields the caller did not request.
// Identity fields (id, name, type, project_id) always survive.
func projectBookmark(b *models.BookmarkInfo, keep map[string]bool) {
	if !keep["created"] {
		b.Created = ""
	}
	if !keep["modified"] {
		b.Modified = ""
	}
	if !keep["workspace_id"] {
		b.WorkspaceID = nil
	}
	if !keep["dashboard_id"] {
		b.DashboardID = nil
	}
	if !keep["description"] {
		b.Description = nil
	}
	if !keep["creator_id"] {
		b.CreatorID = nil
	}
	if !keep["creator_name"] {
		b.CreatorName = nil
	}
}
