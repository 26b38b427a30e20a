package shape

import (
	"sort"

	"github.com/catherinevee/mixport/pkg/models"
)

// StringList parses a plain JSON array of names, as returned by the event
// and property listing endpoints.
func StringList(raw any, what string) ([]string, error) {
	entries, err := asSlice(raw, what)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name, err := asString(entry, what+" entry")
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// EngageProperties parses the profile-property listing envelope
// {results: {name: {count: n}}} into sorted property names.
func EngageProperties(raw any) ([]string, error) {
	root, err := asMap(raw, "engage properties response")
	if err != nil {
		return nil, err
	}
	resultsRaw, err := requireKey(root, "results", "engage properties response")
	if err != nil {
		return nil, err
	}
	results, err := asMap(resultsRaw, "engage properties results")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// TopEvents parses the top-events envelope {events: [{event, amount,
// percent_change}]}, in Provider order. Some Provider versions name the
// count field "count" instead of "amount".
func TopEvents(raw any) (*models.TopEventsResult, error) {
	root, err := asMap(raw, "top events response")
	if err != nil {
		return nil, err
	}
	eventsRaw, err := requireKey(root, "events", "top events response")
	if err != nil {
		return nil, err
	}
	entries, err := asSlice(eventsRaw, "top events")
	if err != nil {
		return nil, err
	}

	result := &models.TopEventsResult{Events: make([]models.TopEvent, 0, len(entries))}
	for _, entryRaw := range entries {
		entry, err := asMap(entryRaw, "top event")
		if err != nil {
			return nil, err
		}
		nameRaw, err := requireKey(entry, "event", "top event")
		if err != nil {
			return nil, err
		}
		top := models.TopEvent{Event: stringify(nameRaw)}
		if countRaw, ok := entry["amount"]; ok {
			top.Count, err = asFloat(countRaw, "top event amount")
		} else if countRaw, ok := entry["count"]; ok {
			top.Count, err = asFloat(countRaw, "top event count")
		}
		if err != nil {
			return nil, err
		}
		if pcRaw, ok := entry["percent_change"]; ok && pcRaw != nil {
			top.PercentChange, err = asFloat(pcRaw, "top event percent change")
			if err != nil {
				return nil, err
			}
		}
		result.Events = append(result.Events, top)
	}
	return result, nil
}

// FunnelList parses the saved-funnel listing: [{funnel_id, name}].
func FunnelList(raw any) ([]models.FunnelInfo, error) {
	entries, err := asSlice(raw, "funnel list response")
	if err != nil {
		return nil, err
	}
	funnels := make([]models.FunnelInfo, 0, len(entries))
	for _, entryRaw := range entries {
		entry, err := asMap(entryRaw, "funnel list entry")
		if err != nil {
			return nil, err
		}
		idRaw, err := requireKey(entry, "funnel_id", "funnel list entry")
		if err != nil {
			return nil, err
		}
		id, err := asFloat(idRaw, "funnel id")
		if err != nil {
			return nil, err
		}
		info := models.FunnelInfo{FunnelID: int64(id)}
		if nameRaw, ok := entry["name"]; ok {
			info.Name = stringify(nameRaw)
		}
		funnels = append(funnels, info)
	}
	return funnels, nil
}

// CohortList parses the saved-cohort listing.
func CohortList(raw any) ([]models.SavedCohort, error) {
	entries, err := asSlice(raw, "cohort list response")
	if err != nil {
		return nil, err
	}
	cohorts := make([]models.SavedCohort, 0, len(entries))
	for _, entryRaw := range entries {
		entry, err := asMap(entryRaw, "cohort list entry")
		if err != nil {
			return nil, err
		}
		idRaw, err := requireKey(entry, "id", "cohort list entry")
		if err != nil {
			return nil, err
		}
		id, err := asFloat(idRaw, "cohort id")
		if err != nil {
			return nil, err
		}
		cohort := models.SavedCohort{ID: int64(id)}
		if v, ok := entry["project_id"]; ok {
			projectID, err := asFloat(v, "cohort project id")
			if err != nil {
				return nil, err
			}
			cohort.ProjectID = int64(projectID)
		}
		if v, ok := entry["name"]; ok {
			cohort.Name = stringify(v)
		}
		if v, ok := entry["description"]; ok {
			cohort.Description = stringify(v)
		}
		if v, ok := entry["count"]; ok {
			count, err := asFloat(v, "cohort count")
			if err != nil {
				return nil, err
			}
			cohort.Count = int64(count)
		}
		if v, ok := entry["is_visible"]; ok {
			switch visible := v.(type) {
			case bool:
				cohort.IsVisible = visible
			case float64:
				cohort.IsVisible = visible != 0
			}
		}
		if v, ok := entry["created"]; ok {
			cohort.Created = stringify(v)
		}
		cohorts = append(cohorts, cohort)
	}
	return cohorts, nil
}

// BookmarkList parses a saved-report listing. The Provider wraps entries in
// {results: [...]}; a bare array is accepted too. Required identity fields
// (id, name, type, project_id) must be present; descriptive fields are
// optional and stay nil when absent.
func BookmarkList(raw any) ([]models.BookmarkInfo, error) {
	entriesRaw := raw
	if root, ok := raw.(map[string]any); ok {
		inner, err := requireKey(root, "results", "bookmark list response")
		if err != nil {
			return nil, err
		}
		entriesRaw = inner
	}
	entries, err := asSlice(entriesRaw, "bookmark list")
	if err != nil {
		return nil, err
	}

	bookmarks := make([]models.BookmarkInfo, 0, len(entries))
	for _, entryRaw := range entries {
		entry, err := asMap(entryRaw, "bookmark entry")
		if err != nil {
			return nil, err
		}
		idRaw, err := requireKey(entry, "id", "bookmark entry")
		if err != nil {
			return nil, err
		}
		id, err := asFloat(idRaw, "bookmark id")
		if err != nil {
			return nil, err
		}
		typeRaw, err := requireKey(entry, "type", "bookmark entry")
		if err != nil {
			return nil, err
		}
		info := models.BookmarkInfo{
			ID:   int64(id),
			Type: stringify(typeRaw),
		}
		if v, ok := entry["name"]; ok {
			info.Name = stringify(v)
		}
		if v, ok := entry["project_id"]; ok {
			projectID, err := asFloat(v, "bookmark project id")
			if err != nil {
				return nil, err
			}
			info.ProjectID = int64(projectID)
		}
		if v, ok := entry["created"]; ok {
			info.Created = stringify(v)
		}
		if v, ok := entry["modified"]; ok {
			info.Modified = stringify(v)
		}
		if v, ok := entry["workspace_id"].(float64); ok {
			id := int64(v)
			info.WorkspaceID = &id
		}
		if v, ok := entry["dashboard_id"].(float64); ok {
			id := int64(v)
			info.DashboardID = &id
		}
		if v, ok := entry["description"].(string); ok {
			info.Description = &v
		}
		if v, ok := entry["creator_id"].(float64); ok {
			id := int64(v)
			info.CreatorID = &id
		}
		if v, ok := entry["creator_name"].(string); ok {
			info.CreatorName = &v
		}
		bookmarks = append(bookmarks, info)
	}
	return bookmarks, nil
}
