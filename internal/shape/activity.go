package shape

import (
	"time"

	"github.com/catherinevee/mixport/pkg/models"
)

// ActivityFeed shapes an activity-stream envelope: {results: {events:
// [...]}}. Events stay in Provider order; each entry's epoch-seconds time is
// lifted into a UTC instant and the remaining properties are carried
// verbatim.
func ActivityFeed(raw any, distinctIDs []string, from, to string) (*models.ActivityFeedResult, error) {
	root, err := asMap(raw, "activity response")
	if err != nil {
		return nil, err
	}
	resultsRaw, err := requireKey(root, "results", "activity response")
	if err != nil {
		return nil, err
	}
	results, err := asMap(resultsRaw, "activity results")
	if err != nil {
		return nil, err
	}

	var entries []any
	if eventsRaw, ok := results["events"]; ok && eventsRaw != nil {
		entries, err = asSlice(eventsRaw, "activity events")
		if err != nil {
			return nil, err
		}
	}

	feed := &models.ActivityFeedResult{
		DistinctIDs: distinctIDs,
		From:        from,
		To:          to,
		Events:      make([]models.UserEvent, 0, len(entries)),
	}
	for _, entryRaw := range entries {
		entry, err := asMap(entryRaw, "activity event")
		if err != nil {
			return nil, err
		}
		nameRaw, err := requireKey(entry, "event", "activity event")
		if err != nil {
			return nil, err
		}
		name, err := asString(nameRaw, "activity event name")
		if err != nil {
			return nil, err
		}

		userEvent := models.UserEvent{Name: name, Properties: map[string]any{}}
		if propsRaw, ok := entry["properties"]; ok && propsRaw != nil {
			props, err := asMap(propsRaw, "activity event properties")
			if err != nil {
				return nil, err
			}
			userEvent.Properties = make(map[string]any, len(props))
			for k, v := range props {
				if k == keyTime {
					seconds, err := asFloat(v, "activity event time")
					if err != nil {
						return nil, err
					}
					userEvent.Time = time.Unix(int64(seconds), 0).UTC()
					continue
				}
				userEvent.Properties[k] = v
			}
		}
		feed.Events = append(feed.Events, userEvent)
	}
	return feed, nil
}
