package shape

import (
	"time"

	"github.com/google/uuid"

	"github.com/catherinevee/mixport/pkg/models"
)

// Raw property keys promoted into named record fields during normalization.
const (
	keyDistinctID        = "distinct_id"
	keyTime              = "time"
	keyInsertID          = "$insert_id"
	keyProfileDistinctID = "$distinct_id"
	keyProfileProperties = "$properties"
	keyLastSeen          = "$last_seen"
)

// lastSeenLayouts are the timestamp renderings the Provider has been
// observed to use for $last_seen.
var lastSeenLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// NormalizeEvent lifts identity fields out of a raw export envelope:
// distinct_id, time (epoch seconds to a UTC instant), and $insert_id
// (synthesizing a UUIDv4 when absent). Remaining properties are carried
// verbatim. Normalization is idempotent: re-normalizing an envelope whose
// promoted values are already lifted reproduces the same record.
func NormalizeEvent(raw any) (models.EventRecord, error) {
	envelope, err := asMap(raw, "event record")
	if err != nil {
		return models.EventRecord{}, err
	}
	nameRaw, err := requireKey(envelope, "event", "event record")
	if err != nil {
		return models.EventRecord{}, err
	}
	name, err := asString(nameRaw, "event name")
	if err != nil {
		return models.EventRecord{}, err
	}

	props := map[string]any{}
	if propsRaw, ok := envelope["properties"]; ok {
		props, err = asMap(propsRaw, "event properties")
		if err != nil {
			return models.EventRecord{}, err
		}
	}

	record := models.EventRecord{
		Name:       name,
		Properties: make(map[string]any, len(props)),
	}
	for k, v := range props {
		switch k {
		case keyDistinctID:
			record.DistinctID = stringify(v)
		case keyTime:
			seconds, err := asFloat(v, "event time")
			if err != nil {
				return models.EventRecord{}, err
			}
			record.Time = time.Unix(int64(seconds), 0).UTC()
		case keyInsertID:
			record.InsertID = stringify(v)
		default:
			record.Properties[k] = v
		}
	}
	if record.InsertID == "" {
		record.InsertID = uuid.NewString()
	}
	return record, nil
}

// NormalizeProfile lifts $distinct_id and $last_seen out of a raw engage
// envelope. The remaining $properties are carried verbatim.
func NormalizeProfile(raw any) (models.ProfileRecord, error) {
	envelope, err := asMap(raw, "profile record")
	if err != nil {
		return models.ProfileRecord{}, err
	}
	idRaw, err := requireKey(envelope, keyProfileDistinctID, "profile record")
	if err != nil {
		return models.ProfileRecord{}, err
	}

	props := map[string]any{}
	if propsRaw, ok := envelope[keyProfileProperties]; ok {
		props, err = asMap(propsRaw, "profile properties")
		if err != nil {
			return models.ProfileRecord{}, err
		}
	}

	record := models.ProfileRecord{
		DistinctID: stringify(idRaw),
		Properties: make(map[string]any, len(props)),
	}
	for k, v := range props {
		if k == keyLastSeen {
			if ts, ok := parseLastSeen(v); ok {
				record.LastSeen = &ts
			}
			continue
		}
		record.Properties[k] = v
	}
	return record, nil
}

func parseLastSeen(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range lastSeenLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
