// Package shape maps the Provider's heterogeneous JSON envelopes into the
// uniform result values of pkg/models. Every function is pure: total for
// well-formed envelopes, a protocol error for malformed ones.
package shape

import (
	"fmt"
	"strconv"

	mperrors "github.com/catherinevee/mixport/internal/errors"
)

func asMap(v any, what string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, mperrors.NewProtocolf("%s: expected object, got %T", what, v)
	}
	return m, nil
}

func asSlice(v any, what string) ([]any, error) {
	s, ok := v.([]any)
	if !ok {
		return nil, mperrors.NewProtocolf("%s: expected array, got %T", what, v)
	}
	return s, nil
}

func asString(v any, what string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mperrors.NewProtocolf("%s: expected string, got %T", what, v)
	}
	return s, nil
}

func asFloat(v any, what string) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, mperrors.NewProtocolf("%s: expected number, got %T", what, v)
	}
}

func asInt(v any, what string) (int, error) {
	f, err := asFloat(v, what)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// stringify renders scalar identifiers the Provider sometimes ships as
// numbers.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// requireKey fetches a required envelope key.
func requireKey(m map[string]any, key, what string) (any, error) {
	v, ok := m[key]
	if !ok {
		return nil, mperrors.NewProtocolf("%s: missing key %q", what, key)
	}
	return v, nil
}

// countSeries parses a {label: {bucket: count}} two-level mapping.
func countSeries(v any, what string) (map[string]map[string]float64, error) {
	outer, err := asMap(v, what)
	if err != nil {
		return nil, err
	}
	series := make(map[string]map[string]float64, len(outer))
	for label, bucketsRaw := range outer {
		buckets, err := asMap(bucketsRaw, what+" entry")
		if err != nil {
			return nil, err
		}
		counts := make(map[string]float64, len(buckets))
		for bucket, countRaw := range buckets {
			count, err := asFloat(countRaw, what+" count")
			if err != nil {
				return nil, err
			}
			counts[bucket] = count
		}
		series[label] = counts
	}
	return series, nil
}
