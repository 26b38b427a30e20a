package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mperrors "github.com/catherinevee/mixport/internal/errors"
)

func TestRetention(t *testing.T) {
	raw := decode(t, `{
		"2024-01-02": {"first": 50, "counts": [50, 10]},
		"2024-01-01": {"first": 100, "counts": [100, 40, 20]}
	}`)
	result, err := Retention(raw, "signup", "login", "2024-01-01", "2024-01-02", "day", 7)
	require.NoError(t, err)

	require.Len(t, result.Cohorts, 2)
	// Sorted by cohort date ascending regardless of envelope order.
	assert.Equal(t, "2024-01-01", result.Cohorts[0].Date)
	assert.Equal(t, "2024-01-02", result.Cohorts[1].Date)

	first := result.Cohorts[0]
	assert.Equal(t, 100, first.Size)
	assert.Equal(t, []float64{1.0, 0.4, 0.2}, first.Retention)

	// Periods not yet elapsed are absent, never zero-filled.
	second := result.Cohorts[1]
	assert.Len(t, second.Retention, 2)
	assert.Equal(t, []float64{1.0, 0.2}, second.Retention)
}

func TestRetentionEmptyCohort(t *testing.T) {
	raw := decode(t, `{"2024-01-01": {"first": 0, "counts": [0, 0]}}`)
	result, err := Retention(raw, "signup", "", "2024-01-01", "2024-01-01", "day", 7)
	require.NoError(t, err)

	cohort := result.Cohorts[0]
	assert.Equal(t, 0, cohort.Size)
	assert.Equal(t, []float64{0.0, 0.0}, cohort.Retention)
}

func TestRetentionEmptyResponse(t *testing.T) {
	result, err := Retention(decode(t, `{}`), "signup", "", "a", "b", "week", 4)
	require.NoError(t, err)
	assert.Empty(t, result.Cohorts)
	assert.Equal(t, "week", result.Interval)
}

func TestRetentionMalformed(t *testing.T) {
	_, err := Retention(decode(t, `{"2024-01-01": {"counts": [1]}}`), "e", "", "a", "b", "day", 7)
	assert.True(t, mperrors.IsKind(err, mperrors.KindProtocol))

	_, err = Retention(decode(t, `{"2024-01-01": {"first": 10}}`), "e", "", "a", "b", "day", 7)
	assert.True(t, mperrors.IsKind(err, mperrors.KindProtocol))
}
