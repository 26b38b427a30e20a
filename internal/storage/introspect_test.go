package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/pkg/models"
)

func seedEvents(t *testing.T, e *Engine, table string) {
	t.Helper()
	require.NoError(t, e.CreateTable(table, models.TableKindEvents, false))
	rng := models.DateRange{From: "2024-01-01", To: "2024-01-01"}
	require.NoError(t, e.AppendEvents(table, testEvents(20, "2024-01-01"), &rng))
}

func TestSchema(t *testing.T) {
	e := newTestEngine(t)
	seedEvents(t, e, "ev")

	columns, err := e.Schema("ev")
	require.NoError(t, err)
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"distinct_id", "event_name", "event_time", "insert_id", "properties"}, names)

	_, err = e.Schema("absent")
	assert.True(t, mperrors.IsKind(err, mperrors.KindTableNotFound))
}

func TestSample(t *testing.T) {
	e := newTestEngine(t)
	seedEvents(t, e, "ev")

	result, err := e.Sample("ev", 5)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 5)
	assert.Len(t, result.Columns, 5)

	// Zero falls back to a sane default.
	result, err = e.Sample("ev", 0)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 10)
}

func TestSQL(t *testing.T) {
	e := newTestEngine(t)
	seedEvents(t, e, "ev")

	result, err := e.SQL(`SELECT event_name, COUNT(*) AS n FROM "ev" GROUP BY event_name`)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "signup", result.Rows[0][0])
	assert.EqualValues(t, 20, result.Rows[0][1])

	_, err = e.SQL(`SELECT FROM nope`)
	assert.True(t, mperrors.IsKind(err, mperrors.KindQuery))
}

func TestSQLScalar(t *testing.T) {
	e := newTestEngine(t)
	seedEvents(t, e, "ev")

	n, err := e.SQLScalar(`SELECT COUNT(*) FROM "ev"`)
	require.NoError(t, err)
	assert.EqualValues(t, 20, n)

	_, err = e.SQLScalar(`SELECT distinct_id FROM "ev" WHERE 1 = 0`)
	assert.True(t, mperrors.IsKind(err, mperrors.KindQuery))
}

func TestJSONKeys(t *testing.T) {
	e := newTestEngine(t)
	seedEvents(t, e, "ev")

	keys, err := e.JSONKeys("ev", "properties")
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "plan"}, keys)
}

func TestColumnStats(t *testing.T) {
	e := newTestEngine(t)
	seedEvents(t, e, "ev")

	t.Run("text column", func(t *testing.T) {
		stats, err := e.ColumnStats("ev", "distinct_id")
		require.NoError(t, err)
		assert.EqualValues(t, 20, stats.Count)
		assert.EqualValues(t, 0, stats.Nulls)
		assert.EqualValues(t, 20, stats.Distinct)
		assert.Nil(t, stats.Min)
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := e.ColumnStats("absent", "x")
		assert.True(t, mperrors.IsKind(err, mperrors.KindTableNotFound))
	})
}

func TestSummarize(t *testing.T) {
	e := newTestEngine(t)
	seedEvents(t, e, "ev")

	stats, err := e.Summarize("ev")
	require.NoError(t, err)
	assert.Len(t, stats, 5)
	assert.Equal(t, "distinct_id", stats[0].Column)
}
