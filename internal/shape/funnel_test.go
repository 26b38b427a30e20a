package shape

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunnelAggregatesAcrossDates(t *testing.T) {
	raw := decode(t, `{
		"data": {
			"2024-01-01": {
				"steps": [
					{"event": "visit", "count": 100},
					{"event": "signup", "count": 40},
					{"event": "purchase", "count": 10}
				],
				"analysis": {}
			},
			"2024-01-02": {
				"steps": [
					{"event": "visit", "count": 100},
					{"event": "signup", "count": 20},
					{"event": "purchase", "count": 10}
				],
				"analysis": {}
			}
		}
	}`)
	result, err := Funnel(raw, 42, "checkout", "2024-01-01", "2024-01-02")
	require.NoError(t, err)

	require.Len(t, result.Steps, 3)
	assert.Equal(t, int64(42), result.FunnelID)
	assert.Equal(t, "visit", result.Steps[0].Event)
	assert.Equal(t, 200.0, result.Steps[0].Count)
	assert.Equal(t, 60.0, result.Steps[1].Count)
	assert.Equal(t, 20.0, result.Steps[2].Count)

	assert.Equal(t, 1.0, result.Steps[0].ConversionRate)
	assert.InDelta(t, 0.3, result.Steps[1].ConversionRate, 1e-9)
	assert.InDelta(t, 20.0/60.0, result.Steps[2].ConversionRate, 1e-9)

	assert.Equal(t, 1.0, result.Steps[0].OverallConversionRate)
	assert.InDelta(t, 0.3, result.Steps[1].OverallConversionRate, 1e-9)
	assert.InDelta(t, 0.1, result.Steps[2].OverallConversionRate, 1e-9)
	assert.InDelta(t, 0.1, result.OverallConversion, 1e-9)
}

func TestFunnelZeroStepCounts(t *testing.T) {
	raw := decode(t, `{
		"data": {
			"2024-01-01": {
				"steps": [
					{"event": "a", "count": 0},
					{"event": "b", "count": 0}
				]
			}
		}
	}`)
	result, err := Funnel(raw, 1, "", "2024-01-01", "2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Steps[0].ConversionRate)
	assert.Equal(t, 0.0, result.Steps[1].ConversionRate)
	assert.Equal(t, 0.0, result.Steps[1].OverallConversionRate)
	assert.Equal(t, 0.0, result.OverallConversion)
}

func TestFunnelEmptyData(t *testing.T) {
	result, err := Funnel(decode(t, `{"data": {}}`), 1, "", "a", "b")
	require.NoError(t, err)
	assert.Empty(t, result.Steps)
	assert.Equal(t, 0.0, result.OverallConversion)
}

func TestFunnelConversionRateBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Funnels are monotone non-increasing by construction, so generate
	// non-increasing step counts and check the rate invariants.
	genCounts := gen.SliceOfN(4, gen.Float64Range(0, 1e5)).Map(func(counts []float64) []float64 {
		for i := 1; i < len(counts); i++ {
			if counts[i] > counts[i-1] {
				counts[i] = counts[i-1]
			}
		}
		return counts
	})

	properties.Property("conversion rates stay within [0, 1] for monotone funnels",
		prop.ForAll(func(counts []float64) bool {
			steps := make([]any, 0, len(counts))
			for _, count := range counts {
				steps = append(steps, map[string]any{"event": "e", "count": count})
			}
			raw := map[string]any{"data": map[string]any{
				"2024-01-01": map[string]any{"steps": steps},
			}}
			result, err := Funnel(raw, 1, "", "a", "b")
			if err != nil {
				return false
			}
			for _, step := range result.Steps {
				if step.ConversionRate < 0 || step.ConversionRate > 1 {
					return false
				}
				if step.OverallConversionRate < 0 || step.OverallConversionRate > 1 {
					return false
				}
			}
			return result.OverallConversion >= 0 && result.OverallConversion <= 1
		}, genCounts))

	properties.TestingRun(t)
}
