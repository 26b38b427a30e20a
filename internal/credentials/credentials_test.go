package credentials

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		input    string
		expected Region
		wantErr  bool
	}{
		{"us", RegionUS, false},
		{"US", RegionUS, false},
		{"", RegionUS, false},
		{"eu", RegionEU, false},
		{" EU ", RegionEU, false},
		{"in", RegionIN, false},
		{"mars", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			region, err := ParseRegion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, region)
		})
	}
}

func TestEndpointsFor(t *testing.T) {
	us := EndpointsFor(RegionUS)
	assert.Equal(t, "https://mixpanel.com/api", us.QueryBase)
	assert.Equal(t, "https://data.mixpanel.com/api", us.DataBase)

	eu := EndpointsFor(RegionEU)
	assert.Equal(t, "https://eu.mixpanel.com/api", eu.QueryBase)
	assert.Equal(t, "https://data-eu.mixpanel.com/api", eu.DataBase)

	in := EndpointsFor(RegionIN)
	assert.Equal(t, "https://in.mixpanel.com/api", in.QueryBase)
	assert.Equal(t, "https://data-in.mixpanel.com/api", in.DataBase)
}

func TestNewValidation(t *testing.T) {
	_, err := New("", "secret", "12345", RegionUS)
	assert.Error(t, err)

	_, err = New("svc.user", "", "12345", RegionUS)
	assert.Error(t, err)

	_, err = New("svc.user", "secret", "", RegionUS)
	assert.Error(t, err)

	creds, err := New("svc.user", "secret", "12345", "")
	require.NoError(t, err)
	assert.Equal(t, RegionUS, creds.Region)
}

func TestSecretNeverRendered(t *testing.T) {
	creds, err := New("svc.user", "topsecret123", "12345", RegionEU)
	require.NoError(t, err)

	t.Run("string", func(t *testing.T) {
		rendered := creds.String()
		assert.NotContains(t, rendered, "topsecret123")
		assert.Contains(t, rendered, Redacted)
		assert.Contains(t, rendered, "svc.user")
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(creds)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "topsecret123")

		var decoded map[string]string
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, Redacted, decoded["secret"])
		assert.Equal(t, "12345", decoded["project_id"])
	})

	t.Run("zerolog", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		logger.Info().Object("credentials", creds).Msg("workspace opened")
		assert.NotContains(t, buf.String(), "topsecret123")
		assert.Contains(t, buf.String(), Redacted)
	})
}
