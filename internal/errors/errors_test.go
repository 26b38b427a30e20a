package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuth, KindOf(NewAuth("bad credentials")))
	assert.Equal(t, KindRateLimited, KindOf(NewRateLimited("throttled", 30)))
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NewServer("upstream exploded", 502)
	wrapped := fmt.Errorf("fetch day 2024-01-01: %w", inner)
	assert.Equal(t, KindServer, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindServer))

	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 502, e.StatusCode)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NewRateLimited("throttled", 0)))
	assert.True(t, Retryable(NewServer("oops", 500)))
	assert.True(t, Retryable(NewTransport("conn reset", fmt.Errorf("eof"))))

	assert.False(t, Retryable(NewAuth("nope")))
	assert.False(t, Retryable(NewQuery("bad date")))
	assert.False(t, Retryable(NewProtocol("garbage body")))
	assert.False(t, Retryable(NewTableExists("events")))
	assert.False(t, Retryable(nil))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, 0},
		{"auth", NewAuth("bad"), 2},
		{"query", NewQuery("bad date"), 3},
		{"config", NewConfig("no account"), 3},
		{"rate limited", NewRateLimited("throttled", 10), 5},
		{"partial", NewPartialf("%d of %d slices failed", 1, 3), 1},
		{"server", NewServer("oops", 500), 1},
		{"transport", NewTransport("reset", nil), 1},
		{"foreign", fmt.Errorf("plain"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ExitCode(tt.err))
		})
	}
}

func TestErrorRendering(t *testing.T) {
	err := NewRateLimited("rate limit exceeded", 30).WithEndpoint("/query/segmentation")
	assert.Contains(t, err.Error(), "rate_limited")
	assert.Contains(t, err.Error(), "/query/segmentation")

	wrapped := Wrap(KindTransport, "read body", fmt.Errorf("unexpected EOF"))
	assert.Contains(t, wrapped.Error(), "unexpected EOF")
	assert.EqualError(t, wrapped.Unwrap(), "unexpected EOF")
}
