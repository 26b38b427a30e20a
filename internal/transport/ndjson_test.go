package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mperrors "github.com/catherinevee/mixport/internal/errors"
)

func TestStreamNDJSONReadsRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from_date"))
		w.Write([]byte(`{"event": "signup", "properties": {"n": 1}}` + "\n"))
		w.Write([]byte("\n")) // blank lines are tolerated
		w.Write([]byte(`{"event": "login", "properties": {"n": 2}}` + "\n"))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	defer c.Close()

	params := url.Values{}
	params.Set("from_date", "2024-01-01")
	stream, err := c.StreamNDJSON(context.Background(), "/2.0/export", params)
	require.NoError(t, err)
	defer stream.Close()

	var events []string
	for stream.Next() {
		record := stream.Value().(map[string]any)
		events = append(events, record["event"].(string))
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"signup", "login"}, events)

	// Exhausted streams stay exhausted.
	assert.False(t, stream.Next())
}

func TestStreamNDJSONEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	defer c.Close()

	stream, err := c.StreamNDJSON(context.Background(), "/2.0/export", url.Values{})
	require.NoError(t, err)
	defer stream.Close()

	assert.False(t, stream.Next())
	assert.NoError(t, stream.Err())
}

func TestStreamNDJSONMalformedLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"event": "ok"}` + "\n"))
		w.Write([]byte(`{not json` + "\n"))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	defer c.Close()

	stream, err := c.StreamNDJSON(context.Background(), "/2.0/export", url.Values{})
	require.NoError(t, err)
	defer stream.Close()

	assert.True(t, stream.Next())
	assert.False(t, stream.Next())
	assert.True(t, mperrors.IsKind(stream.Err(), mperrors.KindProtocol))
}

func TestStreamNDJSONIdleTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"event": "first"}` + "\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release // stall without ever finishing the body
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(t, server, WithIdleTimeout(50*time.Millisecond))
	defer c.Close()

	stream, err := c.StreamNDJSON(context.Background(), "/2.0/export", url.Values{})
	require.NoError(t, err)
	defer stream.Close()

	assert.True(t, stream.Next())
	assert.False(t, stream.Next())
	require.Error(t, stream.Err())
	assert.True(t, mperrors.IsKind(stream.Err(), mperrors.KindTransport))
	assert.Contains(t, stream.Err().Error(), "idle timeout")
}

func TestStreamNDJSONRetriesOpen(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"event": "recovered"}` + "\n"))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	defer c.Close()

	stream, err := c.StreamNDJSON(context.Background(), "/2.0/export", url.Values{})
	require.NoError(t, err)
	defer stream.Close()

	assert.True(t, stream.Next())
	assert.Equal(t, int32(2), attempts.Load())
}

func TestStreamNDJSONAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	defer c.Close()

	_, err := c.StreamNDJSON(context.Background(), "/2.0/export", url.Values{})
	require.Error(t, err)
	assert.True(t, mperrors.IsKind(err, mperrors.KindAuth))
}
