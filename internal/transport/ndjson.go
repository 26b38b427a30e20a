package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/internal/retry"
)

const (
	// Scanner buffers for NDJSON lines. Export records are usually small
	// but a single event can carry large property payloads.
	scanInitialBuffer = 1 << 20  // 1 MiB
	scanMaxBuffer     = 10 << 20 // 10 MiB
)

// NDJSONStream is a single-pass reader over a newline-delimited JSON
// response body. The body is consumed line by line and never buffered
// whole; blank lines are tolerated. A per-read idle watchdog aborts stalled
// transfers. Re-iteration requires a fresh call to the Provider.
type NDJSONStream struct {
	endpoint  string
	body      io.ReadCloser
	scanner   *bufio.Scanner
	idle      time.Duration
	watchdog  *time.Timer
	timedOut  atomic.Bool
	closeOnce sync.Once

	value any
	err   error
	done  bool
}

func newNDJSONStream(endpoint string, body io.ReadCloser, idle time.Duration) *NDJSONStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, scanInitialBuffer), scanMaxBuffer)
	s := &NDJSONStream{
		endpoint: endpoint,
		body:     body,
		scanner:  scanner,
		idle:     idle,
	}
	s.watchdog = time.AfterFunc(idle, func() {
		s.timedOut.Store(true)
		body.Close()
	})
	return s
}

// Next advances to the next record. It returns false at end of stream or on
// error; Err distinguishes the two.
func (s *NDJSONStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		s.watchdog.Reset(s.idle)
		ok := s.scanner.Scan()
		s.watchdog.Stop()
		if !ok {
			s.done = true
			if scanErr := s.scanner.Err(); scanErr != nil {
				if s.timedOut.Load() {
					s.err = mperrors.NewTransport("stream idle timeout", scanErr).WithEndpoint(s.endpoint)
				} else {
					s.err = mperrors.NewTransport("stream read failed", scanErr).WithEndpoint(s.endpoint)
				}
			}
			s.Close()
			return false
		}
		line := s.scanner.Bytes()
		if len(trimSpace(line)) == 0 {
			continue
		}
		var value any
		if err := json.Unmarshal(line, &value); err != nil {
			s.done = true
			s.err = mperrors.NewProtocolf("decode stream record: %v", err).WithEndpoint(s.endpoint)
			s.Close()
			return false
		}
		s.value = value
		return true
	}
}

// Value returns the record decoded by the last successful Next.
func (s *NDJSONStream) Value() any {
	return s.value
}

// Err returns the first error encountered, if any.
func (s *NDJSONStream) Err() error {
	return s.err
}

// Close releases the underlying HTTP connection. Safe to call more than
// once and after exhaustion.
func (s *NDJSONStream) Close() error {
	s.closeOnce.Do(func() {
		s.watchdog.Stop()
		// Drain nothing; closing mid-body discards the connection instead
		// of returning half-read bytes to the pool.
		s.body.Close()
	})
	return nil
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t' || b[start] == '\r') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t' || b[end-1] == '\r') {
		end--
	}
	return b[start:end]
}

// StreamNDJSON opens a streaming GET against the data base URL and returns
// a lazy record stream. The retry policy covers connection establishment
// and non-200 statuses; once the body starts flowing, failures surface
// through the stream itself.
func (c *Client) StreamNDJSON(ctx context.Context, endpoint string, params url.Values) (*NDJSONStream, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		req, err := c.newRequest(ctx, http.MethodGet, c.dataBase+endpoint, params)
		if err != nil {
			return nil, err
		}
		resp, err := c.streamHTTP.Do(req)
		if err != nil {
			lastErr = mperrors.NewTransport("stream request failed", err).WithEndpoint(endpoint)
		} else if resp.StatusCode != http.StatusOK {
			lastErr = classifyStatus(resp, endpoint)
			resp.Body.Close()
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("stream opened")
			return newNDJSONStream(endpoint, resp.Body, c.idleTimeout), nil
		}

		if !mperrors.Retryable(lastErr) || attempt == c.policy.MaxAttempts {
			break
		}
		retriesTotal.WithLabelValues(endpoint).Inc()
		delay := c.policy.Delay(attempt)
		if e, ok := mperrors.AsError(lastErr); ok && e.RetryAfter > 0 {
			delay = time.Duration(e.RetryAfter) * time.Second
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("retrying stream open")
		if werr := retry.Wait(ctx, delay); werr != nil {
			return nil, mperrors.NewTransport("stream cancelled during backoff", werr).WithEndpoint(endpoint)
		}
	}
	c.logger.Error().
		Str("endpoint", endpoint).
		Str("kind", string(mperrors.KindOf(lastErr))).
		Err(lastErr).
		Msg("stream open failed")
	return nil, lastErr
}
