// Package transport speaks the Provider's HTTP surface: regional endpoint
// selection, basic auth, retry with backoff, rate-limit classification, and
// streaming bodies for the bulk-export endpoints. One Client serves a whole
// workspace; its pooled http.Client is safe for concurrent use.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/catherinevee/mixport/internal/credentials"
	mperrors "github.com/catherinevee/mixport/internal/errors"
	"github.com/catherinevee/mixport/internal/retry"
	"github.com/catherinevee/mixport/internal/telemetry"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultIdleTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is read for the
	// error message.
	maxErrorBody = 4 * 1024
)

// Client is the process-wide Provider HTTP client for one workspace.
type Client struct {
	http        *http.Client
	streamHTTP  *http.Client
	creds       credentials.Credentials
	queryBase   string
	dataBase    string
	logger      zerolog.Logger
	policy      retry.Policy
	idleTimeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the per-request timeout for non-streaming calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithIdleTimeout sets the per-read idle timeout for NDJSON streams.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithBaseURLs overrides the regional base URLs. Tests point this at fixture
// servers.
func WithBaseURLs(queryBase, dataBase string) Option {
	return func(c *Client) {
		c.queryBase = strings.TrimRight(queryBase, "/")
		c.dataBase = strings.TrimRight(dataBase, "/")
	}
}

// New creates a Client for the given credentials. Connection pooling is
// sized for parallel fetch fan-out.
func New(creds credentials.Credentials, opts ...Option) *Client {
	pooled := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	endpoints := creds.Endpoints()
	c := &Client{
		http:        &http.Client{Transport: pooled, Timeout: defaultTimeout},
		streamHTTP:  &http.Client{Transport: pooled},
		creds:       creds,
		queryBase:   endpoints.QueryBase,
		dataBase:    endpoints.DataBase,
		logger:      zerolog.Nop(),
		policy:      retry.DefaultPolicy(),
		idleTimeout: defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle pooled connections.
func (c *Client) Close() {
	if t, ok := c.http.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// RequestJSON issues one request against the query base and parses the JSON
// response. Params are URL-encoded for GET and form-encoded for POST;
// project_id is always added. Retryable failures are retried per the
// client's policy.
func (c *Client) RequestJSON(ctx context.Context, method, endpoint string, params url.Values) (any, error) {
	body, err := c.do(ctx, method, c.queryBase+endpoint, endpoint, params)
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, mperrors.NewProtocolf("decode %s response: %v", endpoint, err).WithEndpoint(endpoint)
	}
	return parsed, nil
}

// requestStruct issues a request and decodes the response into out.
func (c *Client) requestStruct(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	body, err := c.do(ctx, method, c.queryBase+endpoint, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return mperrors.NewProtocolf("decode %s response: %v", endpoint, err).WithEndpoint(endpoint)
	}
	return nil
}

// do runs the retry loop for a buffered-response request.
func (c *Client) do(ctx context.Context, method, fullURL, endpoint string, params url.Values) ([]byte, error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "provider"+endpoint,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("provider.endpoint", endpoint),
		))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		body, err := c.attempt(ctx, method, fullURL, endpoint, params)
		if err == nil {
			requestsTotal.WithLabelValues(endpoint, "ok").Inc()
			requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			c.logger.Debug().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("elapsed", time.Since(start)).
				Msg("request completed")
			return body, nil
		}
		lastErr = err

		if !mperrors.Retryable(err) || attempt == c.policy.MaxAttempts {
			break
		}
		retriesTotal.WithLabelValues(endpoint).Inc()
		delay := c.policy.Delay(attempt)
		if e, ok := mperrors.AsError(err); ok && e.RetryAfter > 0 {
			delay = time.Duration(e.RetryAfter) * time.Second
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("retrying request")
		if werr := retry.Wait(ctx, delay); werr != nil {
			lastErr = mperrors.NewTransport("request cancelled during backoff", werr).WithEndpoint(endpoint)
			break
		}
	}

	requestsTotal.WithLabelValues(endpoint, string(mperrors.KindOf(lastErr))).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	c.logger.Error().
		Str("endpoint", endpoint).
		Str("kind", string(mperrors.KindOf(lastErr))).
		Dur("elapsed", time.Since(start)).
		Err(lastErr).
		Msg("request failed")
	return nil, lastErr
}

// attempt executes a single HTTP exchange and classifies the outcome.
func (c *Client) attempt(ctx context.Context, method, fullURL, endpoint string, params url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, method, fullURL, params)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mperrors.NewTransport("request failed", err).WithEndpoint(endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp, endpoint)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mperrors.NewTransport("read response body", err).WithEndpoint(endpoint)
	}
	return body, nil
}

// newRequest composes one authenticated request. project_id rides on every
// call; list parameters arrive already JSON-serialized in params.
func (c *Client) newRequest(ctx context.Context, method, fullURL string, params url.Values) (*http.Request, error) {
	merged := url.Values{}
	for k, vs := range params {
		merged[k] = vs
	}
	merged.Set("project_id", c.creds.ProjectID)

	var req *http.Request
	var err error
	switch method {
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, fullURL, strings.NewReader(merged.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, method, fullURL+"?"+merged.Encode(), nil)
	}
	if err != nil {
		return nil, mperrors.NewTransport("build request", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Secret)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// classifyStatus maps a non-200 response to the error taxonomy.
func classifyStatus(resp *http.Response, endpoint string) error {
	message := serverMessage(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if message == "" {
			message = "invalid or revoked credentials"
		}
		e := mperrors.NewAuth(message).WithEndpoint(endpoint)
		e.StatusCode = resp.StatusCode
		return e
	case resp.StatusCode == http.StatusTooManyRequests:
		if message == "" {
			message = "rate limit exceeded"
		}
		return mperrors.NewRateLimited(message, retryAfterSeconds(resp)).WithEndpoint(endpoint)
	case resp.StatusCode >= 500:
		if message == "" {
			message = fmt.Sprintf("server error (status %d)", resp.StatusCode)
		}
		return mperrors.NewServer(message, resp.StatusCode).WithEndpoint(endpoint)
	default:
		if message == "" {
			message = fmt.Sprintf("request rejected (status %d)", resp.StatusCode)
		}
		e := mperrors.NewQuery(message).WithEndpoint(endpoint)
		e.StatusCode = resp.StatusCode
		return e
	}
}

// serverMessage extracts the Provider's error text from a failed response.
// The Provider wraps messages as {"error": "..."}; anything else is used
// verbatim, truncated.
func serverMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(body) == 0 {
		return ""
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(body))
}

// retryAfterSeconds reads the Retry-After header, in seconds.
func retryAfterSeconds(resp *http.Response) int {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
