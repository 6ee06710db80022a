// Package campaign is the HTTP client for the messaging platform's history
// endpoint.
//
// Only one operation matters to this repository: fetching the message history
// of an application between two dates. The platform answers with a CSV body
// that the source loader turns into records for the flatten engine.
package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/steventflorez/Converted-Message/internal/metrics"
)

// APIError is a non-2xx platform response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform API: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform API: HTTP %d", e.StatusCode)
}

// Client calls the messaging platform API.
//
// The zero value is not usable; construct with New. All requests carry an
// X-Request-ID header for correlation with platform support.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	jobName     string

	// Test seams.
	newID func() string
	sleep func(ctx context.Context, d time.Duration) bool
}

// Config tunes a Client. Zero fields fall back to defaults.
type Config struct {
	// BaseURL of the platform API, e.g. "https://api.example.com".
	BaseURL string

	// Timeout per HTTP request. Defaults to 60s.
	Timeout time.Duration

	// MaxAttempts per call, including the first. Defaults to 5.
	MaxAttempts int

	// BaseBackoff and MaxBackoff bound the exponential retry delay.
	// Defaults: 2s base, 30s max.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// JobName tags HTTP metrics. Defaults to "history".
	JobName string

	// HTTPClient overrides the default transport (tests, proxies).
	HTTPClient *http.Client
}

// New constructs a Client.
//
// Errors:
//   - Returns an error when BaseURL is empty or unparsable.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("campaign: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("campaign: parse BaseURL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 2 * time.Second
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	job := cfg.JobName
	if job == "" {
		job = "history"
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = newHTTPClient(timeout)
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  hc,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
		jobName:     job,
		newID:       uuid.NewString,
		sleep:       sleepContext,
	}, nil
}

// newHTTPClient builds a transport with sane pooling defaults for a small
// number of sequential API calls.
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// MessageHistory fetches the message history CSV for an application between
// two dates (inclusive, platform-local semantics; dates as "2006-01-02").
//
// Retry policy:
//   - Network errors, 429 and 5xx responses are retried up to MaxAttempts
//     with exponential backoff; a 429 Retry-After header overrides the delay.
//   - Other 4xx responses fail immediately with *APIError (a structured
//     error body {"message": ...} is surfaced when present).
//
// Every attempt is recorded through the metrics facade.
func (c *Client) MessageHistory(ctx context.Context, applicationID int, dateFrom, dateTo string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1/applications/%d/messages/history", c.baseURL, applicationID)

	q := url.Values{}
	q.Set("date_from", dateFrom)
	q.Set("date_to", dateTo)
	reqURL := endpoint + "?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, retryAfter, err := c.doAttempt(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.maxAttempts {
			return nil, err
		}

		wait := nextRetryDelay(attempt, c.baseBackoff, c.maxBackoff, retryAfter)
		if !c.sleep(ctx, wait) {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// doAttempt performs one request. retryAfter is non-zero only for a 429
// response carrying a usable Retry-After header.
func (c *Client) doAttempt(ctx context.Context, reqURL string) (body []byte, retryAfter time.Duration, err error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("X-Request-ID", c.newID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordHTTP(c.jobName, 0, err, time.Since(start), 0, -1)
		return nil, 0, &transportError{err: err}
	}
	reqDur := time.Since(start)
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	respDur := time.Since(start)

	metrics.RecordHTTP(c.jobName, resp.StatusCode, readErr, reqDur, respDur, int64(len(data)))

	if readErr != nil {
		return nil, 0, &transportError{err: fmt.Errorf("read body: %w", readErr)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, 0, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: decodeErrorMessage(data)}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, parseRetryAfter(resp.Header), apiErr
	}
	return nil, 0, apiErr
}

// transportError marks network-level failures as retryable.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	if _, ok := err.(*transportError); ok {
		return true
	}
	if ae, ok := err.(*APIError); ok {
		return ae.StatusCode == http.StatusTooManyRequests || ae.StatusCode >= 500
	}
	return false
}

// decodeErrorMessage extracts "message" (or "error") from a structured error
// body. Non-JSON bodies yield an empty message.
func decodeErrorMessage(data []byte) string {
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return ""
	}
	if obj.Message != "" {
		return obj.Message
	}
	return obj.Error
}

func nextRetryDelay(attempt int, base, max, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	d := base << uint(attempt-1)
	if d > max {
		d = max
	}
	return d
}

func parseRetryAfter(h http.Header) time.Duration {
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}

	if secs, err := strconv.Atoi(ra); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
