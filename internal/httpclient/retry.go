package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls which answers DoWithRetry tries again.
type RetryPolicy struct {
	// Retry429: on 429, honor Retry-After (capped at Max429Wait) and retry once.
	// Xtream panels throttle aggressively when a sync walks every category.
	Retry429   bool
	Max429Wait time.Duration

	// Retry5xx: on a 5xx answer, wait Backoff5xx and retry once.
	Retry5xx   bool
	Backoff5xx time.Duration
}

// DefaultRetryPolicy retries 429 (wait capped at 30s) and 5xx (500ms backoff).
var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 30 * time.Second,
	Retry5xx:   true,
	Backoff5xx: 500 * time.Millisecond,
}

// DoWithRetry performs req and, when the policy allows, waits and retries a
// 429 or 5xx answer exactly once. Other 4xx answers are never retried. The
// caller must close resp.Body when err is nil.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = Default()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	var wait time.Duration
	switch {
	case resp.StatusCode == http.StatusTooManyRequests && policy.Retry429:
		wait = retryAfter(resp.Header.Get("Retry-After"), policy.Max429Wait)
	case resp.StatusCode >= 500 && policy.Retry5xx:
		wait = policy.Backoff5xx
	default:
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	// GET-only callers, so replaying the request needs no body rewind.
	retry, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		retry.Header[k] = v
	}
	return client.Do(retry)
}

// retryAfter parses a Retry-After header (seconds or HTTP-date), capped at max.
func retryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		return minDuration(time.Duration(sec)*time.Second, max)
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		return time.Second
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	return minDuration(until, max)
}

func minDuration(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}
