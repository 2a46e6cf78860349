// Package httpclient provides the shared tuned HTTP client for panel calls,
// plus a one-shot retry wrapper for 429/5xx answers.
package httpclient

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout         = 20 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 8
)

var defaultClient = &http.Client{
	Timeout: DefaultTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	},
}

// Default returns the shared client. Panel syncs issue many small sequential
// calls to one host, so connection reuse matters more than parallelism.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client with the given timeout on the same transport
// settings as Default.
func WithTimeout(timeout time.Duration) *http.Client {
	t, ok := defaultClient.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: t.Clone(),
	}
}
