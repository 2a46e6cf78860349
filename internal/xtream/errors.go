package xtream

import (
	"errors"
	"fmt"
)

// Sentinel failures callers match with errors.Is.
var (
	// ErrInvalidInput means the credentials or base URL were unusable before
	// any network call was attempted.
	ErrInvalidInput = errors.New("xtream: invalid input")

	// ErrUnauthorized covers HTTP 401/403 and auth responses with auth=false.
	ErrUnauthorized = errors.New("xtream: unauthorized")

	// ErrTimeout means the request exceeded the client timeout.
	ErrTimeout = errors.New("xtream: request timed out")

	// ErrEmptyResponse means the panel returned 2xx with an empty body.
	ErrEmptyResponse = errors.New("xtream: empty response")
)

// StatusError is a non-2xx response other than 401/403.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xtream: server returned HTTP %d", e.Code)
}

// NetworkError wraps a transport-level failure (DNS, connect, TLS, read).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "xtream: network failure: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError wraps a JSON decode failure with the action that produced it.
type DecodeError struct {
	Action string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("xtream: decode %s: %v", e.Action, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }
