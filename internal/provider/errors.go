package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrMissingAPIKey is returned when a backend is built without credentials.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrEmptyResponse is returned when a backend answers without any candidate.
	ErrEmptyResponse = errors.New("empty response")
)

// StatusError is a non-200 answer from an HTTP backend. Body holds the
// backend's error message when it sent one. RetryAfter is zero unless the
// backend asked for a delay.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout || e.StatusCode >= 500
}
