package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrSuperseded is returned to a search that was replaced by a newer one
// before it finished. Its result has been discarded.
var ErrSuperseded = errors.New("search superseded by a newer query")

// InvalidQueryError is a caller error. It is never retryable.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	if e.Field == "" {
		return "invalid query: " + e.Reason
	}
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// RateLimitedError means the quota is exhausted until ResetAt.
type RateLimitedError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

// NetworkError wraps a transport failure (DNS, timeout, connection reset).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from GitHub.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("github: API error %d: %s", e.Status, e.Message)
}

// Transient reports whether the status indicates a server side condition.
func (e *UpstreamError) Transient() bool {
	return e.Status >= http.StatusInternalServerError
}

// MalformedResponseError is a 2xx response whose body did not match the
// expected schema.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsInvalidQuery checks if the error is a caller validation error.
func IsInvalidQuery(err error) bool {
	var target *InvalidQueryError
	return errors.As(err, &target)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var target *RateLimitedError
	return errors.As(err, &target)
}

// IsNetwork checks if the error is a transport failure.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsUpstream checks if the error is an upstream API error.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsMalformed checks if the error is a response schema violation.
func IsMalformed(err error) bool {
	var target *MalformedResponseError
	return errors.As(err, &target)
}

// Retryable reports whether a caller may retry after err.
// Network errors and 5xx upstream errors are retryable; rate limiting is
// retryable only after its delay, so it is reported as not retryable here.
func Retryable(err error) bool {
	if IsNetwork(err) {
		return true
	}
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.Transient()
}
