package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v80/github"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

// defaultSecondaryRetryAfter is used when a secondary rate limit response
// carries no Retry-After header.
const defaultSecondaryRetryAfter = time.Minute

// wrapError converts go-github errors to the domain error taxonomy.
func wrapError(ctx context.Context, resp *github.Response, err error, operation string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", operation, ctxErr)
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		reset := rateLimitErr.Rate.Reset.Time
		return &domain.RateLimitedError{RetryAfter: max(time.Until(reset), 0), ResetAt: reset}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retryAfter := defaultSecondaryRetryAfter
		if abuseErr.RetryAfter != nil {
			retryAfter = *abuseErr.RetryAfter
		}
		return &domain.RateLimitedError{RetryAfter: retryAfter, ResetAt: time.Now().Add(retryAfter)}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		message := ghErr.Message
		if message == "" {
			message = "unknown"
		}
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		return &domain.UpstreamError{Status: status, Message: message}
	}

	var otpErr *github.TwoFactorAuthError
	if errors.As(err, &otpErr) {
		return &domain.UpstreamError{Status: http.StatusUnauthorized, Message: otpErr.Message}
	}

	if resp != nil && resp.Response != nil {
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return &domain.MalformedResponseError{Err: fmt.Errorf("%s: %w", operation, err)}
		case resp.StatusCode >= 300:
			// Redirects and other non-2xx answers go-github reports with its own types.
			message := http.StatusText(resp.StatusCode)
			if message == "" {
				message = "unknown"
			}
			return &domain.UpstreamError{Status: resp.StatusCode, Message: message}
		}
	}

	return &domain.NetworkError{Err: fmt.Errorf("%s: %w", operation, err)}
}

func malformed(reason string) error {
	return &domain.MalformedResponseError{Err: errors.New(reason)}
}
