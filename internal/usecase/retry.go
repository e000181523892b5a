package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

const (
	// DefaultRetryAttempts caps the attempts made for a network failure.
	DefaultRetryAttempts = 3

	// DefaultRetryBaseDelay is the first backoff delay; it doubles each retry.
	DefaultRetryBaseDelay = time.Second
)

// Retrier retries transient search failures with exponential backoff.
//
// Network errors are retried up to the attempt cap. Upstream 5xx errors are
// retried once. Every other error is returned immediately.
type Retrier struct {
	attempts  int
	baseDelay time.Duration
	logger    *log.Logger
}

// NewRetrier creates a Retrier. attempts below 1 are treated as 1.
func NewRetrier(attempts int, baseDelay time.Duration, logger *log.Logger) *Retrier {
	return &Retrier{
		attempts:  max(attempts, 1),
		baseDelay: baseDelay,
		logger:    logger,
	}
}

// Do calls fn until it succeeds, fails permanently or the attempts run out.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.attempts-1)), ctx)

	serverRetried := false
	operation := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var upstream *domain.UpstreamError
		switch {
		case domain.IsNetwork(err):
			return err
		case errors.As(err, &upstream) && upstream.Transient() && !serverRetried:
			serverRetried = true
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	return backoff.RetryNotify(operation, policy, func(err error, delay time.Duration) {
		r.logger.Warn("retrying search request", "err", err, "delay", delay)
	})
}
