// Package ratelimit gates outgoing GitHub requests on the quota reported by
// the API's rate-limit headers.
//
// A Limiter never blocks. When the quota is exhausted Acquire fails at once
// with a *domain.RateLimitedError and the caller decides whether to wait.
// Until the first response arrives the documented tier defaults are
// enforced with a token bucket.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

const (
	// HeaderRateLimit is the rate limit header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"
)

// Quota is a documented request budget per window.
type Quota struct {
	Limit  int
	Window time.Duration
}

// Documented defaults, used only until the API reports live values.
var (
	SearchUnauthenticated = Quota{Limit: 10, Window: time.Minute}
	SearchAuthenticated   = Quota{Limit: 30, Window: time.Minute}
	CoreUnauthenticated   = Quota{Limit: 60, Window: time.Hour}
	CoreAuthenticated     = Quota{Limit: 5000, Window: time.Hour}
)

// SearchQuota returns the default search quota for the auth tier.
func SearchQuota(authenticated bool) Quota {
	if authenticated {
		return SearchAuthenticated
	}
	return SearchUnauthenticated
}

// CoreQuota returns the default core API quota for the auth tier.
func CoreQuota(authenticated bool) Quota {
	if authenticated {
		return CoreAuthenticated
	}
	return CoreUnauthenticated
}

// Permit authorizes one outbound request.
type Permit struct {
	// Remaining is the quota left when the permit was issued.
	Remaining int
}

// Limiter tracks the remaining quota of one rate-limit category.
type Limiter struct {
	quota  Quota
	state  atomic.Pointer[domain.RateLimitState]
	bucket *rate.Limiter
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter that falls back to quota until the first Update.
func New(quota Quota, opts ...Option) *Limiter {
	l := &Limiter{
		quota:  quota,
		bucket: rate.NewLimiter(rate.Every(quota.Window/time.Duration(quota.Limit)), quota.Limit),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire grants a permit or fails with *domain.RateLimitedError.
func (l *Limiter) Acquire() (Permit, error) {
	now := l.now()

	if s := l.state.Load(); s != nil {
		if s.Remaining > 0 || !now.Before(s.ResetAt) {
			return Permit{Remaining: s.Remaining}, nil
		}
		return Permit{}, &domain.RateLimitedError{RetryAfter: s.ResetAt.Sub(now), ResetAt: s.ResetAt}
	}

	r := l.bucket.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Permit{}, &domain.RateLimitedError{RetryAfter: delay, ResetAt: now.Add(delay)}
	}
	return Permit{Remaining: int(l.bucket.TokensAt(now))}, nil
}

// Update replaces the tracked state. It is called once per response that
// carried rate-limit headers.
func (l *Limiter) Update(s domain.RateLimitState) {
	l.state.Store(&s)
}

// State returns the last reported state, or the default quota if no
// response has been seen yet.
func (l *Limiter) State() domain.RateLimitState {
	if s := l.state.Load(); s != nil {
		return *s
	}
	return domain.RateLimitState{
		Remaining: int(l.bucket.TokensAt(l.now())),
		Limit:     l.quota.Limit,
	}
}

// Exhausted reports whether Acquire would currently fail.
func (l *Limiter) Exhausted() bool {
	s := l.state.Load()
	if s == nil {
		return l.bucket.TokensAt(l.now()) < 1
	}
	return s.Remaining == 0 && l.now().Before(s.ResetAt)
}

// ParseHeaders reads the rate-limit headers of a response. ok is false when
// the remaining count or reset time is missing or unparseable.
func ParseHeaders(h http.Header) (s domain.RateLimitState, ok bool) {
	remaining, err := strconv.Atoi(h.Get(HeaderRateRemaining))
	if err != nil || remaining < 0 {
		return s, false
	}
	reset, err := strconv.ParseInt(h.Get(HeaderRateReset), 10, 64)
	if err != nil {
		return s, false
	}
	s.Remaining = remaining
	s.ResetAt = time.Unix(reset, 0)
	if limit, err := strconv.Atoi(h.Get(HeaderRateLimit)); err == nil {
		s.Limit = limit
	}
	return s, true
}
