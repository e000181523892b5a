package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLimiter_ExhaustedFailsWithRetryAfter(t *testing.T) {
	clock := newClock()
	l := New(SearchUnauthenticated, WithClock(clock.Now))
	l.Update(domain.RateLimitState{Remaining: 0, Limit: 10, ResetAt: clock.Now().Add(30 * time.Second)})

	_, err := l.Acquire()
	require.Error(t, err)
	var limited *domain.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 30*time.Second, limited.RetryAfter)
	assert.True(t, l.Exhausted())
}

func TestLimiter_GrantsOnceResetPassed(t *testing.T) {
	clock := newClock()
	l := New(SearchUnauthenticated, WithClock(clock.Now))
	l.Update(domain.RateLimitState{Remaining: 0, ResetAt: clock.Now().Add(10 * time.Second)})

	clock.Advance(9 * time.Second)
	_, err := l.Acquire()
	assert.True(t, domain.IsRateLimited(err))

	clock.Advance(time.Second)
	_, err = l.Acquire()
	assert.NoError(t, err)
	assert.False(t, l.Exhausted())
}

func TestLimiter_GrantsWhileRemaining(t *testing.T) {
	clock := newClock()
	l := New(SearchAuthenticated, WithClock(clock.Now))
	l.Update(domain.RateLimitState{Remaining: 4, Limit: 30, ResetAt: clock.Now().Add(time.Minute)})

	permit, err := l.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 4, permit.Remaining)
}

func TestLimiter_DefaultQuotaBeforeFirstResponse(t *testing.T) {
	testCases := []struct {
		name          string
		quota         Quota
		expectedRetry time.Duration
	}{
		{name: "unauthenticated", quota: SearchQuota(false), expectedRetry: 6 * time.Second},
		{name: "authenticated", quota: SearchQuota(true), expectedRetry: 2 * time.Second},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newClock()
			l := New(tc.quota, WithClock(clock.Now))
			assert.Equal(t, tc.quota.Limit, l.State().Limit)

			for i := 0; i < tc.quota.Limit; i++ {
				_, err := l.Acquire()
				require.NoError(t, err, "request %d", i+1)
			}

			_, err := l.Acquire()
			var limited *domain.RateLimitedError
			require.ErrorAs(t, err, &limited)
			assert.Equal(t, tc.expectedRetry, limited.RetryAfter)

			clock.Advance(tc.expectedRetry + time.Millisecond)
			_, err = l.Acquire()
			assert.NoError(t, err)
		})
	}
}

func TestLimiter_HeadersReplaceDefaults(t *testing.T) {
	clock := newClock()
	l := New(SearchUnauthenticated, WithClock(clock.Now))
	for i := 0; i < SearchUnauthenticated.Limit; i++ {
		_, err := l.Acquire()
		require.NoError(t, err)
	}

	l.Update(domain.RateLimitState{Remaining: 25, Limit: 30, ResetAt: clock.Now().Add(time.Minute)})
	permit, err := l.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 25, permit.Remaining)
	assert.Equal(t, 30, l.State().Limit)
}

func TestParseHeaders(t *testing.T) {
	testCases := []struct {
		name      string
		header    http.Header
		expected  domain.RateLimitState
		expectsOK bool
	}{
		{
			name: "all headers present",
			header: http.Header{
				"X-Ratelimit-Limit":     {"30"},
				"X-Ratelimit-Remaining": {"29"},
				"X-Ratelimit-Reset":     {"1772366460"},
			},
			expected:  domain.RateLimitState{Remaining: 29, Limit: 30, ResetAt: time.Unix(1772366460, 0)},
			expectsOK: true,
		},
		{
			name: "limit missing",
			header: http.Header{
				"X-Ratelimit-Remaining": {"0"},
				"X-Ratelimit-Reset":     {"1772366460"},
			},
			expected:  domain.RateLimitState{Remaining: 0, ResetAt: time.Unix(1772366460, 0)},
			expectsOK: true,
		},
		{
			name:   "reset missing",
			header: http.Header{"X-Ratelimit-Remaining": {"3"}},
		},
		{
			name:   "no headers",
			header: http.Header{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state, ok := ParseHeaders(tc.header)
			assert.Equal(t, tc.expectsOK, ok)
			if tc.expectsOK {
				assert.Equal(t, tc.expected, state)
			}
		})
	}
}
