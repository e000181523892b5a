package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    Language
		expectError bool
	}{
		{name: "canonical spelling", input: "Rust", expected: "Rust"},
		{name: "case-insensitive", input: "javascript", expected: "JavaScript"},
		{name: "symbols", input: "c++", expected: "C++"},
		{name: "surrounding space", input: "  go ", expected: "Go"},
		{name: "empty means none", input: "", expected: LanguageNone},
		{name: "all means none", input: "All", expected: LanguageNone},
		{name: "unknown language", input: "Brainfuck", expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lang, err := ParseLanguage(tc.input)
			if tc.expectError {
				assert.True(t, IsInvalidQuery(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, lang)
		})
	}
}

func TestParseSortKeyAndDirection(t *testing.T) {
	key, err := ParseSortKey("Updated")
	require.NoError(t, err)
	assert.Equal(t, SortUpdated, key)

	key, err = ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortStars, key)

	_, err = ParseSortKey("watchers")
	assert.True(t, IsInvalidQuery(err))

	dir, err := ParseSortDirection("ASC")
	require.NoError(t, err)
	assert.Equal(t, SortAsc, dir)

	dir, err = ParseSortDirection("")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, dir)

	_, err = ParseSortDirection("sideways")
	assert.True(t, IsInvalidQuery(err))
}

func TestLanguageMatches(t *testing.T) {
	assert.True(t, Language("Rust").Matches("rust"))
	assert.False(t, Language("Rust").Matches("Go"))
	assert.True(t, LanguageNone.IsNone())
}

func TestErrorHelpers(t *testing.T) {
	network := fmt.Errorf("fetch page 2: %w", &NetworkError{Err: errors.New("connection reset")})
	server := &UpstreamError{Status: 502, Message: "Bad Gateway"}
	client := &UpstreamError{Status: 422, Message: "Validation Failed"}
	limited := &RateLimitedError{}
	malformed := &MalformedResponseError{Err: errors.New("missing items")}

	assert.True(t, IsNetwork(network))
	assert.True(t, Retryable(network))
	assert.True(t, Retryable(server))
	assert.False(t, Retryable(client))
	assert.False(t, Retryable(limited))
	assert.False(t, Retryable(malformed))
	assert.True(t, IsMalformed(malformed))
	assert.True(t, IsUpstream(client))
	assert.True(t, IsRateLimited(limited))
	assert.Equal(t, "github: API error 422: Validation Failed", client.Error())
}
