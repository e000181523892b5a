package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/naka-gawa/repo-explorer/internal/query"
	"github.com/naka-gawa/repo-explorer/internal/ratelimit"
	"github.com/naka-gawa/repo-explorer/internal/usecase"
)

// mockSearcher is a mock implementation of the gateway.Searcher interface.
// A func(query.RequestSpec) domain.SearchResult return value is called with
// the request so results can depend on it.
type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Execute(ctx context.Context, spec query.RequestSpec) (domain.SearchResult, error) {
	args := m.Called(ctx, spec)
	if fn, ok := args.Get(0).(func(query.RequestSpec) domain.SearchResult); ok {
		return fn(spec), args.Error(1)
	}
	return args.Get(0).(domain.SearchResult), args.Error(1)
}

func onPage(page int) interface{} {
	return mock.MatchedBy(func(spec query.RequestSpec) bool { return spec.Page == page })
}

type renderedSearch struct {
	Query struct {
		Keyword string `json:"keyword"`
	} `json:"query"`
	Result domain.SearchResult `json:"result"`
	Error  string              `json:"error"`
}

func newTestRunner(t *testing.T, searcher *mockSearcher, maxPages int, out io.Writer) *searchRunner {
	t.Helper()
	r, err := newRenderer(out, formatJSON, false)
	require.NoError(t, err)
	logger := log.New(io.Discard)
	return &searchRunner{
		query: domain.SearchQuery{
			SortKey:       domain.SortStars,
			SortDirection: domain.SortDesc,
			Page:          1,
			PerPage:       30,
		},
		maxPages:   maxPages,
		aggregator: usecase.NewAggregator(searcher, false, logger),
		limiter:    ratelimit.New(ratelimit.SearchUnauthenticated),
		renderer:   r,
		logger:     logger,
	}
}

func decodeRendered(t *testing.T, buf *bytes.Buffer) []renderedSearch {
	t.Helper()
	var out []renderedSearch
	dec := json.NewDecoder(buf)
	for {
		var r renderedSearch
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, r)
	}
}

func testRepo(id int64, name string) domain.RepositorySummary {
	return domain.RepositorySummary{ID: id, FullName: name, Stars: int(id)}
}

func TestSearchRunner_OnceRendersPartialResultThenFails(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Execute", mock.Anything, onPage(1)).Return(domain.SearchResult{
		Items:      []domain.RepositorySummary{testRepo(1, "a/one")},
		TotalCount: 60,
		HasMore:    true,
	}, nil).Once()
	searcher.On("Execute", mock.Anything, onPage(2)).
		Return(domain.SearchResult{}, &domain.UpstreamError{Status: 502, Message: "Bad Gateway"}).Once()

	var buf bytes.Buffer
	runner := newTestRunner(t, searcher, 3, &buf)
	q := runner.query
	q.Keyword = "raytracer"

	err := runner.once(context.Background(), usecase.NewSlot(), q)
	assert.True(t, domain.IsUpstream(err))

	rendered := decodeRendered(t, &buf)
	require.Len(t, rendered, 1)
	assert.True(t, rendered[0].Result.Truncated)
	assert.True(t, rendered[0].Result.HasMore)
	require.Len(t, rendered[0].Result.Items, 1)
	assert.Equal(t, "a/one", rendered[0].Result.Items[0].FullName)
	assert.Contains(t, rendered[0].Error, "502")
	searcher.AssertExpectations(t)
}

func TestSearchRunner_OnceFailureRendersNothing(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Execute", mock.Anything, onPage(1)).
		Return(domain.SearchResult{}, &domain.UpstreamError{Status: 422, Message: "Validation Failed"}).Once()

	var buf bytes.Buffer
	runner := newTestRunner(t, searcher, 1, &buf)
	q := runner.query
	q.Keyword = "raytracer"

	err := runner.once(context.Background(), usecase.NewSlot(), q)
	assert.True(t, domain.IsUpstream(err))
	assert.Zero(t, buf.Len())
}

func TestSearchRunner_InteractiveNewestLineRendersLast(t *testing.T) {
	const lines = 20
	newest := fmt.Sprintf("k%02d", lines-1)

	searcher := new(mockSearcher)
	searcher.On("Execute", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			// Older searches finish after the newest one.
			if args.Get(1).(query.RequestSpec).Query != newest {
				time.Sleep(10 * time.Millisecond)
			}
		}).
		Return(func(spec query.RequestSpec) domain.SearchResult {
			return domain.SearchResult{Items: []domain.RepositorySummary{testRepo(1, "o/"+spec.Query)}, TotalCount: 1}
		}, nil)

	var input strings.Builder
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&input, "k%02d\n\n", i)
	}

	var buf bytes.Buffer
	runner := newTestRunner(t, searcher, 1, &buf)
	require.NoError(t, runner.interactive(context.Background(), strings.NewReader(input.String())))

	rendered := decodeRendered(t, &buf)
	require.NotEmpty(t, rendered)
	assert.Equal(t, newest, rendered[len(rendered)-1].Query.Keyword)
	for _, r := range rendered {
		require.Len(t, r.Result.Items, 1)
		assert.Equal(t, "o/"+r.Query.Keyword, r.Result.Items[0].FullName)
	}
}
