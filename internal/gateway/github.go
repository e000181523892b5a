// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST client.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/naka-gawa/repo-explorer/internal/query"
	"github.com/naka-gawa/repo-explorer/internal/ratelimit"
)

// UserAgent is sent with every request.
const UserAgent = "repo-explorer"

// Searcher defines the behavior of a gateway for searching repositories.
type Searcher interface {
	Execute(ctx context.Context, spec query.RequestSpec) (domain.SearchResult, error)
}

// NewHTTPClient builds the transport stack shared by all REST calls:
// an optional bearer token on top of the secondary rate limit waiter.
//
// The waiter sleeps through a secondary rate limit only when it ends within
// singleSleepLimit. With a zero limit the 403 is handed back unchanged, so
// the caller sees exactly one request and gets a *domain.RateLimitedError.
func NewHTTPClient(token string, singleSleepLimit time.Duration, logger *log.Logger) (*http.Client, error) {
	onLimitExceeded := func(*github_ratelimit.CallbackContext) {
		logger.Warn("secondary rate limit hit, not waiting", "sleep_limit", singleSleepLimit)
	}
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(singleSleepLimit, onLimitExceeded))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	if token == "" {
		return &http.Client{Transport: rateLimitWaiter}, nil
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}, nil
}

// NewRESTClient creates a go-github client. An empty baseURL targets api.github.com.
func NewRESTClient(httpClient *http.Client, baseURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)
	client.UserAgent = UserAgent
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
		}
		client.BaseURL = u
	}
	return client, nil
}

// SearchClient is the concrete implementation of the Searcher interface.
// It issues exactly one request per Execute and never retries, provided its
// HTTP client was built with a zero sleep limit.
type SearchClient struct {
	restClient *github.Client
	limiter    *ratelimit.Limiter
	logger     *log.Logger
}

// NewSearchClient is a constructor that creates a new instance of SearchClient.
// limiter must be dedicated to the search category.
func NewSearchClient(restClient *github.Client, limiter *ratelimit.Limiter, logger *log.Logger) *SearchClient {
	return &SearchClient{
		restClient: restClient,
		limiter:    limiter,
		logger:     logger,
	}
}

// Execute runs one search request described by spec.
func (c *SearchClient) Execute(ctx context.Context, spec query.RequestSpec) (domain.SearchResult, error) {
	permit, err := c.limiter.Acquire()
	if err != nil {
		c.logger.Warn("search request not sent", "err", err)
		return domain.SearchResult{}, err
	}
	c.logger.Debug("searching repositories", "q", spec.Query, "sort", spec.Sort, "order", spec.Order,
		"page", spec.Page, "per_page", spec.PerPage, "remaining", permit.Remaining)

	opts := &github.SearchOptions{
		Sort:  spec.Sort,
		Order: spec.Order,
		ListOptions: github.ListOptions{
			Page:    spec.Page,
			PerPage: spec.PerPage,
		},
	}
	result, resp, err := c.restClient.Search.Repositories(ctx, spec.Query, opts)
	updateRateLimit(c.limiter, resp)
	if err != nil {
		return domain.SearchResult{}, wrapError(ctx, resp, err, "search repositories")
	}

	searchResult, err := toSearchResult(result, resp, spec)
	if err != nil {
		return domain.SearchResult{}, err
	}
	c.logger.Debug("search page received", "page", spec.Page, "items", len(searchResult.Items),
		"total", searchResult.TotalCount, "has_more", searchResult.HasMore)
	return searchResult, nil
}

func toSearchResult(result *github.RepositoriesSearchResult, resp *github.Response, spec query.RequestSpec) (domain.SearchResult, error) {
	if result == nil || result.Total == nil {
		return domain.SearchResult{}, malformed("missing total_count")
	}
	if result.Repositories == nil {
		return domain.SearchResult{}, malformed("missing items")
	}

	items := make([]domain.RepositorySummary, 0, len(result.Repositories))
	for i, repo := range result.Repositories {
		summary, err := toSummary(repo)
		if err != nil {
			return domain.SearchResult{}, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, summary)
	}

	return domain.SearchResult{
		Items:      items,
		TotalCount: result.GetTotal(),
		HasMore:    hasMore(resp, spec, result.GetTotal(), len(items)),
	}, nil
}

// toSummary converts a repository object, rejecting it when a required
// field is absent.
func toSummary(repo *github.Repository) (domain.RepositorySummary, error) {
	switch {
	case repo == nil:
		return domain.RepositorySummary{}, malformed("null repository")
	case repo.ID == nil:
		return domain.RepositorySummary{}, malformed("missing id")
	case repo.FullName == nil:
		return domain.RepositorySummary{}, malformed("missing full_name")
	case repo.HTMLURL == nil:
		return domain.RepositorySummary{}, malformed("missing html_url")
	case repo.CreatedAt == nil || repo.UpdatedAt == nil:
		return domain.RepositorySummary{}, malformed("missing created_at or updated_at")
	case repo.GetStargazersCount() < 0 || repo.GetForksCount() < 0 || repo.GetOpenIssuesCount() < 0:
		return domain.RepositorySummary{}, malformed("negative count")
	}

	return domain.RepositorySummary{
		ID:          repo.GetID(),
		FullName:    repo.GetFullName(),
		Description: repo.Description,
		URL:         repo.GetHTMLURL(),
		Language:    repo.Language,
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		OpenIssues:  repo.GetOpenIssuesCount(),
		CreatedAt:   repo.GetCreatedAt().Time,
		UpdatedAt:   repo.GetUpdatedAt().Time,
	}, nil
}

// hasMore prefers the Link header and falls back to the reported total,
// capped at the depth the search endpoint can paginate.
func hasMore(resp *github.Response, spec query.RequestSpec, total, received int) bool {
	if resp != nil {
		if resp.NextPage != 0 {
			return true
		}
		if resp.Header.Get("Link") != "" {
			return false
		}
	}
	if received == 0 {
		return false
	}
	return spec.Page*spec.PerPage < min(total, domain.MaxSearchResults)
}

// updateRateLimit feeds the response headers, if any, into the limiter.
func updateRateLimit(limiter *ratelimit.Limiter, resp *github.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	if state, ok := ratelimit.ParseHeaders(resp.Header); ok {
		limiter.Update(state)
	}
}
