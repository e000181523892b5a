// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/naka-gawa/repo-explorer/internal/gateway"
	"github.com/naka-gawa/repo-explorer/internal/query"
)

// Aggregator is the use case for fetching search pages.
// It drives the searcher one page at a time and merges the results.
// Pages are never fetched in parallel: the search quota is shared and small.
type Aggregator struct {
	searcher      gateway.Searcher
	retrier       *Retrier
	authenticated bool
	logger        *log.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithRetrier retries failed page requests according to r.
func WithRetrier(r *Retrier) AggregatorOption {
	return func(a *Aggregator) {
		a.retrier = r
	}
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(searcher gateway.Searcher, authenticated bool, logger *log.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		searcher:      searcher,
		authenticated: authenticated,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchPage fetches the single page q points at.
func (a *Aggregator) FetchPage(ctx context.Context, q domain.SearchQuery) (domain.SearchResult, error) {
	spec, err := query.Build(q, a.authenticated)
	if err != nil {
		return domain.SearchResult{}, err
	}
	result, err := a.execute(ctx, spec)
	if err != nil {
		return domain.SearchResult{}, err
	}
	result.Items = merge(nil, make(map[int64]int), result.Items)
	return result, nil
}

// FetchAll fetches up to maxPages pages sequentially, starting at q.Page.
//
// On failure the pages fetched so far are returned with Truncated and
// HasMore set, alongside the error. TotalCount is taken from the first page.
func (a *Aggregator) FetchAll(ctx context.Context, q domain.SearchQuery, maxPages int) (domain.SearchResult, error) {
	if maxPages < 1 {
		return domain.SearchResult{}, &domain.InvalidQueryError{Field: "max_pages", Reason: "must be at least 1"}
	}
	if _, err := query.Build(q, a.authenticated); err != nil {
		return domain.SearchResult{}, err
	}

	a.logger.Debug("Usecase: Starting page aggregation...", "keyword", q.Keyword, "max_pages", maxPages)

	aggregate := domain.SearchResult{Items: []domain.RepositorySummary{}}
	index := make(map[int64]int)

	for fetched := 0; fetched < maxPages; fetched++ {
		page, err := a.FetchPage(ctx, q)
		if err == nil {
			// A page that arrives after cancellation belongs to a stale query.
			err = ctx.Err()
		}
		if err != nil {
			a.logger.Warn("Usecase: Aggregation stopped early.", "page", q.Page, "pages_fetched", fetched, "err", err)
			aggregate.Truncated = true
			aggregate.HasMore = true
			return aggregate, fmt.Errorf("fetch page %d: %w", q.Page, err)
		}

		if fetched == 0 {
			aggregate.TotalCount = page.TotalCount
		}
		aggregate.Items = merge(aggregate.Items, index, page.Items)
		aggregate.HasMore = page.HasMore

		if !page.HasMore {
			break
		}
		q = q.NextPage()
	}

	a.logger.Debug("Usecase: Aggregation complete.", "items", len(aggregate.Items), "has_more", aggregate.HasMore)
	return aggregate, nil
}

func (a *Aggregator) execute(ctx context.Context, spec query.RequestSpec) (domain.SearchResult, error) {
	if a.retrier == nil {
		return a.searcher.Execute(ctx, spec)
	}
	var result domain.SearchResult
	err := a.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = a.searcher.Execute(ctx, spec)
		return err
	})
	return result, err
}

// merge appends items to dst, deduplicating by ID. A repeated ID replaces
// the earlier item in place, so the last-seen data wins while the position
// of the first occurrence is kept. index maps IDs to positions in dst.
func merge(dst []domain.RepositorySummary, index map[int64]int, items []domain.RepositorySummary) []domain.RepositorySummary {
	if dst == nil {
		dst = make([]domain.RepositorySummary, 0, len(items))
	}
	for _, item := range items {
		if i, ok := index[item.ID]; ok {
			dst[i] = item
			continue
		}
		index[item.ID] = len(dst)
		dst = append(dst, item)
	}
	return dst
}
