package usecase

import (
	"cmp"
	"slices"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

// Apply filters result by language and sorts it by key in direction dir.
// Ties are broken by ascending ID so identical input always yields identical
// output. The input is not modified.
func Apply(result domain.SearchResult, key domain.SortKey, dir domain.SortDirection, lang domain.Language) domain.SearchResult {
	items := make([]domain.RepositorySummary, 0, len(result.Items))
	for _, item := range result.Items {
		if lang.IsNone() || lang.Matches(item.LanguageName()) {
			items = append(items, item)
		}
	}

	compareField := comparator(key)
	slices.SortStableFunc(items, func(a, b domain.RepositorySummary) int {
		c := compareField(a, b)
		if dir == domain.SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	out := result
	out.Items = items
	return out
}

func comparator(key domain.SortKey) func(a, b domain.RepositorySummary) int {
	switch key {
	case domain.SortForks:
		return func(a, b domain.RepositorySummary) int { return cmp.Compare(a.Forks, b.Forks) }
	case domain.SortIssues:
		return func(a, b domain.RepositorySummary) int { return cmp.Compare(a.OpenIssues, b.OpenIssues) }
	case domain.SortCreated:
		return func(a, b domain.RepositorySummary) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case domain.SortUpdated:
		return func(a, b domain.RepositorySummary) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return func(a, b domain.RepositorySummary) int { return cmp.Compare(a.Stars, b.Stars) }
	}
}
