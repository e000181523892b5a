// Package query converts a domain.SearchQuery into the parameters of a
// GitHub repository search request.
package query

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

// RequestSpec holds the parameters of one search request.
type RequestSpec struct {
	Query         string
	Sort          string
	Order         string
	Page          int
	PerPage       int
	Authenticated bool
}

// Values encodes the spec as the search endpoint's query parameters.
func (s RequestSpec) Values() url.Values {
	v := url.Values{}
	v.Set("q", s.Query)
	v.Set("sort", s.Sort)
	v.Set("order", s.Order)
	v.Set("page", strconv.Itoa(s.Page))
	v.Set("per_page", strconv.Itoa(s.PerPage))
	return v
}

var sortTokens = map[domain.SortKey]string{
	domain.SortStars:   "stars",
	domain.SortForks:   "forks",
	domain.SortIssues:  "help-wanted-issues",
	domain.SortCreated: "created",
	domain.SortUpdated: "updated",
}

var languageQualifier = regexp.MustCompile(`(?i)(^|\s)-?language:`)

// Build validates q and turns it into a RequestSpec.
func Build(q domain.SearchQuery, authenticated bool) (RequestSpec, error) {
	keyword := strings.TrimSpace(q.Keyword)
	if keyword == "" {
		return RequestSpec{}, invalid("keyword", "must not be empty")
	}
	if languageQualifier.MatchString(keyword) {
		return RequestSpec{}, invalid("keyword", "must not contain a language qualifier, use the language filter")
	}
	if q.Page < 1 {
		return RequestSpec{}, invalid("page", "must be at least 1")
	}
	if q.PerPage < 1 || q.PerPage > domain.MaxPerPage {
		return RequestSpec{}, invalid("per_page", "must be between 1 and 100")
	}
	if (q.Page-1)*q.PerPage >= domain.MaxSearchResults {
		return RequestSpec{}, invalid("page", "beyond the first 1000 search results")
	}

	sort, ok := sortTokens[q.SortKey]
	if !ok {
		return RequestSpec{}, invalid("sort", "unsupported sort key \""+string(q.SortKey)+"\"")
	}
	if q.SortDirection != domain.SortAsc && q.SortDirection != domain.SortDesc {
		return RequestSpec{}, invalid("order", "unsupported sort direction \""+string(q.SortDirection)+"\"")
	}

	terms := keyword
	if !q.Language.IsNone() {
		lang, err := domain.ParseLanguage(string(q.Language))
		if err != nil {
			return RequestSpec{}, err
		}
		terms += " language:" + qualifierValue(string(lang))
	}

	return RequestSpec{
		Query:         terms,
		Sort:          sort,
		Order:         string(q.SortDirection),
		Page:          q.Page,
		PerPage:       q.PerPage,
		Authenticated: authenticated,
	}, nil
}

func qualifierValue(v string) string {
	if strings.ContainsAny(v, " \t") {
		return `"` + v + `"`
	}
	return v
}

func invalid(field, reason string) error {
	return &domain.InvalidQueryError{Field: field, Reason: reason}
}
