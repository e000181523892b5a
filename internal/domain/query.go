package domain

import "strings"

// MaxPerPage is the largest page size the search endpoint accepts.
const MaxPerPage = 100

// MaxSearchResults is how deep the search endpoint lets callers paginate.
const MaxSearchResults = 1000

// SortKey selects the field results are ordered by.
type SortKey string

const (
	SortStars   SortKey = "stars"
	SortForks   SortKey = "forks"
	SortIssues  SortKey = "issues"
	SortCreated SortKey = "created"
	SortUpdated SortKey = "updated"
)

// SortKeys returns all supported sort keys.
func SortKeys() []SortKey {
	return []SortKey{SortStars, SortForks, SortIssues, SortCreated, SortUpdated}
}

// ParseSortKey parses a user supplied sort key. An empty string means stars.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortStars, nil
	}
	for _, k := range SortKeys() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &InvalidQueryError{Field: "sort", Reason: "unsupported sort key " + quote(s)}
}

// SortDirection is the order results are returned in.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection parses a user supplied direction. An empty string means desc.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return SortDesc, nil
	case "asc":
		return SortAsc, nil
	default:
		return "", &InvalidQueryError{Field: "order", Reason: "unsupported sort direction " + quote(s)}
	}
}

// SearchQuery is the user-facing description of a repository search.
type SearchQuery struct {
	Keyword       string
	Language      Language
	SortKey       SortKey
	SortDirection SortDirection
	Page          int
	PerPage       int
}

// NextPage returns a copy of q pointing at the following page.
func (q SearchQuery) NextPage() SearchQuery {
	q.Page++
	return q
}

func quote(s string) string {
	return `"` + s + `"`
}
