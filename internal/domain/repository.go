// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// RepositorySummary is a single repository as returned by the search endpoint.
// It is built once from a response and never modified afterwards.
type RepositorySummary struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"full_name"`
	Description *string   `json:"description,omitempty"`
	URL         string    `json:"url"`
	Language    *string   `json:"language,omitempty"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	OpenIssues  int       `json:"open_issues"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LanguageName returns the repository language or an empty string.
func (r RepositorySummary) LanguageName() string {
	if r.Language == nil {
		return ""
	}
	return *r.Language
}

// SearchResult is one page, or several merged pages, of search results.
// A new SearchResult is built for every query; existing ones are never mutated.
type SearchResult struct {
	Items      []RepositorySummary `json:"items"`
	TotalCount int                 `json:"total_count"`
	HasMore    bool                `json:"has_more"`
	// Truncated is set when fetching stopped on an error and Items only
	// holds the pages fetched before it.
	Truncated bool `json:"truncated"`
}

// RateLimitState mirrors the rate-limit headers of the latest response.
type RateLimitState struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
}

// Contributor is a user who contributed commits to a repository.
type Contributor struct {
	Login         string `json:"login"`
	URL           string `json:"url"`
	Contributions int    `json:"contributions"`
}

// RepositoryDetail holds everything shown for a single repository.
type RepositoryDetail struct {
	Summary       RepositorySummary `json:"summary"`
	Owner         string            `json:"owner"`
	Topics        []string          `json:"topics,omitempty"`
	License       string            `json:"license,omitempty"`
	DefaultBranch string            `json:"default_branch,omitempty"`
	Watchers      int               `json:"watchers"`
	SizeKB        int               `json:"size_kb"`
	Fork          bool              `json:"fork"`
	Archived      bool              `json:"archived"`
	Contributors  []Contributor     `json:"contributors"`
	Readme        string            `json:"readme,omitempty"`
}

// ResultSummary holds descriptive statistics over a result set.
type ResultSummary struct {
	Count       int            `json:"count"`
	StarsMean   float64        `json:"stars_mean"`
	StarsMedian float64        `json:"stars_median"`
	StarsP90    float64        `json:"stars_p90"`
	ForksMedian float64        `json:"forks_median"`
	Languages   map[string]int `json:"languages"`
}
