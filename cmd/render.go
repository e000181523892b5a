package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/naka-gawa/repo-explorer/internal/usecase"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderer writes command results. It is safe for concurrent use.
type renderer struct {
	mu      sync.Mutex
	w       io.Writer
	format  string
	summary bool
}

func newRenderer(w io.Writer, format string, summary bool) (*renderer, error) {
	if format != formatJSON && format != formatTable {
		return nil, &domain.InvalidQueryError{Field: "format", Reason: "must be json or table"}
	}
	return &renderer{w: w, format: format, summary: summary}, nil
}

type queryOutput struct {
	Keyword  string `json:"keyword"`
	Language string `json:"language,omitempty"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
}

type searchOutput struct {
	Query     queryOutput           `json:"query"`
	Result    domain.SearchResult   `json:"result"`
	Summary   *domain.ResultSummary `json:"summary,omitempty"`
	RateLimit domain.RateLimitState `json:"rate_limit"`
	Error     string                `json:"error,omitempty"`
}

// search renders one search result. partialErr is the error that truncated
// the result, if any.
func (r *renderer) search(q domain.SearchQuery, result domain.SearchResult, rate domain.RateLimitState, partialErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := searchOutput{
		Query: queryOutput{
			Keyword:  q.Keyword,
			Language: string(q.Language),
			Sort:     string(q.SortKey),
			Order:    string(q.SortDirection),
			Page:     q.Page,
			PerPage:  q.PerPage,
		},
		Result:    result,
		RateLimit: rate,
	}
	if r.summary {
		s, err := usecase.Summarize(result)
		if err != nil {
			return err
		}
		out.Summary = &s
	}
	if partialErr != nil {
		out.Error = describe(partialErr)
	}

	if r.format == formatJSON {
		return r.json(out)
	}

	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		lang := item.LanguageName()
		if lang == "" {
			lang = "Unknown"
		}
		rows = append(rows, []string{
			item.FullName,
			lang,
			formatCount(item.Stars),
			formatCount(item.Forks),
			formatCount(item.OpenIssues),
			item.UpdatedAt.Format("2006-01-02"),
		})
	}
	fmt.Fprintln(r.w, r.table([]string{"Repository", "Language", "Stars", "Forks", "Issues", "Updated"}, rows))
	fmt.Fprintf(r.w, "%s repositories found, showing %d", formatCount(result.TotalCount), len(result.Items))
	if result.HasMore {
		fmt.Fprint(r.w, " (more available)")
	}
	fmt.Fprintln(r.w)
	if out.Summary != nil {
		fmt.Fprintf(r.w, "stars: mean %.1f, median %.1f, p90 %.1f; forks median %.1f\n",
			out.Summary.StarsMean, out.Summary.StarsMedian, out.Summary.StarsP90, out.Summary.ForksMedian)
	}
	if partialErr != nil {
		fmt.Fprintf(r.w, "results truncated: %s\n", out.Error)
	}
	return nil
}

// detail renders a single repository.
func (r *renderer) detail(d domain.RepositoryDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.format == formatJSON {
		return r.json(d)
	}

	s := d.Summary
	desc := ""
	if s.Description != nil {
		desc = *s.Description
	}
	info := [][]string{
		{"Repository", s.FullName},
		{"Description", desc},
		{"URL", s.URL},
		{"Language", s.LanguageName()},
		{"Stars", formatCount(s.Stars)},
		{"Forks", formatCount(s.Forks)},
		{"Open issues", formatCount(s.OpenIssues)},
		{"Watchers", formatCount(d.Watchers)},
		{"License", d.License},
		{"Default branch", d.DefaultBranch},
		{"Size", formatSize(d.SizeKB)},
		{"Created", s.CreatedAt.Format("2006-01-02")},
		{"Updated", s.UpdatedAt.Format("2006-01-02")},
		{"Archived", strconv.FormatBool(d.Archived)},
	}
	fmt.Fprintln(r.w, r.table([]string{"Field", "Value"}, info))

	if len(d.Contributors) > 0 {
		rows := make([][]string, 0, len(d.Contributors))
		for _, c := range d.Contributors {
			rows = append(rows, []string{c.Login, strconv.Itoa(c.Contributions)})
		}
		fmt.Fprintln(r.w, r.table([]string{"Contributor", "Commits"}, rows))
	}
	if d.Readme != "" {
		fmt.Fprintln(r.w, d.Readme)
	}
	return nil
}

func (r *renderer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	return nil
}

func (r *renderer) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// formatCount abbreviates large counts: 1234 -> 1.2K, 2500000 -> 2.5M.
func formatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.Itoa(n)
	}
}

// formatSize renders a size given in kilobytes.
func formatSize(kb int) string {
	switch {
	case kb >= 1_000_000:
		return fmt.Sprintf("%.1f GB", float64(kb)/1_000_000)
	case kb >= 1_000:
		return fmt.Sprintf("%.1f MB", float64(kb)/1_000)
	default:
		return fmt.Sprintf("%d KB", kb)
	}
}
