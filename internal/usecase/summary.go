package usecase

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

// Summarize computes descriptive statistics over the items of result.
// An empty result yields a zero summary.
func Summarize(result domain.SearchResult) (domain.ResultSummary, error) {
	summary := domain.ResultSummary{
		Count:     len(result.Items),
		Languages: make(map[string]int),
	}
	if len(result.Items) == 0 {
		return summary, nil
	}

	starCounts := make([]int, 0, len(result.Items))
	forkCounts := make([]int, 0, len(result.Items))
	for _, item := range result.Items {
		starCounts = append(starCounts, item.Stars)
		forkCounts = append(forkCounts, item.Forks)
		if lang := item.LanguageName(); lang != "" {
			summary.Languages[lang]++
		}
	}
	stars := stats.LoadRawData(starCounts)
	forks := stats.LoadRawData(forkCounts)

	var err error
	if summary.StarsMean, err = stats.Mean(stars); err != nil {
		return domain.ResultSummary{}, fmt.Errorf("stars mean: %w", err)
	}
	if summary.StarsMedian, err = stats.Median(stars); err != nil {
		return domain.ResultSummary{}, fmt.Errorf("stars median: %w", err)
	}
	if summary.ForksMedian, err = stats.Median(forks); err != nil {
		return domain.ResultSummary{}, fmt.Errorf("forks median: %w", err)
	}

	p90, err := stats.Percentile(stars, 90)
	if err != nil {
		// Too few samples for a percentile.
		if p90, err = stats.Max(stars); err != nil {
			return domain.ResultSummary{}, fmt.Errorf("stars p90: %w", err)
		}
	}
	summary.StarsP90 = p90
	return summary, nil
}
