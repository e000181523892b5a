package cmd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-explorer/internal/config"
	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/naka-gawa/repo-explorer/internal/gateway"
	"github.com/naka-gawa/repo-explorer/internal/ratelimit"
	"github.com/naka-gawa/repo-explorer/internal/usecase"
)

var searchCmd = &cobra.Command{
	Use:   "search [keyword...]",
	Short: "Searches GitHub repositories and prints the results",
	Long: `Searches GitHub repositories matching the keyword, optionally filtered by language,
and prints them sorted by the chosen key. With --stdin, each line read from standard
input starts a new search that replaces the one still running.`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringP("language", "l", "", "Filter by language: "+joinNames(domain.SupportedLanguages()))
	searchCmd.Flags().StringP("sort", "s", "", "Sort by "+joinNames(domain.SortKeys()))
	searchCmd.Flags().StringP("order", "o", "", "Sort direction: asc or desc")
	searchCmd.Flags().Int("page", 1, "Page to start from")
	searchCmd.Flags().Int("per-page", 0, "Results per page (1-100)")
	searchCmd.Flags().Int("max-pages", 0, "Fetch up to this many pages sequentially")
	searchCmd.Flags().StringP("format", "f", "json", "Output format: json or table")
	searchCmd.Flags().Bool("summary", false, "Include star/fork statistics of the results")
	searchCmd.Flags().Bool("stdin", false, "Read one keyword per line from standard input")
}

// searchRunner holds everything needed to run queries for one invocation.
type searchRunner struct {
	query      domain.SearchQuery
	maxPages   int
	aggregator *usecase.Aggregator
	limiter    *ratelimit.Limiter
	renderer   *renderer
	logger     *log.Logger
}

func runSearch(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(os.Stderr, verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applySearchFlags(cmd, &cfg, args); err != nil {
		return err
	}
	q, err := cfg.Query()
	if err != nil {
		return err
	}
	q.Page, _ = cmd.Flags().GetInt("page")

	format, _ := cmd.Flags().GetString("format")
	summary, _ := cmd.Flags().GetBool("summary")
	r, err := newRenderer(cmd.OutOrStdout(), format, summary)
	if err != nil {
		return err
	}

	// Inject dependencies and run the main business logic.
	// Searches never wait out a secondary limit; it surfaces as a rate-limit error.
	httpClient, err := gateway.NewHTTPClient(cfg.Token, 0, logger)
	if err != nil {
		return err
	}
	restClient, err := gateway.NewRESTClient(httpClient, cfg.BaseURL)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(ratelimit.SearchQuota(cfg.Authenticated()))
	searcher := gateway.NewSearchClient(restClient, limiter, logger)
	retrier := usecase.NewRetrier(cfg.Retry.Attempts, cfg.Retry.BaseDelay.Duration, logger)

	runner := &searchRunner{
		query:      q,
		maxPages:   cfg.MaxPages,
		aggregator: usecase.NewAggregator(searcher, cfg.Authenticated(), logger, usecase.WithRetrier(retrier)),
		limiter:    limiter,
		renderer:   r,
		logger:     logger,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	useStdin, _ := cmd.Flags().GetBool("stdin")
	if useStdin {
		return runner.interactive(ctx, cmd.InOrStdin())
	}
	return runner.once(ctx, usecase.NewSlot(), q)
}

// applySearchFlags overrides config values with flags the user set explicitly.
func applySearchFlags(cmd *cobra.Command, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		cfg.Keyword = strings.Join(args, " ")
	}
	flags := cmd.Flags()
	if flags.Changed("language") {
		cfg.Language, _ = flags.GetString("language")
	}
	if flags.Changed("sort") {
		cfg.Sort, _ = flags.GetString("sort")
	}
	if flags.Changed("order") {
		cfg.Order, _ = flags.GetString("order")
	}
	if flags.Changed("per-page") {
		cfg.PerPage, _ = flags.GetInt("per-page")
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages, _ = flags.GetInt("max-pages")
	}
	return cfg.Validate()
}

// once runs q in slot and renders the outcome. A partial result is rendered
// before its error is returned.
func (s *searchRunner) once(ctx context.Context, slot *usecase.Slot, q domain.SearchQuery) error {
	runCtx, ticket := slot.Begin(ctx)
	return s.search(runCtx, slot, ticket, q)
}

// search fetches q and renders it through the slot, so a result is only
// printed while ticket is still the slot's newest search.
func (s *searchRunner) search(ctx context.Context, slot *usecase.Slot, ticket usecase.Ticket, q domain.SearchQuery) error {
	var (
		result domain.SearchResult
		err    error
	)
	if s.maxPages > 1 {
		result, err = s.aggregator.FetchAll(ctx, q, s.maxPages)
	} else {
		result, err = s.aggregator.FetchPage(ctx, q)
	}
	if err == nil || result.Truncated {
		result = usecase.Apply(result, q.SortKey, q.SortDirection, q.Language)
	}

	return slot.Finish(ticket, result, err, func(sorted domain.SearchResult) error {
		return s.renderer.search(q, sorted, s.limiter.State(), err)
	})
}

// interactive starts a search for every line of input. A new line
// supersedes the search still in flight; superseded searches print nothing.
func (s *searchRunner) interactive(ctx context.Context, in io.Reader) error {
	slot := usecase.NewSlot()
	var wg sync.WaitGroup

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		keyword := strings.TrimSpace(scanner.Text())
		if keyword == "" {
			continue
		}
		q := s.query
		q.Keyword = keyword
		if s.limiter.Exhausted() {
			s.logger.Warn("search quota exhausted, the next search will fail", "reset_at", s.limiter.State().ResetAt)
		}

		// Begin in input order so the newest line always wins.
		runCtx, ticket := slot.Begin(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.search(runCtx, slot, ticket, q)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrSuperseded):
				s.logger.Debug("search superseded", "keyword", q.Keyword)
			default:
				s.logger.Error("search failed", "keyword", q.Keyword, "err", describe(err))
			}
		}()
	}
	wg.Wait()
	return scanner.Err()
}

func joinNames[T ~string](names []T) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
