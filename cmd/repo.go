package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-explorer/internal/domain"
	"github.com/naka-gawa/repo-explorer/internal/gateway"
	"github.com/naka-gawa/repo-explorer/internal/ratelimit"
)

var repoCmd = &cobra.Command{
	Use:   "repo <owner/name>",
	Short: "Shows details, top contributors and README of one repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepo,
}

func init() {
	rootCmd.AddCommand(repoCmd)
	repoCmd.Flags().StringP("format", "f", "table", "Output format: json or table")
}

func runRepo(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(os.Stderr, verbose)

	owner, name, err := splitFullName(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	r, err := newRenderer(cmd.OutOrStdout(), format, false)
	if err != nil {
		return err
	}

	httpClient, err := gateway.NewHTTPClient(cfg.Token, cfg.SecondarySleepLimit.Duration, logger)
	if err != nil {
		return err
	}
	restClient, err := gateway.NewRESTClient(httpClient, cfg.BaseURL)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(ratelimit.CoreQuota(cfg.Authenticated()))
	details := gateway.NewDetailsClient(restClient, limiter, logger)

	logger.Debug("fetching repository", "owner", owner, "name", name)
	detail, err := details.Fetch(cmd.Context(), owner, name)
	if err != nil {
		return err
	}
	return r.detail(detail)
}

// splitFullName splits "owner/name" into its two parts.
func splitFullName(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", &domain.InvalidQueryError{Field: "repository", Reason: "must be in owner/name form"}
	}
	return owner, name, nil
}
