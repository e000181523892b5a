// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-explorer/internal/config"
	"github.com/naka-gawa/repo-explorer/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "repo-explorer",
	Short: "A CLI tool to discover GitHub repositories.",
	Long: `repo-explorer searches GitHub repositories by keyword, language and sort order
while staying within GitHub's search API rate limits.
Set GITHUB_TOKEN to raise the search quota from 10 to 30 requests per minute.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

func init() {
	// Add persistent flags available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file (default: user config dir)")
}

// newLogger creates the logger shared by all layers. Only warnings are shown
// unless verbose is set.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// loadConfig reads the config file named by --config and applies GITHUB_TOKEN.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	var (
		invalid   *domain.InvalidQueryError
		limited   *domain.RateLimitedError
		upstream  *domain.UpstreamError
		malformed *domain.MalformedResponseError
	)
	switch {
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.As(err, &limited):
		return fmt.Sprintf("GitHub rate limit exceeded. Try again in %s.", limited.RetryAfter.Round(time.Second))
	case errors.As(err, &upstream):
		return fmt.Sprintf("GitHub API error %d: %s", upstream.Status, upstream.Message)
	case errors.As(err, &malformed):
		return "GitHub returned an unexpected response."
	case domain.IsNetwork(err):
		return "Could not reach GitHub: " + err.Error()
	default:
		return err.Error()
	}
}
