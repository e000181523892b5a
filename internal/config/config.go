// Package config loads repo-explorer settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

// TokenEnv is the environment variable holding the GitHub token.
const TokenEnv = "GITHUB_TOKEN"

// Duration is a time.Duration written as a string ("1s", "500ms") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// RetryConfig controls retries of transient search failures.
type RetryConfig struct {
	Attempts  int      `toml:"attempts"`
	BaseDelay Duration `toml:"base_delay"`
}

// Config is the full set of recognized options.
type Config struct {
	Token               string      `toml:"token"`
	BaseURL             string      `toml:"base_url"`
	Keyword             string      `toml:"keyword"`
	Language            string      `toml:"language"`
	Sort                string      `toml:"sort"`
	Order               string      `toml:"order"`
	PerPage             int         `toml:"per_page"`
	MaxPages            int         `toml:"max_pages"`
	// SecondarySleepLimit bounds how long the repo command waits out a
	// secondary rate limit. Searches never wait.
	SecondarySleepLimit Duration    `toml:"secondary_sleep_limit"`
	Retry               RetryConfig `toml:"retry"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Sort:                string(domain.SortStars),
		Order:               string(domain.SortDesc),
		PerPage:             30,
		MaxPages:            1,
		SecondarySleepLimit: Duration{time.Minute},
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: Duration{time.Second},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/repo-explorer/config.toml or its
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "repo-explorer", "config.toml"), nil
}

// Load reads the file at path on top of Default. An empty path means
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads TOML from r on top of Default. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return Config{}, &domain.InvalidQueryError{Field: "config", Reason: "unrecognized option: " + strings.TrimSpace(strictErr.String())}
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides the token from the environment when set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if token := getenv(TokenEnv); token != "" {
		c.Token = token
	}
}

// Authenticated reports whether a token is configured.
func (c Config) Authenticated() bool {
	return c.Token != ""
}

// Validate checks the non-query options.
func (c Config) Validate() error {
	switch {
	case c.PerPage < 1 || c.PerPage > domain.MaxPerPage:
		return &domain.InvalidQueryError{Field: "per_page", Reason: "must be between 1 and 100"}
	case c.MaxPages < 1:
		return &domain.InvalidQueryError{Field: "max_pages", Reason: "must be at least 1"}
	case c.Retry.Attempts < 1:
		return &domain.InvalidQueryError{Field: "retry.attempts", Reason: "must be at least 1"}
	case c.Retry.BaseDelay.Duration < 0:
		return &domain.InvalidQueryError{Field: "retry.base_delay", Reason: "must not be negative"}
	case c.SecondarySleepLimit.Duration < 0:
		return &domain.InvalidQueryError{Field: "secondary_sleep_limit", Reason: "must not be negative"}
	}
	return nil
}

// Query converts the configured search options into the first page of a
// domain.SearchQuery.
func (c Config) Query() (domain.SearchQuery, error) {
	if err := c.Validate(); err != nil {
		return domain.SearchQuery{}, err
	}
	lang, err := domain.ParseLanguage(c.Language)
	if err != nil {
		return domain.SearchQuery{}, err
	}
	key, err := domain.ParseSortKey(c.Sort)
	if err != nil {
		return domain.SearchQuery{}, err
	}
	dir, err := domain.ParseSortDirection(c.Order)
	if err != nil {
		return domain.SearchQuery{}, err
	}
	return domain.SearchQuery{
		Keyword:       c.Keyword,
		Language:      lang,
		SortKey:       key,
		SortDirection: dir,
		Page:          1,
		PerPage:       c.PerPage,
	}, nil
}
