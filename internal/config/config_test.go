package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/repo-explorer/internal/domain"
)

func TestDecode(t *testing.T) {
	input := `
token = "file-token"
language = "rust"
sort = "updated"
order = "asc"
per_page = 50
max_pages = 4
secondary_sleep_limit = "30s"

[retry]
attempts = 2
base_delay = "250ms"
`
	cfg, err := Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Token)
	assert.Equal(t, 50, cfg.PerPage)
	assert.Equal(t, 4, cfg.MaxPages)
	assert.Equal(t, 30*time.Second, cfg.SecondarySleepLimit.Duration)
	assert.Equal(t, 2, cfg.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay.Duration)

	cfg.Keyword = "raytracer"
	q, err := cfg.Query()
	require.NoError(t, err)
	assert.Equal(t, domain.SearchQuery{
		Keyword:       "raytracer",
		Language:      "Rust",
		SortKey:       domain.SortUpdated,
		SortDirection: domain.SortAsc,
		Page:          1,
		PerPage:       50,
	}, q)
}

func TestDecode_Defaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	q, err := cfg.Query()
	require.NoError(t, err)
	assert.Equal(t, domain.LanguageNone, q.Language)
	assert.Equal(t, domain.SortStars, q.SortKey)
	assert.Equal(t, domain.SortDesc, q.SortDirection)
	assert.Equal(t, 30, q.PerPage)
}

func TestDecode_UnknownKeyIsInvalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`colour = "blue"`))
	assert.True(t, domain.IsInvalidQuery(err))
}

func TestQuery_UnrecognizedValues(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "language", mutate: func(c *Config) { c.Language = "Fortran77" }},
		{name: "sort", mutate: func(c *Config) { c.Sort = "watchers" }},
		{name: "order", mutate: func(c *Config) { c.Order = "random" }},
		{name: "per_page", mutate: func(c *Config) { c.PerPage = 0 }},
		{name: "max_pages", mutate: func(c *Config) { c.MaxPages = 0 }},
		{name: "retry attempts", mutate: func(c *Config) { c.Retry.Attempts = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := cfg.Query()
			assert.True(t, domain.IsInvalidQuery(err))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`per_page = 10`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.PerPage)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Token = "file-token"

	cfg.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, "file-token", cfg.Token)

	cfg.ApplyEnv(func(key string) string {
		if key == TokenEnv {
			return "env-token"
		}
		return ""
	})
	assert.Equal(t, "env-token", cfg.Token)
	assert.True(t, cfg.Authenticated())
}
