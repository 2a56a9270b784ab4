package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/placescraper/internal/extract"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 4, cfg.Scraper.Concurrency)
	require.Equal(t, 50, cfg.Scraper.BatchSize)
	require.Equal(t, 1, cfg.Scraper.MaxResults)
	require.Equal(t, 500*time.Millisecond, cfg.Scraper.CoordPollInterval)
	require.Equal(t, DriverCSV, cfg.Output.Driver)
	require.Equal(t, "iso-8859-1", cfg.Input.Encoding)
	require.False(t, cfg.Input.HasHeader)
	require.InDelta(t, 2.0, cfg.RateLimit.RPS, 1e-9)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, extract.DefaultSelectors(), cfg.Selectors)
	require.False(t, cfg.PubSub.Enabled())
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
scraper:
  concurrency: 8
  batch_size: 10
  max_results: 3
  render_wait: 2s
  item_timeout: 90s
browser:
  headless: false
  nav_timeout: 15s
selectors:
  card_link: a.card
  detail_names: ["h1.title", "h2.title"]
rate_limit:
  rps: 5
  burst: 3
input:
  path: input.csv
  encoding: utf-8
  id_column: 2
  query_column: 0
output:
  driver: postgres
  postgres:
    dsn: postgres://localhost/places
    table: results
archive:
  gcs:
    bucket: bps-archive
pubsub:
  project_id: bps
  topic_name: place-batches
server:
  enabled: true
  port: 9090
logging:
  development: false
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Scraper.Concurrency)
	require.Equal(t, 10, cfg.Scraper.BatchSize)
	require.Equal(t, 2*time.Second, cfg.Scraper.RenderWait)
	require.Equal(t, 90*time.Second, cfg.Scraper.ItemTimeout)
	require.False(t, cfg.Browser.Headless)
	require.Equal(t, 15*time.Second, cfg.Browser.NavTimeout)
	require.Equal(t, "a.card", cfg.Selectors.CardLink)
	require.Equal(t, []string{"h1.title", "h2.title"}, cfg.Selectors.DetailNames)
	require.Equal(t, extract.DefaultSelectors().DetailMarker, cfg.Selectors.DetailMarker)
	require.InDelta(t, 5.0, cfg.RateLimit.RPS, 1e-9)
	require.Equal(t, 2, cfg.Input.IDColumn)
	require.Equal(t, DriverPostgres, cfg.Output.Driver)
	require.Equal(t, "results", cfg.Output.Postgres.Table)
	require.Equal(t, "bps-archive", cfg.Archive.GCS.Bucket)
	require.Equal(t, "places", cfg.Archive.GCS.Prefix)
	require.True(t, cfg.PubSub.Enabled())
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLACES_SCRAPER_CONCURRENCY", "2")
	t.Setenv("PLACES_OUTPUT_PATH", "/tmp/out.csv")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Scraper.Concurrency)
	require.Equal(t, "/tmp/out.csv", cfg.Output.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"concurrency":     func(c *Config) { c.Scraper.Concurrency = 0 },
		"batch size":      func(c *Config) { c.Scraper.BatchSize = 0 },
		"max results":     func(c *Config) { c.Scraper.MaxResults = 0 },
		"search url":      func(c *Config) { c.Scraper.SearchURL = " " },
		"same columns":    func(c *Config) { c.Input.QueryColumn = c.Input.IDColumn },
		"negative column": func(c *Config) { c.Input.IDColumn = -1 },
		"unknown driver":  func(c *Config) { c.Output.Driver = "sqlite" },
		"csv path":        func(c *Config) { c.Output.Path = "" },
		"postgres dsn":    func(c *Config) { c.Output.Driver = DriverPostgres },
		"rps":             func(c *Config) { c.RateLimit.RPS = -1 },
		"server port":     func(c *Config) { c.Server.Enabled = true; c.Server.Port = 0 },
		"pubsub pair":     func(c *Config) { c.PubSub.ProjectID = "p" },
		"log level":       func(c *Config) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		require.Error(t, cfg.Validate(), name)
	}
	require.NoError(t, base.Validate())
}
