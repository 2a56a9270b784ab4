// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/placescraper/internal/browser"
	"github.com/JakeFAU/placescraper/internal/extract"
	"github.com/JakeFAU/placescraper/internal/ratelimit"
	"github.com/JakeFAU/placescraper/internal/storage/gcs"
	"github.com/JakeFAU/placescraper/internal/store/postgres"
)

// Output drivers.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// Config captures all knobs loaded via Viper.
type Config struct {
	Scraper   ScraperConfig     `mapstructure:"scraper"`
	Browser   browser.Config    `mapstructure:"browser"`
	Selectors extract.Selectors `mapstructure:"selectors"`
	RateLimit ratelimit.Config  `mapstructure:"rate_limit"`
	Input     InputConfig       `mapstructure:"input"`
	Output    OutputConfig      `mapstructure:"output"`
	Archive   ArchiveConfig     `mapstructure:"archive"`
	PubSub    PubSubConfig      `mapstructure:"pubsub"`
	Server    ServerConfig      `mapstructure:"server"`
	Progress  ProgressConfig    `mapstructure:"progress"`
	Logging   LoggingConfig     `mapstructure:"logging"`
}

// ScraperConfig governs lookups and the worker pool.
type ScraperConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	MaxResults        int           `mapstructure:"max_results"`
	BatchSize         int           `mapstructure:"batch_size"`
	SearchURL         string        `mapstructure:"search_url"`
	RenderWait        time.Duration `mapstructure:"render_wait"`
	ScrollAttempts    int           `mapstructure:"scroll_attempts"`
	ScrollPause       time.Duration `mapstructure:"scroll_pause"`
	DetailRetries     int           `mapstructure:"detail_retries"`
	DetailWait        time.Duration `mapstructure:"detail_wait"`
	DetailSettle      time.Duration `mapstructure:"detail_settle"`
	RetryPause        time.Duration `mapstructure:"retry_pause"`
	CoordPollInterval time.Duration `mapstructure:"coord_poll_interval"`
	CoordPollTimeout  time.Duration `mapstructure:"coord_poll_timeout"`
	ShareWait         time.Duration `mapstructure:"share_wait"`
	ItemTimeout       time.Duration `mapstructure:"item_timeout"`
}

// InputConfig locates and describes the work-item file.
type InputConfig struct {
	Path        string `mapstructure:"path"`
	Encoding    string `mapstructure:"encoding"`
	IDColumn    int    `mapstructure:"id_column"`
	QueryColumn int    `mapstructure:"query_column"`
	HasHeader   bool   `mapstructure:"has_header"`
}

// OutputConfig selects the output store.
type OutputConfig struct {
	Driver   string          `mapstructure:"driver"`
	Path     string          `mapstructure:"path"`
	XLSXPath string          `mapstructure:"xlsx_path"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// ArchiveConfig controls the upload of output files after a run. An empty
// bucket and directory disable archiving.
type ArchiveConfig struct {
	GCS      gcs.Config `mapstructure:"gcs"`
	LocalDir string     `mapstructure:"local_dir"`
}

// PubSubConfig holds metadata for batch notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether notifications are configured.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// ProgressConfig toggles progress sinks.
type ProgressConfig struct {
	Log bool `mapstructure:"log"`
}

// LoggingConfig toggles zap development features and the level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk and environment. Environment variables use
// the PLACES prefix with dots replaced by underscores.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLACES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.concurrency", 4)
	v.SetDefault("scraper.max_results", 1)
	v.SetDefault("scraper.batch_size", 50)
	v.SetDefault("scraper.search_url", "https://www.google.com/maps/search")
	v.SetDefault("scraper.render_wait", 3*time.Second)
	v.SetDefault("scraper.scroll_attempts", 3)
	v.SetDefault("scraper.scroll_pause", 1500*time.Millisecond)
	v.SetDefault("scraper.detail_retries", 3)
	v.SetDefault("scraper.detail_wait", 5*time.Second)
	v.SetDefault("scraper.detail_settle", time.Second)
	v.SetDefault("scraper.retry_pause", time.Second)
	v.SetDefault("scraper.coord_poll_interval", 500*time.Millisecond)
	v.SetDefault("scraper.coord_poll_timeout", 5*time.Second)
	v.SetDefault("scraper.share_wait", time.Second)
	v.SetDefault("scraper.item_timeout", 2*time.Minute)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 768)
	v.SetDefault("browser.disable_images", true)
	v.SetDefault("browser.nav_timeout", 30*time.Second)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	sel := extract.DefaultSelectors()
	v.SetDefault("selectors.results_panel", sel.ResultsPanel)
	v.SetDefault("selectors.card_link", sel.CardLink)
	v.SetDefault("selectors.card_containers", sel.CardContainers)
	v.SetDefault("selectors.card_heading", sel.CardHeading)
	v.SetDefault("selectors.text_leaf", sel.TextLeaf)
	v.SetDefault("selectors.rating_value", sel.RatingValue)
	v.SetDefault("selectors.rating_label", sel.RatingLabel)
	v.SetDefault("selectors.website", sel.Website)
	v.SetDefault("selectors.detail_cards", sel.DetailCards)
	v.SetDefault("selectors.detail_marker", sel.DetailMarker)
	v.SetDefault("selectors.detail_names", sel.DetailNames)
	v.SetDefault("selectors.detail_address", sel.DetailAddress)
	v.SetDefault("selectors.detail_phone", sel.DetailPhone)
	v.SetDefault("selectors.detail_website", sel.DetailWebsite)
	v.SetDefault("selectors.detail_ratings", sel.DetailRatings)
	v.SetDefault("selectors.detail_categories", sel.DetailCategories)
	v.SetDefault("selectors.detail_open_status", sel.DetailOpenStatus)
	v.SetDefault("selectors.detail_hours", sel.DetailHours)
	v.SetDefault("selectors.detail_hours_text", sel.DetailHoursText)
	v.SetDefault("selectors.share_button", sel.ShareButton)
	v.SetDefault("selectors.share_input", sel.ShareInput)

	v.SetDefault("rate_limit.rps", 2.0)
	v.SetDefault("rate_limit.burst", 1)

	v.SetDefault("input.encoding", "iso-8859-1")
	v.SetDefault("input.id_column", 0)
	v.SetDefault("input.query_column", 1)
	v.SetDefault("input.has_header", false)

	v.SetDefault("output.driver", DriverCSV)
	v.SetDefault("output.path", "hasil_scraping.csv")
	v.SetDefault("output.postgres.table", "place_records")
	v.SetDefault("output.postgres.max_conns", 4)
	v.SetDefault("output.postgres.ensure_schema", true)

	v.SetDefault("archive.gcs.prefix", "places")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("progress.log", true)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scraper.Concurrency <= 0 {
		return fmt.Errorf("scraper.concurrency must be > 0")
	}
	if c.Scraper.MaxResults <= 0 {
		return fmt.Errorf("scraper.max_results must be > 0")
	}
	if c.Scraper.BatchSize <= 0 {
		return fmt.Errorf("scraper.batch_size must be > 0")
	}
	if strings.TrimSpace(c.Scraper.SearchURL) == "" {
		return fmt.Errorf("scraper.search_url is required")
	}
	if c.Input.IDColumn < 0 || c.Input.QueryColumn < 0 {
		return fmt.Errorf("input column indexes must be >= 0")
	}
	if c.Input.IDColumn == c.Input.QueryColumn {
		return fmt.Errorf("input.id_column and input.query_column must differ")
	}
	switch c.Output.Driver {
	case DriverCSV:
		if c.Output.Path == "" {
			return fmt.Errorf("output.path is required for the csv driver")
		}
	case DriverPostgres:
		if c.Output.Postgres.DSN == "" {
			return fmt.Errorf("output.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown output.driver %q", c.Output.Driver)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must be >= 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}
