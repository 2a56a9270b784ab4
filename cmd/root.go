// Package cmd defines and implements the CLI commands for the placescraper
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/placescraper/internal/app"
	"github.com/JakeFAU/placescraper/internal/config"
	"github.com/JakeFAU/placescraper/internal/runner"
)

var cfgFile string

// App defines the application interface that commands use, so tests can
// inject a fake.
type App interface {
	Scrape(ctx context.Context) (runner.Summary, error)
	Export(ctx context.Context, path string) (int, error)
	Close(ctx context.Context) error
}

// loadConfig and newApp are variables so tests can replace them.
var (
	loadConfig = config.Load
	newApp     = func(ctx context.Context, cfg *config.Config) (App, error) {
		return app.Build(ctx, cfg)
	}
)

// configKeyType is the key for storing the loaded Config in the context.
type configKeyType string

const configKey configKeyType = "config"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "placescraper",
		Short: "Looks up business listings on Google Maps for a list of named places.",
		Long: `placescraper reads a CSV of (id, query) pairs, searches each query on
Google Maps with a pool of headless browsers, and appends one row per
place found to a resumable results store.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), configKey, &cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newExportCmd())
	return cmd
}

// withApp builds the App after flag overrides are applied, runs fn, and
// closes the App.
func withApp(cmd *cobra.Command, override func(*config.Config), fn func(context.Context, App) error) error {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return errors.New("configuration not loaded")
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	runErr := fn(cmd.Context(), a)
	return errors.Join(runErr, a.Close(context.WithoutCancel(cmd.Context())))
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "placescraper: %v\n", err)
		stop()
		os.Exit(1)
	}
}
