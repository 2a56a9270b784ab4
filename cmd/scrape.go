package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/placescraper/internal/config"
)

func newScrapeCmd() *cobra.Command {
	var (
		input   string
		output  string
		workers int
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Looks up every pending query in the input file",
		Long: `Reads the input CSV, skips ids already present in the output store, and
looks up the rest concurrently. Results are appended in batches so an
interrupted run resumes where it stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			override := func(cfg *config.Config) {
				if input != "" {
					cfg.Input.Path = input
				}
				if output != "" {
					cfg.Output.Path = output
				}
				if workers > 0 {
					cfg.Scraper.Concurrency = workers
				}
			}
			return withApp(cmd, override, func(ctx context.Context, a App) error {
				s, err := a.Scrape(ctx)
				if summary {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(s); encErr != nil {
						return errors.Join(err, encErr)
					}
				}
				if err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("scrape: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input CSV of id,query rows (overrides input.path)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV path (overrides output.path)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent browser sessions")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the run summary as JSON")
	return cmd
}
