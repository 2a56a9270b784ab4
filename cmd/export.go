package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Writes the persisted results to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a App) error {
				if path == "" {
					return errors.New("--out is required")
				}
				n, err := a.Export(ctx, path)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", n, path)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&path, "out", "hasil_scraping.xlsx", "workbook path")
	return cmd
}
