package cmd

import (
	"context"
	"fmt"

	"github.com/fleurfold/fleur/internal/config"
	"github.com/fleurfold/fleur/internal/pipeline"
	"github.com/spf13/cobra"
)

func newSheetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "Assemble the front and back sheets and export fleur.pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return executeSheets(cmd.Context(), cfg)
		},
	}
}

func executeSheets(ctx context.Context, cfg *config.Config) error {
	summary, err := pipeline.Sheets(ctx, cfg)
	if err != nil {
		return err
	}
	printSummary("Sheets", summary)
	return nil
}

func printSummary(title string, s *pipeline.Summary) {
	fmt.Println("========================================")
	fmt.Printf("%s written to %s\n", title, s.BuildDir)
	fmt.Println("========================================")
	for _, f := range s.Files {
		fmt.Printf("  %s\n", f)
	}
	fmt.Printf("Manifest: %s\n", s.Manifest)
}
