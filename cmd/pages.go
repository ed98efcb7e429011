package cmd

import (
	"context"

	"github.com/fleurfold/fleur/internal/config"
	"github.com/fleurfold/fleur/internal/pipeline"
	"github.com/spf13/cobra"
)

func newPagesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "Rebuild every page from the drawings directory",
		Long: `Rebuilds the pages that have no drawing of their own.

Each grid square is shared by two or three pages. The first page of a square
with a drawing is the original; its part is copied, turned when the pages lie
perpendicular, onto every other page of the square. Drawings are copied to
the build directory unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return executePages(cmd.Context(), cfg)
		},
	}
}

func executePages(ctx context.Context, cfg *config.Config) error {
	summary, err := pipeline.Pages(ctx, cfg)
	if err != nil {
		return err
	}
	printSummary("Pages", summary)
	return nil
}
