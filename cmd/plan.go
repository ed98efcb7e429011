package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fleurfold/fleur/internal/config"
	"github.com/fleurfold/fleur/internal/pipeline"
	"github.com/fleurfold/fleur/internal/plan"
	"github.com/spf13/cobra"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print where every part is cut from and pasted to",
		Long: `Resolves the layout tables for source images of the configured unit length
and prints one row per placement: crop box, sheet position and rotation.`,
		Example: `  # Human readable
  fleur plan

  # Parquet for analysis
  fleur plan --format parquet --output plan.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(plan.Formats, format) {
				return fmt.Errorf("unsupported format: %s (want one of %s)", format, strings.Join(plan.Formats, ", "))
			}
			if format == "parquet" && output == "" {
				return fmt.Errorf("--output is required for parquet")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return executePlan(cfg, format, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, yaml, parquet)")
	cmd.Flags().StringVar(&output, "output", "", "Write to file instead of stdout")

	return cmd
}

func executePlan(cfg *config.Config, format, output string) error {
	table, err := pipeline.LoadLayout(cfg)
	if err != nil {
		return err
	}
	rows, err := plan.Build(table, cfg.UnitLengthPx, cfg.FoldingMarginPx)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}

	if output == "" {
		return plan.Write(os.Stdout, rows, format)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := plan.Write(f, rows, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Printf("Plan written to %s (%d rows)\n", output, len(rows))
	return nil
}
