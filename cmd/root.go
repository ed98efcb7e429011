package cmd

import (
	"log/slog"
	"os"

	"github.com/fleurfold/fleur/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// PagesMode is the positional argument selecting the pages pipeline.
const PagesMode = "p"

type rootOptions struct {
	configPath string
	verbose    bool
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "fleur [mode]",
		Short: "Lay out the printable sheets and pages of the fleur folding puzzle",
		Long: `Fleur cuts page drawings into parts and lays them out for print.

Without a mode it assembles the front and back sheets from the page images in
the source directory and exports them to fleur.pdf. With mode "p" it rebuilds
every page from the drawings directory, borrowing the parts each page shares
with the others.`,
		Example: `  # Build front.png, back.png and fleur.pdf
  fleur

  # Rebuild the individual pages from the drawings
  fleur p

  # Use a config file and debug logging
  fleur --config fleur.yaml --verbose`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if opts.verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if len(args) == 1 && args[0] == PagesMode {
				return executePages(cmd.Context(), cfg)
			}
			return executeSheets(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newSheetsCmd(opts))
	cmd.AddCommand(newPagesCmd(opts))
	cmd.AddCommand(newPlanCmd(opts))

	return cmd
}
