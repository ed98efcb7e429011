// Package pipeline runs the two end-to-end modes of the tool: building the
// printable sheets and rebuilding the individual pages.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fleurfold/fleur/internal/assemble"
	"github.com/fleurfold/fleur/internal/config"
	"github.com/fleurfold/fleur/internal/export"
	"github.com/fleurfold/fleur/internal/layout"
	"github.com/fleurfold/fleur/internal/manifest"
	"github.com/fleurfold/fleur/internal/raster"
	"github.com/fleurfold/fleur/internal/reconstruct"
)

// PDFName is the print document written by the sheets pipeline.
const PDFName = "fleur.pdf"

// Summary describes what a run wrote.
type Summary struct {
	BuildDir string
	Files    []string
	Manifest string
}

// LoadLayout returns the layout named by cfg, or the built-in one.
func LoadLayout(cfg *config.Config) (*layout.Table, error) {
	if cfg.LayoutFile == "" {
		return layout.Default(), nil
	}
	slog.Info("Loading layout", "path", cfg.LayoutFile)
	return layout.Load(cfg.LayoutFile)
}

// Sheets assembles the front and back sheets from cfg.SourceDir, saves them
// and exports the print document.
func Sheets(ctx context.Context, cfg *config.Config) (*Summary, error) {
	table, err := LoadLayout(cfg)
	if err != nil {
		return nil, err
	}
	return SheetsFrom(ctx, cfg, table, raster.NewDir(cfg.SourceDir, cfg.ImageExt))
}

// SheetsFrom runs the sheets pipeline over any page source.
func SheetsFrom(ctx context.Context, cfg *config.Config, table *layout.Table, source raster.Source) (*Summary, error) {
	if err := os.MkdirAll(cfg.BuildDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}

	asm := assemble.New(table, source,
		assemble.WithMargin(cfg.FoldingMarginPx),
		assemble.WithWorkers(cfg.Workers),
	)

	// Both sides must assemble before anything is written.
	sheets := make([]*image.Gray, len(layout.Sides))
	for i, side := range layout.Sides {
		sheet, err := asm.Assemble(ctx, side)
		if err != nil {
			return nil, fmt.Errorf("failed to assemble %s: %w", side, err)
		}
		sheets[i] = sheet
	}

	summary := &Summary{BuildDir: cfg.BuildDir}
	for i, side := range layout.Sides {
		path := filepath.Join(cfg.BuildDir, string(side)+".png")
		if err := raster.SavePNG(sheets[i], path); err != nil {
			return nil, err
		}
		slog.Info("Saved sheet", "side", side, "path", path, "size", sheets[i].Bounds().Size())
		summary.Files = append(summary.Files, path)
	}

	pdf := filepath.Join(cfg.BuildDir, PDFName)
	if err := export.New(cfg.SheetWidthMM, cfg.DPI).Export(sheets, pdf); err != nil {
		return nil, err
	}
	summary.Files = append(summary.Files, pdf)

	return finish(summary)
}

// Pages rebuilds every page without a drawing of its own from
// cfg.DrawingsDir and writes the complete page set to the build directory.
func Pages(ctx context.Context, cfg *config.Config) (*Summary, error) {
	table, err := LoadLayout(cfg)
	if err != nil {
		return nil, err
	}
	return PagesFrom(ctx, cfg, table, raster.NewDir(cfg.DrawingsDir, cfg.ImageExt))
}

// PagesFrom runs the pages pipeline over any drawing source.
func PagesFrom(ctx context.Context, cfg *config.Config, table *layout.Table, drawings raster.Source) (*Summary, error) {
	rec := reconstruct.New(table, drawings)
	res, err := rec.Reconstruct(ctx)
	if err != nil {
		return nil, err
	}
	files, err := rec.Save(res, cfg.BuildDir)
	if err != nil {
		return nil, err
	}
	return finish(&Summary{BuildDir: cfg.BuildDir, Files: files})
}

func finish(s *Summary) (*Summary, error) {
	path, err := manifest.Write(s.BuildDir, s.Files)
	if err != nil {
		return nil, err
	}
	s.Manifest = path
	slog.Info("Wrote manifest", "path", path, "files", len(s.Files))
	return s, nil
}
