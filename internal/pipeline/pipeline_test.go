package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fleurfold/fleur/internal/config"
	"github.com/fleurfold/fleur/internal/geometry"
	"github.com/fleurfold/fleur/internal/layout"
	"github.com/fleurfold/fleur/internal/manifest"
	"github.com/fleurfold/fleur/internal/raster"
	"github.com/fleurfold/fleur/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.BuildDir = filepath.Join(t.TempDir(), "build")
	cfg.FoldingMarginPx = 2
	cfg.SheetWidthMM = 10
	cfg.DPI = 254
	cfg.ImageExt = "png"
	return cfg
}

// writePages saves synthetic pages as PNG files in dir.
func writePages(t *testing.T, dir string, pages raster.Memory) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for page := range pages {
		if _, err := pages.CopyTo(page, dir); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSheets(t *testing.T) {
	cfg := testConfig(t)
	table := layout.Default()
	cfg.SourceDir = filepath.Join(t.TempDir(), "pages")
	writePages(t, cfg.SourceDir, testutil.Pages(table, 10))

	summary, err := Sheets(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Sheets failed: %v", err)
	}
	for _, name := range []string{"front.png", "back.png", PDFName, manifest.FileName} {
		if _, err := os.Stat(filepath.Join(cfg.BuildDir, name)); err != nil {
			t.Errorf("Expected %s in build directory: %v", name, err)
		}
	}

	front, err := raster.Decode(filepath.Join(cfg.BuildDir, "front.png"))
	if err != nil {
		t.Fatal(err)
	}
	if want := (10 + 2) * 4; front.Bounds().Dx() != want {
		t.Errorf("Expected %d px sheet, got %d", want, front.Bounds().Dx())
	}

	m, err := manifest.Read(summary.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 3 {
		t.Errorf("Expected 3 manifest entries, got %d", len(m.Files))
	}
}

func TestSheetsIsReproducible(t *testing.T) {
	cfg := testConfig(t)
	table := layout.Default()
	pages := testutil.Pages(table, 10)

	hashes := func() map[string]string {
		summary, err := SheetsFrom(context.Background(), cfg, table, pages)
		if err != nil {
			t.Fatalf("SheetsFrom failed: %v", err)
		}
		m, err := manifest.Read(summary.Manifest)
		if err != nil {
			t.Fatal(err)
		}
		out := make(map[string]string)
		for _, e := range m.Files {
			out[e.Name] = e.Hash
		}
		return out
	}

	first, second := hashes(), hashes()
	for _, name := range []string{"front.png", "back.png"} {
		if first[name] == "" || first[name] != second[name] {
			t.Errorf("%s: Expected identical hashes, got %q and %q", name, first[name], second[name])
		}
	}
}

func TestSheetsMissingSource(t *testing.T) {
	cfg := testConfig(t)
	table := layout.Default()
	pages := testutil.Pages(table, 10)
	delete(pages, "t3")

	_, err := SheetsFrom(context.Background(), cfg, table, pages)
	if !errors.Is(err, layout.ErrMissingSource) {
		t.Fatalf("Expected missing source error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.BuildDir, "front.png")); statErr == nil {
		t.Error("Expected no front sheet after a failed assembly")
	}
}

func TestSheetsMissingBackSource(t *testing.T) {
	cfg := testConfig(t)
	table := layout.Default()
	pages := testutil.Pages(table, 10)
	// r4 only feeds the back sheet, so the front assembles cleanly.
	delete(pages, "r4")

	_, err := SheetsFrom(context.Background(), cfg, table, pages)
	if !errors.Is(err, layout.ErrMissingSource) {
		t.Fatalf("Expected missing source error, got %v", err)
	}
	for _, name := range []string{"front.png", "back.png", PDFName, manifest.FileName} {
		if _, statErr := os.Stat(filepath.Join(cfg.BuildDir, name)); statErr == nil {
			t.Errorf("Expected no %s after a failed back sheet", name)
		}
	}
}

func TestPages(t *testing.T) {
	cfg := testConfig(t)
	table := layout.Default()
	all := testutil.Pages(table, 10)

	drawings := make(raster.Memory)
	for _, p := range []geometry.Page{"t3", "h2", "h3", "h4", "cover", "r4", "t1", "t2", "r2", "t4", "cover2"} {
		drawings[p] = all[p]
	}
	cfg.DrawingsDir = filepath.Join(t.TempDir(), "drawings")
	writePages(t, cfg.DrawingsDir, drawings)

	summary, err := Pages(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	if want := 17; len(summary.Files) != want {
		t.Errorf("Expected %d pages written, got %d", want, len(summary.Files))
	}
	for _, p := range table.Pages() {
		if _, err := os.Stat(filepath.Join(cfg.BuildDir, string(p)+".png")); err != nil {
			t.Errorf("Expected page %s in build directory: %v", p, err)
		}
	}
}

func TestLoadLayoutFile(t *testing.T) {
	cfg := testConfig(t)
	data, err := layout.Default().Encode()
	if err != nil {
		t.Fatal(err)
	}
	cfg.LayoutFile = filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(cfg.LayoutFile, data, 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadLayout(cfg)
	if err != nil {
		t.Fatalf("LoadLayout failed: %v", err)
	}
	if len(table.Front) != 13 {
		t.Errorf("Expected 13 front squares, got %d", len(table.Front))
	}
}
