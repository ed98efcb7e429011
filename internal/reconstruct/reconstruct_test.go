package reconstruct

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fleurfold/fleur/internal/assemble"
	"github.com/fleurfold/fleur/internal/geometry"
	"github.com/fleurfold/fleur/internal/layout"
	"github.com/fleurfold/fleur/internal/raster"
	"github.com/fleurfold/fleur/internal/testutil"
)

const unit = 10

// canonicalOnly keeps the drawings of the first placement of every square.
func canonicalOnly(table *layout.Table, all raster.Memory) raster.Memory {
	out := make(raster.Memory)
	for _, side := range layout.Sides {
		for _, sq := range table.Squares(side) {
			p := sq.Placements[0].Page
			out[p] = all[p]
		}
	}
	return out
}

func region(img *image.Gray, r image.Rectangle) []uint8 {
	return raster.Crop(img, r).Pix
}

func TestReconstructBuildsTargets(t *testing.T) {
	table := layout.Default()
	drawings := canonicalOnly(table, testutil.Pages(table, unit))

	res, err := New(table, drawings).Reconstruct(context.Background())
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	for _, page := range []geometry.Page{"v2", "v3", "v4", "r3", "hv1", "r1"} {
		if _, ok := res.Pages[page]; !ok {
			t.Errorf("Expected %s to be reconstructed", page)
		}
	}
	if len(res.Pages) != 6 {
		t.Errorf("Expected 6 reconstructed pages, got %d", len(res.Pages))
	}
	for page := range res.Pages {
		if drawings.Exists(page) {
			t.Errorf("page %s has a drawing and must not be rebuilt", page)
		}
	}
	want := []geometry.Page{"cover", "cover2", "h2", "h3", "h4", "r2", "r4", "t1", "t2", "t3", "t4"}
	if len(res.Originals) != len(want) {
		t.Fatalf("Expected originals %v, got %v", want, res.Originals)
	}
	for i := range want {
		if res.Originals[i] != want[i] {
			t.Errorf("original %d = %s, want %s", i, res.Originals[i], want[i])
		}
	}

	model := table.Model()
	if size, _ := model.PageSize("v3", unit); res.Pages["v3"].Bounds().Size() != size {
		t.Errorf("v3 sized %v, want %v", res.Pages["v3"].Bounds().Size(), size)
	}
	if got := res.Pages["r3"].Bounds().Size(); got != image.Pt(20, 20) {
		t.Errorf("r3 sized %v, want full page", got)
	}
	if got := res.Pages["v2"].Bounds().Size(); got != image.Pt(20, 10) {
		t.Errorf("v2 sized %v, want horizontal half page", got)
	}
}

func TestReconstructMatchesAssembledSheet(t *testing.T) {
	table := layout.Default()
	model := table.Model()
	all := testutil.Pages(table, unit)
	drawings := canonicalOnly(table, all)

	rec := New(table, drawings)
	res, err := rec.Reconstruct(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	type want struct {
		square int
		side   layout.Side
		pix    []uint8
		size   image.Point
		rotate bool
	}
	// Squares are applied in order, so the last square naming a slot wins.
	slots := make(map[slot]want)

	asm := assemble.New(table, drawings)
	for _, side := range layout.Sides {
		sheet, err := asm.Assemble(context.Background(), side)
		if err != nil {
			t.Fatal(err)
		}
		_, pastes, err := asm.Plan(side, func(p geometry.Page) (image.Point, error) {
			return drawings[p].Bounds().Size(), nil
		})
		if err != nil {
			t.Fatal(err)
		}

		for i, sq := range table.Squares(side) {
			orig := sq.Placements[0]
			img := drawings[orig.Page]
			box, err := model.CropBox(orig.Page, orig.Part, img.Bounds().Dx(), img.Bounds().Dy())
			if err != nil {
				t.Fatal(err)
			}
			direct := region(img, box)

			// The sheet holds the same crop, turned when the placement is down.
			onSheet := raster.Crop(sheet, pastes[i].Rect())
			if pastes[i].Rotate {
				onSheet = raster.Rotate180(onSheet)
			}
			if sq.Number != 13 && string(onSheet.Pix) != string(direct) {
				t.Errorf("%s square %d: sheet fragment differs from direct crop", side, sq.Number)
			}

			for _, target := range sq.Placements[1:] {
				cell, err := geometry.PartCoordinates(target.Page, target.Part)
				if err != nil {
					t.Fatal(err)
				}
				rotate, _ := model.NeedsRotation(orig.Page, target.Page)
				slots[slot{target.Page, cell.Mul(box.Dx())}] = want{sq.Number, side, direct, box.Size(), rotate}
			}
		}
	}

	for s, w := range slots {
		got := raster.Crop(res.Pages[s.page], image.Rectangle{Min: s.at, Max: s.at.Add(w.size)})
		if w.rotate {
			got = raster.Rotate180(got)
		}
		if string(got.Pix) != string(w.pix) {
			t.Errorf("%s at %v: fragment differs from %s square %d", s.page, s.at, w.side, w.square)
		}
	}
}

func TestReconstructLaterSquareOverwrites(t *testing.T) {
	table := layout.Default()
	drawings := canonicalOnly(table, testutil.Pages(table, unit))

	res, err := New(table, drawings).Reconstruct(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Front squares 3 (h3 B) and 10 (h3 D) both target r3 B; square 10 comes
	// last.
	r3b := res.Pages["r3"].GrayAt(unit+1, 1)
	if want := testutil.Shade(table, "h3", geometry.PartD); r3b != want {
		t.Errorf("r3 B = %v, want shade of h3 D %v", r3b, want)
	}
	if first := testutil.Shade(table, "h3", geometry.PartB); r3b == first {
		t.Error("Expected square 10 to replace the fragment from square 3")
	}
}

func TestReconstructRotation(t *testing.T) {
	table := layout.Default()
	drawings := canonicalOnly(table, testutil.Pages(table, unit))
	drawings["h2"] = testutil.Gradient(unit, 2*unit)
	drawings["t3"] = testutil.Gradient(2*unit, 2*unit)

	res, err := New(table, drawings).Reconstruct(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Front square 2: h2 A (vertical) -> v2 A (horizontal), perpendicular.
	h2a := raster.Crop(drawings["h2"], image.Rect(0, 0, unit, unit))
	v2a := raster.Crop(res.Pages["v2"], image.Rect(0, 0, unit, unit))
	if string(v2a.Pix) != string(raster.Rotate180(h2a).Pix) {
		t.Error("Expected v2 A to be h2 A turned 180 degrees")
	}
	if string(v2a.Pix) == string(h2a.Pix) {
		t.Error("Expected the gradient to change under rotation")
	}

	// Front square 1: t3 D -> v3 C, both full pages, copied as is.
	t3d := raster.Crop(drawings["t3"], image.Rect(unit, unit, 2*unit, 2*unit))
	v3c := raster.Crop(res.Pages["v3"], image.Rect(0, unit, unit, 2*unit))
	if string(v3c.Pix) != string(t3d.Pix) {
		t.Error("Expected v3 C to be an unrotated copy of t3 D")
	}
}

func TestReconstructMissingSquare(t *testing.T) {
	table := layout.Default()
	drawings := canonicalOnly(table, testutil.Pages(table, unit))
	delete(drawings, "t3")

	_, err := New(table, drawings).Reconstruct(context.Background())
	var missing *layout.MissingSourceError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingSourceError, got %v", err)
	}
	if missing.Side != layout.Front || missing.Square != 1 {
		t.Errorf("Expected front square 1, got %s square %d", missing.Side, missing.Square)
	}
	if len(missing.Pages) != 2 || missing.Pages[0] != "t3" || missing.Pages[1] != "v3" {
		t.Errorf("Expected both candidate pages named, got %v", missing.Pages)
	}
	if missing.Part != geometry.PartD {
		t.Errorf("Expected canonical part D, got %q", missing.Part)
	}
	if !strings.Contains(err.Error(), "(part D)") {
		t.Errorf("Expected part in message %q", err.Error())
	}
}

func TestReconstructFallsBackToLaterEntry(t *testing.T) {
	table := layout.Default()
	all := testutil.Pages(table, unit)
	drawings := canonicalOnly(table, all)
	delete(drawings, "t3")
	drawings["v3"] = all["v3"]

	res, err := New(table, drawings).Reconstruct(context.Background())
	if err != nil {
		t.Fatalf("Expected v3 to stand in for t3, got %v", err)
	}
	t3, ok := res.Pages["t3"]
	if !ok {
		t.Fatal("Expected t3 to be reconstructed from v3")
	}
	// Front square 1: v3 C lands on t3 D.
	got := t3.GrayAt(unit+1, unit+1)
	if want := testutil.Shade(table, "v3", geometry.PartC); got != want {
		t.Errorf("t3 D = %v, want shade of v3 C %v", got, want)
	}
	if _, ok := res.Pages["v3"]; ok {
		t.Error("v3 has a drawing and must not be rebuilt")
	}
}

func TestReconstructSkipsDrawnTargets(t *testing.T) {
	table := layout.Default()
	res, err := New(table, testutil.Pages(table, unit)).Reconstruct(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pages) != 0 {
		t.Errorf("Expected nothing to rebuild when every page is drawn, got %d", len(res.Pages))
	}
}

func TestSave(t *testing.T) {
	table := layout.Default()
	drawings := canonicalOnly(table, testutil.Pages(table, unit))
	rec := New(table, drawings)
	res, err := rec.Reconstruct(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "build")
	written, err := rec.Save(res, dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(written) != len(res.Originals)+len(res.Pages) {
		t.Errorf("Expected %d files, got %d", len(res.Originals)+len(res.Pages), len(written))
	}

	img, err := raster.Decode(filepath.Join(dir, "v3.png"))
	if err != nil {
		t.Fatalf("failed to read v3.png: %v", err)
	}
	for _, p := range img.Pix {
		if p != 0 && p != 0xff {
			t.Fatalf("Expected a black and white page, found gray %d", p)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "t3.png")); err != nil {
		t.Errorf("Expected original t3 to be copied: %v", err)
	}
}
