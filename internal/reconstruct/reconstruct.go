// Package reconstruct rebuilds every logical page from the fragments it
// shares with other pages on the physical grid squares.
package reconstruct

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/fleurfold/fleur/internal/geometry"
	"github.com/fleurfold/fleur/internal/layout"
	"github.com/fleurfold/fleur/internal/raster"
)

// Reconstructor fills pages that have no drawing of their own.
type Reconstructor struct {
	table  *layout.Table
	model  *geometry.Model
	source raster.Source
}

// New creates a Reconstructor reading drawings from source.
func New(table *layout.Table, source raster.Source) *Reconstructor {
	return &Reconstructor{
		table:  table,
		model:  table.Model(),
		source: raster.NewCache(source),
	}
}

// Result holds the reconstructed pages and the drawings they came from.
type Result struct {
	// Pages maps every reconstructed page to its canvas.
	Pages map[geometry.Page]*image.Gray
	// Originals lists the drawings used as sources, sorted.
	Originals []geometry.Page
}

// slot is one part position on a target page.
type slot struct {
	page geometry.Page
	at   image.Point
}

// Transfer records one fragment copied from an original to a target page.
type Transfer struct {
	Side     layout.Side
	Square   int
	Original layout.Placement
	Target   layout.Placement
	At       image.Point
	Rotate   bool
}

// Reconstruct walks every square of both sides. For each square the first
// placement backed by a drawing is the original; every other placement
// without a drawing receives a copy of the original's part.
func (r *Reconstructor) Reconstruct(ctx context.Context) (*Result, error) {
	res := &Result{Pages: make(map[geometry.Page]*image.Gray)}
	originals := make(map[geometry.Page]bool)
	// Squares that filled each target slot so far; later squares win.
	filled := make(map[slot]int)

	for _, side := range layout.Sides {
		for _, sq := range r.table.Squares(side) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			orig, err := r.original(side, sq)
			if err != nil {
				return nil, err
			}
			originals[orig.Page] = true

			transfers, frag, err := r.square(side, sq, orig)
			if err != nil {
				return nil, err
			}
			for _, tr := range transfers {
				canvas, ok := res.Pages[tr.Target.Page]
				if !ok {
					size, err := r.model.PageSize(tr.Target.Page, frag.Bounds().Dx())
					if err != nil {
						return nil, err
					}
					canvas = raster.NewCanvas(size.X, size.Y)
					res.Pages[tr.Target.Page] = canvas
					slog.Debug("Created page", "page", tr.Target.Page, "size", size)
				}
				piece := frag
				if tr.Rotate {
					piece = raster.Rotate180(frag)
				}
				key := slot{tr.Target.Page, tr.At}
				if prev, ok := filled[key]; ok {
					slog.Debug("Overwriting fragment", "side", side, "page", tr.Target.Page, "part", tr.Target.Part, "previous_square", prev, "square", sq.Number)
				}
				filled[key] = sq.Number
				raster.Paste(canvas, piece, tr.At)
				slog.Debug("Copied fragment", "side", side, "square", sq.Number, "from", tr.Original, "to", tr.Target, "at", tr.At, "rotate", tr.Rotate)
			}
		}
	}

	for p := range originals {
		res.Originals = append(res.Originals, p)
	}
	sort.Slice(res.Originals, func(i, j int) bool { return res.Originals[i] < res.Originals[j] })

	slog.Info("Reconstructed pages", "pages", len(res.Pages), "originals", len(res.Originals))
	return res, nil
}

// original picks the first placement of sq with a drawing.
func (r *Reconstructor) original(side layout.Side, sq layout.Square) (layout.Placement, error) {
	for _, p := range sq.Placements {
		if r.source.Exists(p.Page) {
			return p, nil
		}
	}
	pages := make([]geometry.Page, len(sq.Placements))
	for i, p := range sq.Placements {
		pages[i] = p.Page
	}
	return layout.Placement{}, &layout.MissingSourceError{
		Side:   side,
		Square: sq.Number,
		Pages:  pages,
		Part:   sq.Placements[0].Part,
		Dir:    r.source.Root(),
	}
}

// square crops the original's part and plans where it goes on each target.
func (r *Reconstructor) square(side layout.Side, sq layout.Square, orig layout.Placement) ([]Transfer, *image.Gray, error) {
	img, err := r.source.Open(orig.Page)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", orig.Page, err)
	}
	b := img.Bounds()
	box, err := r.model.CropBox(orig.Page, orig.Part, b.Dx(), b.Dy())
	if err != nil {
		return nil, nil, err
	}
	frag := raster.Crop(img, box)
	length := box.Dx()

	var transfers []Transfer
	for _, target := range sq.Placements {
		if target == orig || r.source.Exists(target.Page) {
			continue
		}
		cell, err := geometry.PartCoordinates(target.Page, target.Part)
		if err != nil {
			return nil, nil, err
		}
		rotate, err := r.model.NeedsRotation(orig.Page, target.Page)
		if err != nil {
			return nil, nil, err
		}
		transfers = append(transfers, Transfer{
			Side:     side,
			Square:   sq.Number,
			Original: orig,
			Target:   target,
			At:       cell.Mul(length),
			Rotate:   rotate,
		})
	}
	return transfers, frag, nil
}

// Save writes every reconstructed page as a one-bit PNG and copies every
// original drawing unchanged. It returns the paths written.
func (r *Reconstructor) Save(res *Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, page := range res.Originals {
		path, err := r.source.CopyTo(page, dir)
		if err != nil {
			return written, fmt.Errorf("failed to copy original %s: %w", page, err)
		}
		written = append(written, path)
	}

	pages := make([]geometry.Page, 0, len(res.Pages))
	for p := range res.Pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })

	for _, page := range pages {
		path := filepath.Join(dir, string(page)+".png")
		if err := raster.SavePNG(raster.Bilevel(res.Pages[page]), path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
