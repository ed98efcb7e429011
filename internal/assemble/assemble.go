// Package assemble composes the printable front and back sheets from the
// canonical source of every grid square.
package assemble

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/fleurfold/fleur/internal/geometry"
	"github.com/fleurfold/fleur/internal/layout"
	"github.com/fleurfold/fleur/internal/raster"
	"golang.org/x/sync/errgroup"
)

// GridCells is the number of unit cells along each side of a sheet.
const GridCells = 4

// Assembler builds sheets from a layout table and a page source.
type Assembler struct {
	table   *layout.Table
	model   *geometry.Model
	source  raster.Source
	margin  int
	workers int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithMargin sets the folding margin in pixels.
func WithMargin(px int) Option {
	return func(a *Assembler) { a.margin = px }
}

// WithWorkers bounds how many squares are decoded and cropped at once.
func WithWorkers(n int) Option {
	return func(a *Assembler) { a.workers = n }
}

// New creates an Assembler. Decoded pages are cached for the lifetime of the
// Assembler.
func New(table *layout.Table, source raster.Source, opts ...Option) *Assembler {
	a := &Assembler{
		table:   table,
		model:   table.Model(),
		source:  raster.NewCache(source),
		workers: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers < 1 {
		a.workers = 1
	}
	return a
}

// Paste describes where one square's fragment goes on a sheet.
type Paste struct {
	Square    int
	Placement layout.Placement
	Crop      image.Rectangle
	At        image.Point
	Rotate    bool
}

// Rect is the area of the sheet the fragment covers.
func (p Paste) Rect() image.Rectangle {
	return image.Rectangle{Min: p.At, Max: p.At.Add(p.Crop.Size())}
}

// SheetSize returns the side length of a sheet for the given unit length.
func (a *Assembler) SheetSize(unit int) int {
	return (unit + a.margin) * GridCells
}

// Plan computes every paste of side from source image sizes alone. size
// reports the pixel dimensions of a page image.
func (a *Assembler) Plan(side layout.Side, size func(geometry.Page) (image.Point, error)) (int, []Paste, error) {
	squares := a.table.Squares(side)
	if len(squares) == 0 {
		return 0, nil, fmt.Errorf("%w: %s has no squares", layout.ErrInvalidTable, side)
	}
	if err := a.table.CheckMargin(a.margin); err != nil {
		return 0, nil, err
	}

	unit, err := a.unitLength(squares[0].Placements[0], size)
	if err != nil {
		return 0, nil, a.missing(side, squares[0], err)
	}

	pastes := make([]Paste, 0, len(squares))
	for _, sq := range squares {
		p := sq.Placements[0]
		dim, err := size(p.Page)
		if err != nil {
			return 0, nil, a.missing(side, sq, err)
		}
		crop, err := a.model.CropBox(p.Page, p.Part, dim.X, dim.Y)
		if err != nil {
			return 0, nil, err
		}
		pastes = append(pastes, Paste{
			Square:    sq.Number,
			Placement: p,
			Crop:      crop,
			At:        a.pasteAt(sq.Number, unit, crop.Size()),
			Rotate:    p.Orientation == layout.Down,
		})
	}
	return unit, pastes, nil
}

// Assemble builds the sheet for side. Any missing canonical source aborts
// the whole sheet.
func (a *Assembler) Assemble(ctx context.Context, side layout.Side) (*image.Gray, error) {
	slog.Info("Assembling sheet", "side", side, "margin", a.margin, "workers", a.workers)

	if err := a.table.CheckMargin(a.margin); err != nil {
		return nil, err
	}

	if err := a.prefetch(ctx, side); err != nil {
		return nil, err
	}
	unit, pastes, err := a.Plan(side, a.imageSize)
	if err != nil {
		return nil, err
	}
	slog.Debug("Unit length resolved", "side", side, "unit", unit)

	fragments := make([]*image.Gray, len(pastes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, p := range pastes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := a.source.Open(p.Placement.Page)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", p.Placement.Page, err)
			}
			frag := raster.Crop(src, p.Crop)
			if p.Rotate {
				frag = raster.Rotate180(frag)
			}
			fragments[i] = frag
			slog.Debug("Cropped part", "side", side, "square", p.Square, "page", p.Placement.Page, "part", p.Placement.Part, "crop", p.Crop, "rotate", p.Rotate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := a.SheetSize(unit)
	sheet := raster.NewCanvas(n, n)
	for i, p := range pastes {
		raster.Paste(sheet, fragments[i], p.At)
	}
	raster.StrokeRect(sheet, RegistrationRect(n), markWidth(unit), raster.Black)

	return sheet, nil
}

// prefetch decodes every canonical source of side concurrently. When several
// are missing, the lowest numbered square is reported.
func (a *Assembler) prefetch(ctx context.Context, side layout.Side) error {
	squares := a.table.Squares(side)
	errs := make([]error, len(squares))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, sq := range squares {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := a.source.Open(sq.Placements[0].Page); err != nil {
				errs[i] = a.missing(side, sq, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// RegistrationRect is the central quarter of an n x n sheet.
func RegistrationRect(n int) image.Rectangle {
	return image.Rect(n/4, n/4, 3*n/4, 3*n/4)
}

func markWidth(unit int) int {
	return max(1, unit/256)
}

// unitLength is the width of the canonical part of the first square.
func (a *Assembler) unitLength(first layout.Placement, size func(geometry.Page) (image.Point, error)) (int, error) {
	dim, err := size(first.Page)
	if err != nil {
		return 0, err
	}
	part, err := a.model.PartSize(first.Page, dim.X, dim.Y)
	if err != nil {
		return 0, err
	}
	return part.X, nil
}

// pasteAt places a fragment of the given size on square n: grid origin,
// folding margin offset and a centring correction for fragments that do not
// fill their nominal cell.
func (a *Assembler) pasteAt(n, unit int, frag image.Point) image.Point {
	pos := a.table.Grid[n]
	cell := pos.Size(unit)
	centre := image.Pt(floorHalf(cell-frag.X), floorHalf(cell-frag.Y))
	return pos.Origin(unit).Add(a.table.Margins[n].Pixels(a.margin)).Add(centre)
}

func floorHalf(n int) int {
	return int(math.Floor(float64(n) / 2))
}

func (a *Assembler) imageSize(page geometry.Page) (image.Point, error) {
	img, err := a.source.Open(page)
	if err != nil {
		return image.Point{}, err
	}
	return img.Bounds().Size(), nil
}

func (a *Assembler) missing(side layout.Side, sq layout.Square, err error) error {
	if !raster.IsNotExist(err) {
		return err
	}
	p := sq.Placements[0]
	return &layout.MissingSourceError{
		Side:   side,
		Square: sq.Number,
		Pages:  []geometry.Page{p.Page},
		Part:   p.Part,
		Dir:    a.source.Root(),
	}
}
