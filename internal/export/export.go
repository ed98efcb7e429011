// Package export frames assembled sheets at their physical print size and
// writes them as pages of one PDF.
package export

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/fleurfold/fleur/internal/raster"
	"github.com/jbeda/geom"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	mmPerInch     = 25.4
	pointsPerInch = 72
)

// Exporter lays sheets out on a square print page sheetWidthMM on a side.
type Exporter struct {
	sheetWidthMM float64
	dpi          int
}

// New creates an Exporter.
func New(sheetWidthMM float64, dpi int) *Exporter {
	return &Exporter{sheetWidthMM: sheetWidthMM, dpi: dpi}
}

// TargetPx is the side of the print page in pixels.
func (e *Exporter) TargetPx() int {
	return int(math.Round(e.sheetWidthMM / mmPerInch * float64(e.dpi)))
}

// PagePoints is the side of the print page in PDF points.
func (e *Exporter) PagePoints() float64 {
	return e.sheetWidthMM / mmPerInch * pointsPerInch
}

// MarkSize is the side of a corner registration square.
func (e *Exporter) MarkSize() int {
	return max(1, e.TargetPx()/100)
}

// Layout places one canvas on the print page.
type Layout struct {
	Target int
	// Canvas is the area the (possibly scaled) canvas covers.
	Canvas geom.Rect
	// Scale is 1 unless the canvas had to shrink to fit.
	Scale float64
	Marks [4]geom.Rect
}

// Margin is the white border left of and above the canvas.
func (l Layout) Margin() geom.Coord {
	return l.Canvas.Min
}

// Layout centres a canvas of the given size on the print page. A canvas
// too large to leave room for the registration marks is scaled down until
// one mark fits in the margin.
func (e *Exporter) Layout(size image.Point) Layout {
	target := float64(e.TargetPx())
	mark := float64(e.MarkSize())

	dim := geom.Coord{X: float64(size.X), Y: float64(size.Y)}
	scale := 1.0
	if room, longest := target-2*mark, math.Max(dim.X, dim.Y); longest > room {
		scale = room / longest
		dim = geom.Coord{X: math.Floor(dim.X * room / longest), Y: math.Floor(dim.Y * room / longest)}
	}

	margin := geom.Coord{X: math.Floor((target - dim.X) / 2), Y: math.Floor((target - dim.Y) / 2)}
	canvas := geom.Rect{Min: margin, Max: margin.Plus(dim)}

	m := geom.Coord{X: mark, Y: mark}
	corner := func(c, dir geom.Coord) geom.Rect {
		r := geom.Rect{Min: c, Max: c}
		r.ExpandToContainCoord(c.Plus(geom.Coord{X: dir.X * m.X, Y: dir.Y * m.Y}))
		return r
	}
	return Layout{
		Target: int(target),
		Canvas: canvas,
		Scale:  scale,
		Marks: [4]geom.Rect{
			corner(canvas.Min, geom.Coord{X: -1, Y: -1}),
			corner(geom.Coord{X: canvas.Max.X, Y: canvas.Min.Y}, geom.Coord{X: 1, Y: -1}),
			corner(geom.Coord{X: canvas.Min.X, Y: canvas.Max.Y}, geom.Coord{X: -1, Y: 1}),
			corner(canvas.Max, geom.Coord{X: 1, Y: 1}),
		},
	}
}

func pixels(r geom.Rect) image.Rectangle {
	return image.Rect(int(r.Min.X), int(r.Min.Y), int(r.Max.X), int(r.Max.Y))
}

// Frame returns the canvas centred on a white print page with the four
// corner registration marks drawn.
func (e *Exporter) Frame(canvas *image.Gray) *image.Gray {
	l := e.Layout(canvas.Bounds().Size())
	page := raster.NewCanvas(l.Target, l.Target)

	at := pixels(l.Canvas)
	src := canvas
	if l.Scale != 1 {
		src = raster.Resize(canvas, at.Dx(), at.Dy())
	}
	raster.Paste(page, src, at.Min)
	for _, mark := range l.Marks {
		raster.Fill(page, pixels(mark), raster.Black)
	}
	return page
}

// Export frames every canvas and writes them, in order, as the pages of the
// PDF at outPath. An existing file is replaced.
func (e *Exporter) Export(canvases []*image.Gray, outPath string) error {
	if len(canvases) == 0 {
		return fmt.Errorf("nothing to export")
	}

	tmp, err := os.MkdirTemp("", "fleur-export-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	files := make([]string, 0, len(canvases))
	for i, canvas := range canvases {
		path := filepath.Join(tmp, fmt.Sprintf("sheet-%d.png", i+1))
		if err := raster.SavePNG(e.Frame(canvas), path); err != nil {
			return err
		}
		files = append(files, path)
	}

	// Importing into an existing PDF appends pages.
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", outPath, err)
	}

	side := e.PagePoints()
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: side, Height: side}
	imp.UserDim = true
	imp.Pos = types.Full
	imp.DPI = e.dpi

	if err := pdfapi.ImportImagesFile(files, outPath, imp, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("failed to write print document: %w", err)
	}

	slog.Info("Exported print document", "path", outPath, "pages", len(files), "sheet_mm", e.sheetWidthMM, "dpi", e.dpi)
	return nil
}
