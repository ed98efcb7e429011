// Package testutil builds synthetic page images for pipeline tests.
package testutil

import (
	"image"
	"image/color"

	"github.com/fleurfold/fleur/internal/geometry"
	"github.com/fleurfold/fleur/internal/layout"
	"github.com/fleurfold/fleur/internal/raster"
)

// Shade returns a gray level unique to page and part within table. White
// is never returned.
func Shade(table *layout.Table, page geometry.Page, part geometry.Part) color.Gray {
	for i, p := range table.Pages() {
		if p != page {
			continue
		}
		for j, q := range geometry.Parts {
			if q == part {
				return color.Gray{Y: uint8(1 + i*len(geometry.Parts) + j)}
			}
		}
	}
	return raster.White
}

// Pages returns one image per page of table, sized for the given unit, with
// every part filled with its Shade.
func Pages(table *layout.Table, unit int) raster.Memory {
	model := table.Model()
	pages := make(raster.Memory)
	for _, page := range table.Pages() {
		size, err := model.PageSize(page, unit)
		if err != nil {
			panic(err)
		}
		img := raster.NewCanvas(size.X, size.Y)
		// B last: on vertical half pages it shares its region with C.
		parts := []geometry.Part{geometry.PartA, geometry.PartC, geometry.PartD, geometry.PartB}
		if model.IsFullBleed(page) {
			parts = []geometry.Part{geometry.PartAll}
		}
		for _, part := range parts {
			box, err := model.CropBox(page, part, size.X, size.Y)
			if err != nil {
				panic(err)
			}
			if box.In(img.Bounds()) {
				raster.Fill(img, box, Shade(table, page, part))
			}
		}
		pages[page] = img
	}
	return pages
}

// Gradient returns a w x h image whose pixels all differ along each row and
// column, for checking orientation.
func Gradient(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 251)})
		}
	}
	return g
}
