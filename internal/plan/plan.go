// Package plan resolves the layout tables into a flat list of placements
// with their pixel geometry, for inspection and for comparing layouts.
package plan

import (
	"image"

	"github.com/fleurfold/fleur/internal/assemble"
	"github.com/fleurfold/fleur/internal/geometry"
	"github.com/fleurfold/fleur/internal/layout"
	"github.com/fleurfold/fleur/internal/raster"
)

// Row is one placement of one square. Rank 0 is the canonical source.
type Row struct {
	Side        string `json:"side" yaml:"side" parquet:"side"`
	Square      int    `json:"square" yaml:"square" parquet:"square"`
	Rank        int    `json:"rank" yaml:"rank" parquet:"rank"`
	Page        string `json:"page" yaml:"page" parquet:"page"`
	Part        string `json:"part" yaml:"part" parquet:"part"`
	Orientation string `json:"orientation" yaml:"orientation" parquet:"orientation"`

	// Crop is the part's region in a nominal source image.
	CropMinX int `json:"crop_min_x" yaml:"crop_min_x" parquet:"crop_min_x"`
	CropMinY int `json:"crop_min_y" yaml:"crop_min_y" parquet:"crop_min_y"`
	CropMaxX int `json:"crop_max_x" yaml:"crop_max_x" parquet:"crop_max_x"`
	CropMaxY int `json:"crop_max_y" yaml:"crop_max_y" parquet:"crop_max_y"`

	// Sheet is where the square's fragment lands on the assembled sheet.
	SheetX int `json:"sheet_x" yaml:"sheet_x" parquet:"sheet_x"`
	SheetY int `json:"sheet_y" yaml:"sheet_y" parquet:"sheet_y"`

	// SheetRotate is set for placements listed "down".
	SheetRotate bool `json:"sheet_rotate" yaml:"sheet_rotate" parquet:"sheet_rotate"`
	// PageRotate is set when the fragment must turn to move between the
	// canonical page and this one.
	PageRotate bool `json:"page_rotate" yaml:"page_rotate" parquet:"page_rotate"`
}

// Crop returns the crop box as a rectangle.
func (r Row) Crop() image.Rectangle {
	return image.Rect(r.CropMinX, r.CropMinY, r.CropMaxX, r.CropMaxY)
}

// Build resolves every placement of both sides, assuming source images
// sized for the given unit length.
func Build(table *layout.Table, unit, margin int) ([]Row, error) {
	model := table.Model()
	asm := assemble.New(table, raster.Memory{}, assemble.WithMargin(margin))
	nominal := func(p geometry.Page) (image.Point, error) {
		return model.PageSize(p, unit)
	}

	var rows []Row
	for _, side := range layout.Sides {
		_, pastes, err := asm.Plan(side, nominal)
		if err != nil {
			return nil, err
		}
		for i, sq := range table.Squares(side) {
			paste := pastes[i]
			canonical := sq.Placements[0]
			for rank, p := range sq.Placements {
				size, err := nominal(p.Page)
				if err != nil {
					return nil, err
				}
				crop, err := model.CropBox(p.Page, p.Part, size.X, size.Y)
				if err != nil {
					return nil, err
				}
				rotate, err := model.NeedsRotation(canonical.Page, p.Page)
				if err != nil {
					return nil, err
				}
				rows = append(rows, Row{
					Side:        string(side),
					Square:      sq.Number,
					Rank:        rank,
					Page:        string(p.Page),
					Part:        string(p.Part),
					Orientation: string(p.Orientation),
					CropMinX:    crop.Min.X,
					CropMinY:    crop.Min.Y,
					CropMaxX:    crop.Max.X,
					CropMaxY:    crop.Max.Y,
					SheetX:      paste.At.X,
					SheetY:      paste.At.Y,
					SheetRotate: p.Orientation == layout.Down,
					PageRotate:  rotate,
				})
			}
		}
	}
	return rows, nil
}
