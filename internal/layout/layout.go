// Package layout holds the declarative tables describing where every part of
// every page lands on the two printed sheets.
package layout

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"github.com/fleurfold/fleur/internal/geometry"
)

var (
	ErrInvalidTable  = errors.New("invalid layout table")
	ErrMissingSource = errors.New("missing source image")
	ErrUnevenMargin  = errors.New("folding margin does not divide evenly")
)

// MissingSourceError identifies the square whose content could not be found.
type MissingSourceError struct {
	Side   Side
	Square int
	Pages  []geometry.Page
	Part   geometry.Part
	Dir    string
}

func (e *MissingSourceError) Error() string {
	pages := make([]string, len(e.Pages))
	for i, p := range e.Pages {
		pages[i] = string(p)
	}
	msg := fmt.Sprintf("%s square %d: no source image for %s in %s", e.Side, e.Square, strings.Join(pages, ", "), e.Dir)
	if e.Part != "" {
		msg += fmt.Sprintf(" (part %s)", e.Part)
	}
	return msg
}

func (e *MissingSourceError) Unwrap() error {
	return ErrMissingSource
}

type Side string

const (
	Front Side = "front"
	Back  Side = "back"
)

// Sides lists both sheet sides in output order.
var Sides = []Side{Front, Back}

type Orientation string

const (
	Up   Orientation = "up"
	Down Orientation = "down"
)

// Placement puts one part of one page onto a grid square.
type Placement struct {
	Page        geometry.Page
	Part        geometry.Part
	Orientation Orientation
}

func (p Placement) String() string {
	return fmt.Sprintf("%s %s %s", p.Page, p.Part, p.Orientation)
}

// ParsePlacement reads the "page part orientation" form used in layout files.
func ParsePlacement(s string) (Placement, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Placement{}, fmt.Errorf("placement %q: expected \"page part orientation\"", s)
	}
	part, err := geometry.ParsePart(fields[1])
	if err != nil {
		return Placement{}, fmt.Errorf("placement %q: %w", s, err)
	}
	o := Orientation(fields[2])
	if o != Up && o != Down {
		return Placement{}, fmt.Errorf("placement %q: unknown orientation %q", s, fields[2])
	}
	return Placement{Page: geometry.Page(fields[0]), Part: part, Orientation: o}, nil
}

// Square is one grid square and every page part printed on it. The first
// placement is the canonical source.
type Square struct {
	Number     int
	Placements []Placement
}

// Position is a square's cell in the 4x4 sheet grid. Span is 2 for the
// double-size centre square.
type Position struct {
	Col  int `yaml:"col"`
	Row  int `yaml:"row"`
	Span int `yaml:"span,omitempty"`
}

// Origin returns the top-left pixel of the square on an unspaced grid.
func (p Position) Origin(unit int) image.Point {
	return image.Pt(p.Col*unit, p.Row*unit)
}

// Size returns the nominal pixel size of the square.
func (p Position) Size(unit int) int {
	if p.Span > 1 {
		return p.Span * unit
	}
	return unit
}

// Offset is a folding-margin offset in multiples of the margin.
type Offset struct {
	X float64
	Y float64
}

// Pixels scales the offset by margin pixels. Fractions are truncated; see
// Exact.
func (o Offset) Pixels(margin int) image.Point {
	return image.Pt(int(o.X*float64(margin)), int(o.Y*float64(margin)))
}

// Exact reports whether the offset scales to a whole number of pixels.
func (o Offset) Exact(margin int) bool {
	x, y := o.X*float64(margin), o.Y*float64(margin)
	return x == math.Trunc(x) && y == math.Trunc(y)
}

// Table is a complete sheet layout.
type Table struct {
	FullBleed []geometry.Page
	Front     []Square
	Back      []Square
	Grid      map[int]Position
	Margins   map[int]Offset
}

// Squares returns the squares of side in ascending order.
func (t *Table) Squares(side Side) []Square {
	if side == Back {
		return t.Back
	}
	return t.Front
}

// Model returns the geometry model for the table's pages.
func (t *Table) Model() *geometry.Model {
	return geometry.NewModel(t.FullBleed...)
}

// Validate checks that every square can be placed and every page classifies.
func (t *Table) Validate() error {
	model := t.Model()
	for _, side := range Sides {
		squares := t.Squares(side)
		if len(squares) == 0 {
			return fmt.Errorf("%w: %s has no squares", ErrInvalidTable, side)
		}
		seen := make(map[int]bool, len(squares))
		for _, sq := range squares {
			if seen[sq.Number] {
				return fmt.Errorf("%w: %s square %d listed twice", ErrInvalidTable, side, sq.Number)
			}
			seen[sq.Number] = true
			if len(sq.Placements) == 0 {
				return fmt.Errorf("%w: %s square %d has no placements", ErrInvalidTable, side, sq.Number)
			}
			if _, ok := t.Grid[sq.Number]; !ok {
				return fmt.Errorf("%w: %s square %d has no grid position", ErrInvalidTable, side, sq.Number)
			}
			if _, ok := t.Margins[sq.Number]; !ok {
				return fmt.Errorf("%w: %s square %d has no margin offset", ErrInvalidTable, side, sq.Number)
			}
			for _, p := range sq.Placements {
				if err := model.Validate(p.Page); err != nil {
					return fmt.Errorf("%w: %s square %d: %w", ErrInvalidTable, side, sq.Number, err)
				}
				if _, err := geometry.PartCoordinates(p.Page, p.Part); err != nil && !model.IsFullBleed(p.Page) {
					return fmt.Errorf("%w: %s square %d: %w", ErrInvalidTable, side, sq.Number, err)
				}
			}
		}
	}
	return nil
}

// CheckMargin rejects a folding margin that would place some square a
// fraction of a pixel off its fold. With the default table, whose cover
// sits 1.5 margins in, the margin must be even.
func (t *Table) CheckMargin(margin int) error {
	numbers := make([]int, 0, len(t.Margins))
	for n := range t.Margins {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		if o := t.Margins[n]; !o.Exact(margin) {
			return fmt.Errorf("%w: square %d offset (%g,%g) times %d px", ErrUnevenMargin, n, o.X, o.Y, margin)
		}
	}
	return nil
}

// Pages returns every distinct page named by the table, sorted.
func (t *Table) Pages() []geometry.Page {
	set := make(map[geometry.Page]bool)
	for _, side := range Sides {
		for _, sq := range t.Squares(side) {
			for _, p := range sq.Placements {
				set[p.Page] = true
			}
		}
	}
	pages := make([]geometry.Page, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

func sortSquares(squares []Square) {
	sort.Slice(squares, func(i, j int) bool { return squares[i].Number < squares[j].Number })
}
