package layout

import "github.com/fleurfold/fleur/internal/geometry"

// Page codes of the fleur puzzle.
const (
	hv1    geometry.Page = "hv1"
	h2     geometry.Page = "h2"
	h3     geometry.Page = "h3"
	h4     geometry.Page = "h4"
	r1     geometry.Page = "r1"
	r2     geometry.Page = "r2"
	r3     geometry.Page = "r3"
	r4     geometry.Page = "r4"
	t1     geometry.Page = "t1"
	t2     geometry.Page = "t2"
	t3     geometry.Page = "t3"
	t4     geometry.Page = "t4"
	v2     geometry.Page = "v2"
	v3     geometry.Page = "v3"
	v4     geometry.Page = "v4"
	cover  geometry.Page = "cover"
	cover2 geometry.Page = "cover2"
)

const (
	a   = geometry.PartA
	b   = geometry.PartB
	c   = geometry.PartC
	d   = geometry.PartD
	all = geometry.PartAll
)

func pl(page geometry.Page, part geometry.Part, o Orientation) Placement {
	return Placement{Page: page, Part: part, Orientation: o}
}

// Default returns the fleur layout. The square numbering follows the
// unfolded sheet:
//
//	 1  2  3  4
//	12 13     5
//	11        6
//	10  9  8  7
//
// Square 13 is the cover and covers the 2x2 block of cells at (1,1).
func Default() *Table {
	return &Table{
		FullBleed: []geometry.Page{cover, cover2},
		Front: []Square{
			{1, []Placement{pl(t3, d, Down), pl(v3, c, Down)}},
			{2, []Placement{pl(h2, a, Down), pl(v2, a, Up)}},
			{3, []Placement{pl(h3, b, Down), pl(r3, b, Down)}},
			{4, []Placement{pl(h3, a, Down), pl(r3, c, Down)}},
			{5, []Placement{pl(h4, a, Up), pl(v2, b, Up)}},
			{6, []Placement{pl(t3, c, Down), pl(v3, d, Down)}},
			{7, []Placement{pl(t3, a, Down), pl(v3, b, Down)}},
			{8, []Placement{pl(h4, a, Down), pl(v2, b, Up)}},
			{9, []Placement{pl(h3, c, Down), pl(r3, a, Down)}},
			{10, []Placement{pl(h3, d, Down), pl(r3, b, Down)}},
			{11, []Placement{pl(h2, b, Up), pl(v4, a, Up)}},
			{12, []Placement{pl(t3, b, Down), pl(v3, a, Down)}},
			{13, []Placement{pl(cover, all, Up)}},
		},
		Back: []Square{
			{1, []Placement{pl(r4, b, Down)}},
			{2, []Placement{pl(t1, a, Down), pl(hv1, b, Down), pl(r1, d, Down)}},
			{3, []Placement{pl(t2, a, Up)}},
			{4, []Placement{pl(t2, b, Up)}},
			{5, []Placement{pl(t1, b, Up), pl(hv1, a, Up), pl(r1, c, Up)}},
			{6, []Placement{pl(r2, b, Down)}},
			{7, []Placement{pl(r2, a, Down)}},
			{8, []Placement{pl(t1, d, Down), pl(hv1, c, Down), pl(r1, a, Down)}},
			{9, []Placement{pl(t4, b, Up)}},
			{10, []Placement{pl(t4, a, Up)}},
			{11, []Placement{pl(t1, c, Up), pl(hv1, d, Up), pl(r1, b, Up)}},
			{12, []Placement{pl(r4, a, Down)}},
			{13, []Placement{pl(cover2, all, Up)}},
		},
		Grid: map[int]Position{
			1: {Col: 0, Row: 0}, 2: {Col: 1, Row: 0}, 3: {Col: 2, Row: 0}, 4: {Col: 3, Row: 0},
			12: {Col: 0, Row: 1}, 13: {Col: 1, Row: 1, Span: 2}, 5: {Col: 3, Row: 1},
			11: {Col: 0, Row: 2}, 6: {Col: 3, Row: 2},
			10: {Col: 0, Row: 3}, 9: {Col: 1, Row: 3}, 8: {Col: 2, Row: 3}, 7: {Col: 3, Row: 3},
		},
		// One margin per fold crossed from the top-left corner; the cover sits
		// midway between the folds around it.
		Margins: map[int]Offset{
			1: {0, 0}, 2: {1, 0}, 3: {2, 0}, 4: {3, 0},
			12: {0, 1}, 13: {1.5, 1.5}, 5: {3, 1},
			11: {0, 2}, 6: {3, 2},
			10: {0, 3}, 9: {1, 3}, 8: {2, 3}, 7: {3, 3},
		},
	}
}
