// Package geometry classifies fleur pages and resolves which pixel region of a
// page image holds a given part.
//
// Every page image is cut into at most four square parts laid out on a 2x2
// unit grid. Full pages (odd trailing digit) are quartered. Half pages are
// either vertical (two parts stacked top to bottom) or horizontal (two parts
// side by side). Full-bleed pages such as the covers are never subdivided.
package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
)

// ErrClassification is wrapped by every ClassificationError.
var ErrClassification = errors.New("page classification error")

// ClassificationError reports a malformed page identifier or an orientation
// query on a page that has none.
type ClassificationError struct {
	Page   Page
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("page %q: %s", string(e.Page), e.Reason)
}

func (e *ClassificationError) Unwrap() error {
	return ErrClassification
}

// Page is a short page code such as "t3", "h2" or "cover".
type Page string

// Part names one quadrant of a page, or the whole page.
type Part string

const (
	PartA   Part = "A"
	PartB   Part = "B"
	PartC   Part = "C"
	PartD   Part = "D"
	PartAll Part = "ALL"
)

// Parts lists every part in table order.
var Parts = []Part{PartA, PartB, PartC, PartD, PartAll}

var partCoordinates = map[Part]image.Point{
	PartA:   {0, 0},
	PartB:   {1, 0},
	PartC:   {0, 1},
	PartD:   {1, 1},
	PartAll: {0, 0},
}

// ParsePart accepts the part names used in layout files.
func ParsePart(s string) (Part, error) {
	p := Part(s)
	if _, ok := partCoordinates[p]; !ok {
		return "", fmt.Errorf("unknown part %q", s)
	}
	return p, nil
}

// IsFull reports whether page is a full page: its trailing digit is odd.
func IsFull(page Page) (bool, error) {
	s := string(page)
	if s == "" {
		return false, &ClassificationError{Page: page, Reason: "empty identifier"}
	}
	n, err := strconv.Atoi(s[len(s)-1:])
	if err != nil {
		return false, &ClassificationError{Page: page, Reason: "no trailing digit"}
	}
	return n%2 != 0, nil
}

// IsVertical reports whether a half page is vertical. Pages starting with
// 'h' or 'r' are vertical. Full pages have no orientation.
func IsVertical(page Page) (bool, error) {
	full, err := IsFull(page)
	if err != nil {
		return false, err
	}
	if full {
		return false, &ClassificationError{Page: page, Reason: "full page has no orientation"}
	}
	switch page[0] {
	case 'h', 'r':
		return true, nil
	}
	return false, nil
}

// PartCoordinates returns the grid cell of part on page. Vertical half pages
// number their second part C rather than B.
func PartCoordinates(page Page, part Part) (image.Point, error) {
	if part == PartB {
		full, err := IsFull(page)
		if err != nil {
			return image.Point{}, err
		}
		if !full {
			vertical, err := IsVertical(page)
			if err != nil {
				return image.Point{}, err
			}
			if vertical {
				part = PartC
			}
		}
	}
	pt, ok := partCoordinates[part]
	if !ok {
		return image.Point{}, fmt.Errorf("unknown part %q", part)
	}
	return pt, nil
}

// Scale is the fraction of the source image width and height that one part
// occupies.
type Scale struct {
	Width  float64
	Height float64
}

var (
	ScaleWhole      = Scale{1, 1}
	ScaleQuarter    = Scale{0.5, 0.5}
	ScaleVertical   = Scale{1, 0.5}
	ScaleHorizontal = Scale{0.5, 1}
)

// Model carries the few facts about a layout that page identifiers alone
// cannot express.
type Model struct {
	fullBleed map[Page]bool
}

// NewModel returns a Model treating the given pages as full-bleed.
func NewModel(fullBleed ...Page) *Model {
	m := &Model{fullBleed: make(map[Page]bool, len(fullBleed))}
	for _, p := range fullBleed {
		m.fullBleed[p] = true
	}
	return m
}

// IsFullBleed reports whether page is used whole, without subdivision.
func (m *Model) IsFullBleed(page Page) bool {
	return m.fullBleed[page]
}

// ScaleFactors returns the share of the source image one part of page covers.
func (m *Model) ScaleFactors(page Page) (Scale, error) {
	if m.IsFullBleed(page) {
		return ScaleWhole, nil
	}
	full, err := IsFull(page)
	if err != nil {
		return Scale{}, err
	}
	if full {
		return ScaleQuarter, nil
	}
	vertical, err := IsVertical(page)
	if err != nil {
		return Scale{}, err
	}
	if vertical {
		return ScaleVertical, nil
	}
	return ScaleHorizontal, nil
}

// PartSize is the pixel size of one part of a width x height image of page.
func (m *Model) PartSize(page Page, width, height int) (image.Point, error) {
	s, err := m.ScaleFactors(page)
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(
		int(math.Floor(float64(width)*s.Width)),
		int(math.Floor(float64(height)*s.Height)),
	), nil
}

// CropBox returns the pixel rectangle holding part in a width x height image
// of page.
func (m *Model) CropBox(page Page, part Part, width, height int) (image.Rectangle, error) {
	size, err := m.PartSize(page, width, height)
	if err != nil {
		return image.Rectangle{}, err
	}
	var at image.Point
	if !m.IsFullBleed(page) {
		at, err = PartCoordinates(page, part)
		if err != nil {
			return image.Rectangle{}, err
		}
	}
	origin := image.Pt(at.X*size.X, at.Y*size.Y)
	return image.Rectangle{Min: origin, Max: origin.Add(size)}, nil
}

// PageSize returns the logical size of page when each part is unit pixels on
// a side.
func (m *Model) PageSize(page Page, unit int) (image.Point, error) {
	if m.IsFullBleed(page) {
		return image.Pt(2*unit, 2*unit), nil
	}
	full, err := IsFull(page)
	if err != nil {
		return image.Point{}, err
	}
	if full {
		return image.Pt(2*unit, 2*unit), nil
	}
	vertical, err := IsVertical(page)
	if err != nil {
		return image.Point{}, err
	}
	if vertical {
		return image.Pt(unit, 2*unit), nil
	}
	return image.Pt(2*unit, unit), nil
}

// NeedsRotation reports whether content copied between a and b must be
// turned 180 degrees: both are half pages and exactly one is vertical.
func (m *Model) NeedsRotation(a, b Page) (bool, error) {
	if m.IsFullBleed(a) || m.IsFullBleed(b) {
		return false, nil
	}
	va, ok, err := halfOrientation(a)
	if err != nil || !ok {
		return false, err
	}
	vb, ok, err := halfOrientation(b)
	if err != nil || !ok {
		return false, err
	}
	return va != vb, nil
}

// halfOrientation returns the orientation of a half page; ok is false for
// full pages.
func halfOrientation(page Page) (vertical, ok bool, err error) {
	full, err := IsFull(page)
	if err != nil || full {
		return false, false, err
	}
	vertical, err = IsVertical(page)
	return vertical, err == nil, err
}

// Validate checks that page classifies without error.
func (m *Model) Validate(page Page) error {
	if m.IsFullBleed(page) {
		return nil
	}
	_, err := m.ScaleFactors(page)
	return err
}
