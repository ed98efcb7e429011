package layout

import (
	"fmt"
	"os"

	"github.com/fleurfold/fleur/internal/geometry"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a Table. Placements are written as
// "page part orientation", for example "t3 D down".
type File struct {
	FullBleed []string          `yaml:"full_bleed"`
	Grid      map[int]Position  `yaml:"grid"`
	Margins   map[int][]float64 `yaml:"margins"`
	Front     map[int][]string  `yaml:"front"`
	Back      map[int][]string  `yaml:"back"`
}

// Load reads and validates a layout file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates layout YAML.
func Parse(data []byte) (*Table, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	t := &Table{
		Grid:    f.Grid,
		Margins: make(map[int]Offset, len(f.Margins)),
	}
	for _, p := range f.FullBleed {
		t.FullBleed = append(t.FullBleed, geometry.Page(p))
	}
	for n, m := range f.Margins {
		if len(m) != 2 {
			return nil, fmt.Errorf("%w: margin of square %d needs two values", ErrInvalidTable, n)
		}
		t.Margins[n] = Offset{X: m[0], Y: m[1]}
	}
	var err error
	if t.Front, err = parseSquares(f.Front); err != nil {
		return nil, fmt.Errorf("front: %w", err)
	}
	if t.Back, err = parseSquares(f.Back); err != nil {
		return nil, fmt.Errorf("back: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func parseSquares(raw map[int][]string) ([]Square, error) {
	squares := make([]Square, 0, len(raw))
	for n, entries := range raw {
		sq := Square{Number: n}
		for _, e := range entries {
			p, err := ParsePlacement(e)
			if err != nil {
				return nil, fmt.Errorf("square %d: %w", n, err)
			}
			sq.Placements = append(sq.Placements, p)
		}
		squares = append(squares, sq)
	}
	sortSquares(squares)
	return squares, nil
}

// Encode returns t in layout file form.
func (t *Table) Encode() ([]byte, error) {
	f := File{
		Grid:    t.Grid,
		Margins: make(map[int][]float64, len(t.Margins)),
		Front:   encodeSquares(t.Front),
		Back:    encodeSquares(t.Back),
	}
	for _, p := range t.FullBleed {
		f.FullBleed = append(f.FullBleed, string(p))
	}
	for n, o := range t.Margins {
		f.Margins[n] = []float64{o.X, o.Y}
	}
	return yaml.Marshal(&f)
}

func encodeSquares(squares []Square) map[int][]string {
	out := make(map[int][]string, len(squares))
	for _, sq := range squares {
		for _, p := range sq.Placements {
			out[sq.Number] = append(out[sq.Number], p.String())
		}
	}
	return out
}
