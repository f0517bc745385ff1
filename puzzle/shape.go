package puzzle

import (
	"fmt"
	"slices"
	"strings"
)

// Shape is a set of cell offsets relative to an anchor. Shapes are kept
// normalized: the smallest row and column are both 0 and offsets are in
// row-major order.
type Shape []Cell

// ParseShape reads a picture of a shape where '#' marks a cell.
func ParseShape(rows []string) (Shape, error) {
	var s Shape
	for r, row := range rows {
		for c, ch := range row {
			switch ch {
			case '#', 'x', 'X':
				s = append(s, Cell{r, c})
			case '.', ' ':
			default:
				return nil, fmt.Errorf("%w: unexpected %q in shape", ErrInvalidPiece, ch)
			}
		}
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: empty shape", ErrInvalidPiece)
	}
	return s.normalize(), nil
}

func (s Shape) normalize() Shape {
	if len(s) == 0 {
		return s
	}
	minR, minC := s[0].Row, s[0].Col
	for _, c := range s {
		minR = min(minR, c.Row)
		minC = min(minC, c.Col)
	}
	out := make(Shape, len(s))
	for i, c := range s {
		out[i] = Cell{c.Row - minR, c.Col - minC}
	}
	slices.SortFunc(out, func(a, b Cell) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
	return out
}

// rotate turns the shape 90 degrees clockwise.
func (s Shape) rotate() Shape {
	out := make(Shape, len(s))
	for i, c := range s {
		out[i] = Cell{c.Col, -c.Row}
	}
	return out.normalize()
}

func (s Shape) reflect() Shape {
	out := make(Shape, len(s))
	for i, c := range s {
		out[i] = Cell{c.Row, -c.Col}
	}
	return out.normalize()
}

func (s Shape) equal(o Shape) bool {
	return slices.Equal(s, o)
}

// Orientations returns the distinct rotations of s, and their mirror
// images if reflect is set. The first entry is s itself.
func (s Shape) Orientations(reflect bool) []Shape {
	base := s.normalize()
	var out []Shape
	add := func(v Shape) {
		for _, o := range out {
			if o.equal(v) {
				return
			}
		}
		out = append(out, v)
	}
	cur := base
	for range 4 {
		add(cur)
		cur = cur.rotate()
	}
	if reflect {
		cur = base.reflect()
		for range 4 {
			add(cur)
			cur = cur.rotate()
		}
	}
	return out
}

func (s Shape) String() string {
	rows, cols := 0, 0
	for _, c := range s {
		rows = max(rows, c.Row+1)
		cols = max(cols, c.Col+1)
	}
	grid := make([][]byte, rows)
	for r := range grid {
		grid[r] = []byte(strings.Repeat(".", cols))
	}
	for _, c := range s {
		grid[c.Row][c.Col] = '#'
	}
	lines := make([]string, rows)
	for r := range grid {
		lines[r] = string(grid[r])
	}
	return strings.Join(lines, "/")
}
