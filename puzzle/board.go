package puzzle

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

const (
	BoardSize = 7
	NumCells  = BoardSize * BoardSize
)

var ErrInvalidBoard = errors.New("invalid board")

// Cell is a board coordinate, or a shape offset relative to an anchor.
type Cell struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

func (c Cell) inBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

func (c Cell) index() int {
	return c.Row*BoardSize + c.Col
}

// distance is the Manhattan distance to the center of the board.
func (c Cell) distance() int {
	center := BoardSize / 2
	return abs(c.Row-center) + abs(c.Col-center)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// CellSet is a set of board cells. It is a value type; copying it copies
// the set.
type CellSet uint64

func (s CellSet) Has(c Cell) bool {
	return c.inBounds() && s&(1<<c.index()) != 0
}

func (s CellSet) With(c Cell) CellSet {
	return s | 1<<c.index()
}

func (s CellSet) Union(o CellSet) CellSet {
	return s | o
}

func (s CellSet) Intersects(o CellSet) bool {
	return s&o != 0
}

func (s CellSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Cells lists the members in row-major order.
func (s CellSet) Cells() []Cell {
	cells := make([]Cell, 0, s.Len())
	for v := uint64(s); v != 0; v &= v - 1 {
		i := bits.TrailingZeros64(v)
		cells = append(cells, Cell{Row: i / BoardSize, Col: i % BoardSize})
	}
	return cells
}

// Board is the open/blocked mask of the 7x7 grid.
type Board struct {
	open CellSet
}

// NewBoard builds a board from a mask where true means open.
func NewBoard(mask [BoardSize][BoardSize]bool) *Board {
	b := &Board{}
	for r := range mask {
		for c := range mask[r] {
			if mask[r][c] {
				b.open = b.open.With(Cell{r, c})
			}
		}
	}
	return b
}

func FullBoard() *Board {
	var mask [BoardSize][BoardSize]bool
	for r := range mask {
		for c := range mask[r] {
			mask[r][c] = true
		}
	}
	return NewBoard(mask)
}

// ParseBoard reads seven rows of seven characters. '.', 'o' and '1' are
// open; '#', 'x' and '0' are blocked.
func ParseBoard(rows []string) (*Board, error) {
	if len(rows) != BoardSize {
		return nil, fmt.Errorf("%w: %d rows, need %d", ErrInvalidBoard, len(rows), BoardSize)
	}
	var mask [BoardSize][BoardSize]bool
	for r, row := range rows {
		row = strings.TrimSpace(row)
		if len(row) != BoardSize {
			return nil, fmt.Errorf("%w: row %d has %d columns", ErrInvalidBoard, r, len(row))
		}
		for c, ch := range strings.ToLower(row) {
			switch ch {
			case '.', 'o', '1':
				mask[r][c] = true
			case '#', 'x', '0':
			default:
				return nil, fmt.Errorf("%w: unexpected %q at %v", ErrInvalidBoard, ch, Cell{r, c})
			}
		}
	}
	return NewBoard(mask), nil
}

func (b *Board) Open() CellSet {
	return b.open
}

func (b *Board) IsOpen(c Cell) bool {
	return b.open.Has(c)
}

func (b *Board) OpenCount() int {
	return b.open.Len()
}

// OpenCells lists the open cells in row-major order.
func (b *Board) OpenCells() []Cell {
	return b.open.Cells()
}

// Fits translates shape to anchor and returns the covered cells if every
// one of them is in bounds, open, and not in used.
func (b *Board) Fits(shape Shape, anchor Cell, used CellSet) (CellSet, bool) {
	var covered CellSet
	for _, off := range shape {
		c := Cell{Row: anchor.Row + off.Row, Col: anchor.Col + off.Col}
		if !c.inBounds() || !b.open.Has(c) || used.Has(c) {
			return 0, false
		}
		covered = covered.With(c)
	}
	return covered, true
}

func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if b.open.Has(Cell{r, c}) {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('#')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
