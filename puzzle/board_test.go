package puzzle

import (
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func mustShape(t *testing.T, rows ...string) Shape {
	t.Helper()
	s, err := ParseShape(rows)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustPiece(t *testing.T, id string, r Rarity, attr Attribute, rotate bool, rows ...string) *Piece {
	t.Helper()
	p, err := NewPiece(id, r, attr, mustShape(t, rows...), rotate)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseBoard(t *testing.T) {
	is := is.New(t)
	b, err := ParseBoard([]string{
		"#######",
		"#.....#",
		"#.....#",
		"#.....#",
		"#.....#",
		"#.....#",
		"#######",
	})
	is.NoErr(err)
	is.Equal(b.OpenCount(), 25)
	is.True(b.IsOpen(Cell{1, 1}))
	is.True(!b.IsOpen(Cell{0, 3}))
	is.Equal(b.OpenCells()[0], Cell{1, 1})

	_, err = ParseBoard([]string{"......."})
	is.True(errors.Is(err, ErrInvalidBoard))
	_, err = ParseBoard([]string{"..?....", ".......", ".......", ".......", ".......", ".......", "......."})
	is.True(errors.Is(err, ErrInvalidBoard))
	is.Equal(FullBoard().OpenCount(), NumCells)
}

func TestCellSet(t *testing.T) {
	is := is.New(t)
	var s CellSet
	s = s.With(Cell{0, 0}).With(Cell{6, 6}).With(Cell{3, 2})
	is.Equal(s.Len(), 3)
	is.True(s.Has(Cell{3, 2}))
	is.True(!s.Has(Cell{2, 3}))
	is.True(!s.Has(Cell{7, 0}))
	is.Equal(s.Cells(), []Cell{{0, 0}, {3, 2}, {6, 6}})

	o := CellSet(0).With(Cell{6, 6})
	is.True(s.Intersects(o))
	is.Equal(s.Union(o), s)
}

func TestFits(t *testing.T) {
	is := is.New(t)
	b, err := ParseBoard([]string{
		"..#....",
		".......",
		".......",
		".......",
		".......",
		".......",
		".......",
	})
	is.NoErr(err)
	bar := mustShape(t, "###")

	cells, ok := b.Fits(bar, Cell{1, 0}, 0)
	is.True(ok)
	is.Equal(cells.Len(), 3)

	_, ok = b.Fits(bar, Cell{0, 0}, 0) // blocked cell
	is.True(!ok)
	_, ok = b.Fits(bar, Cell{3, 5}, 0) // off the edge
	is.True(!ok)
	_, ok = b.Fits(bar, Cell{1, 0}, CellSet(0).With(Cell{1, 2})) // occupied
	is.True(!ok)
}

func TestOrientations(t *testing.T) {
	is := is.New(t)
	is.Equal(len(mustShape(t, "##", "##").Orientations(true)), 1)
	is.Equal(len(mustShape(t, "#####").Orientations(true)), 2)
	is.Equal(len(mustShape(t, "#.", "#.", "##").Orientations(false)), 4)
	is.Equal(len(mustShape(t, "#.", "#.", "##").Orientations(true)), 8)
	is.Equal(len(mustShape(t, ".#.", "###").Orientations(true)), 4)

	s := mustShape(t, "..#", "###")
	is.Equal(s[0], Cell{0, 2})
	is.Equal(s.String(), "..#/###")
}

func TestBonusSchedule(t *testing.T) {
	is := is.New(t)
	b := DefaultBonus()
	is.NoErr(b.Validate())
	prev := 0
	for cells := 0; cells <= 30; cells++ {
		got := b.Bonus(cells)
		is.True(got >= prev)
		if got != prev {
			is.True(cells == 9 || cells == 12 || cells == 15 || cells == 18 || cells == 21)
		}
		prev = got
	}
	is.Equal(b.Bonus(8), 0)
	is.Equal(b.Bonus(21), 1325)
	is.Equal(b.Bonus(29), 1325)
	is.True(b.Near(19, 3))
	is.True(!b.Near(4, 3))

	is.True(errors.Is(BonusSchedule{Thresholds: []int{9, 9}, Increment: 1}.Validate(), ErrInvalidBonus))
	is.True(errors.Is(BonusSchedule{}.Validate(), ErrInvalidBonus))
}
