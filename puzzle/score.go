package puzzle

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Placement is one piece put on the board.
type Placement struct {
	Piece   *Piece
	Anchor  Cell
	Variant int
	Cells   CellSet
}

func (p Placement) String() string {
	return fmt.Sprintf("%s@%v", p.Piece.ID, p.Anchor)
}

type Score struct {
	Base           int
	Bonus          int
	Total          int
	AttributeCells map[Attribute]int
}

func (s Score) String() string {
	attrs := slices.Sorted(maps.Keys(s.AttributeCells))
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		parts = append(parts, fmt.Sprintf("%s:%d", a, s.AttributeCells[a]))
	}
	return fmt.Sprintf("%d (base %d, bonus %d) [%s]", s.Total, s.Base, s.Bonus, strings.Join(parts, " "))
}

// Scorer values placements for one role.
type Scorer struct {
	catalog *Catalog
	role    *Role
	bonus   BonusSchedule
}

func NewScorer(c *Catalog, role *Role, bonus BonusSchedule) *Scorer {
	return &Scorer{catalog: c, role: role, bonus: bonus}
}

// counts tracks small-piece cells per role attribute, indexed like
// role.Attributes.
type counts []int

func (s *Scorer) attrIndex(a Attribute) int {
	return slices.Index(s.role.Attributes, a)
}

// contributes returns the role attribute index p adds cells to, or -1.
func (s *Scorer) contributes(p *Piece) int {
	if !p.IsSmall() {
		return -1
	}
	return s.attrIndex(p.Attribute)
}

func (s *Scorer) bonusOf(c counts) int {
	total := 0
	for _, n := range c {
		total += s.bonus.Bonus(n)
	}
	return total
}

// Score computes base, bonus and per-attribute cell counts. Only the
// role's attributes earn a bonus.
func (s *Scorer) Score(placements []Placement) Score {
	sc := Score{AttributeCells: map[Attribute]int{}}
	c := make(counts, len(s.role.Attributes))
	for _, p := range placements {
		sc.Base += s.catalog.PieceValue(p.Piece)
		if p.Piece.IsSmall() {
			sc.AttributeCells[p.Piece.Attribute] += p.Piece.Size()
		}
		if i := s.contributes(p.Piece); i >= 0 {
			c[i] += p.Piece.Size()
		}
	}
	sc.Bonus = s.bonusOf(c)
	sc.Total = sc.Base + sc.Bonus
	return sc
}
