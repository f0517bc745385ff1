package puzzle

import (
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// maxTargetCells caps how far the fill step raises an attribute target.
const maxTargetCells = 30

// pools splits an inventory by how it relates to the role.
type pools struct {
	matching    []*Piece
	nonMatching []*Piece
	excluded    []*Piece
	uniques     []*Piece
}

func newPools(pieces []*Piece, role *Role) *pools {
	pl := &pools{}
	for _, p := range pieces {
		switch {
		case Matches(p, role):
			pl.matching = append(pl.matching, p)
		case p.IsUnique():
			pl.excluded = append(pl.excluded, p)
		default:
			pl.nonMatching = append(pl.nonMatching, p)
		}
	}
	// Role-specific uniques come before wildcard ones.
	own := lo.Filter(pl.matching, func(p *Piece, _ int) bool {
		return p.IsUnique() && p.Attribute == Attribute(role.Name)
	})
	wild := lo.Filter(pl.matching, func(p *Piece, _ int) bool {
		return p.IsUnique() && p.Attribute != Attribute(role.Name)
	})
	pl.uniques = append(own, wild...)
	return pl
}

func (pl *pools) isMatching(p *Piece) bool {
	return slices.Contains(pl.matching, p)
}

// byValue orders pieces by rarity weight, then size, both descending.
func byValue(c *Catalog) func(a, b *Piece) int {
	return func(a, b *Piece) int {
		if wa, wb := c.Weight(a.Rarity), c.Weight(b.Rarity); wa != wb {
			return wb - wa
		}
		return b.Size() - a.Size()
	}
}

// Wishlist is the set of matching pieces the search will try to place,
// in the order it tries them. It ignores geometry.
type Wishlist struct {
	Priority []Attribute
	Unique   *Piece
	Pieces   []*Piece
	Targets  map[Attribute]int
	Cells    int
	Expected int
}

func (w *Wishlist) add(p *Piece, value int) {
	w.Pieces = append(w.Pieces, p)
	w.Cells += p.Size()
	w.Expected += value
}

type combination struct {
	pieces []*Piece
	cells  int
	base   int
	bonus  int
}

func (c combination) total() int {
	return c.base + c.bonus
}

// bestCombination greedily picks small pieces of attr, most valuable
// first, without going over target cells.
func (o *Optimizer) bestCombination(pl *pools, attr Attribute, target int, excluded map[string]bool) combination {
	candidates := lo.Filter(pl.matching, func(p *Piece, _ int) bool {
		return p.IsSmall() && p.Attribute == attr && !excluded[p.ID]
	})
	slices.SortStableFunc(candidates, byValue(o.catalog))
	var c combination
	for _, p := range candidates {
		if c.cells >= target {
			break
		}
		if c.cells+p.Size() <= target {
			c.pieces = append(c.pieces, p)
			c.cells += p.Size()
			c.base += o.catalog.PieceValue(p)
		}
	}
	c.bonus = o.opts.Bonus.Bonus(c.cells)
	return c
}

type targetOption struct {
	target int
	combo  combination
}

// wishlist plans one scenario: the best unique, then a combination per
// attribute in priority order, then leftover matching pieces.
func (o *Optimizer) wishlist(pl *pools, priority []Attribute, openCells int) *Wishlist {
	w := &Wishlist{Priority: priority, Targets: map[Attribute]int{}}
	used := map[string]bool{}
	lowest := o.opts.Bonus.Lowest()

	bestValue := 0
	for _, p := range pl.uniques {
		if v := o.catalog.PieceValue(p); v > bestValue {
			bestValue = v
			w.Unique = p
		}
	}
	if w.Unique != nil {
		w.add(w.Unique, bestValue)
		used[w.Unique.ID] = true
	}

	for _, attr := range priority {
		var options []targetOption
		for _, target := range o.opts.Bonus.Descending() {
			c := o.bestCombination(pl, attr, target, nil)
			if c.cells >= lowest {
				options = append(options, targetOption{target: target, combo: c})
			}
		}
		if len(options) == 0 {
			continue
		}
		slices.SortStableFunc(options, func(a, b targetOption) int {
			return b.combo.total() - a.combo.total()
		})
		remaining := openCells - w.Cells
		if remaining < lowest {
			log.Debug().Int("remaining", remaining).Str("attribute", string(attr)).
				Msg("not-enough-cells-for-attribute")
			break
		}
		var best *combination
		for _, opt := range options {
			avail := lo.SumBy(opt.combo.pieces, func(p *Piece) int {
				if used[p.ID] {
					return 0
				}
				return p.Size()
			})
			if avail < lowest || avail > remaining {
				continue
			}
			re := o.bestCombination(pl, attr, min(opt.target, remaining), used)
			if re.cells >= lowest && (best == nil || re.total() > best.total()) {
				best = &re
			}
		}
		if best == nil {
			log.Debug().Str("attribute", string(attr)).Msg("no-combination-fits")
			continue
		}
		w.Targets[attr] = best.cells
		for _, p := range best.pieces {
			w.add(p, o.catalog.PieceValue(p))
			used[p.ID] = true
		}
		w.Expected += best.bonus
	}

	remaining := openCells - w.Cells
	if remaining > 0 {
		unused := lo.Filter(pl.matching, func(p *Piece, _ int) bool { return !used[p.ID] })
		slices.SortStableFunc(unused, byValue(o.catalog))
		filled := 0
		for _, p := range unused {
			if filled+p.Size() > remaining {
				continue
			}
			w.add(p, o.catalog.PieceValue(p))
			used[p.ID] = true
			filled += p.Size()
			if t, ok := w.Targets[p.Attribute]; ok && p.IsSmall() {
				w.Targets[p.Attribute] = min(t+p.Size(), maxTargetCells)
			}
		}
	}

	log.Debug().
		Interface("priority", priority).
		Int("pieces", len(w.Pieces)).
		Int("cells", w.Cells).
		Int("open", openCells).
		Int("expected", w.Expected).
		Interface("targets", w.Targets).
		Msg("wishlist")
	return w
}
