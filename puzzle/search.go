package puzzle

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

type candidate struct {
	anchor  Cell
	variant int
	cells   CellSet
}

// feasible lists every (anchor, variant) where p fits, anchors in
// row-major order.
func feasible(b *Board, open []Cell, p *Piece, used CellSet) []candidate {
	var cs []candidate
	for _, anchor := range open {
		for v, shape := range p.Variants {
			if cells, ok := b.Fits(shape, anchor, used); ok {
				cs = append(cs, candidate{anchor: anchor, variant: v, cells: cells})
			}
		}
	}
	return cs
}

// firstFit places p at the first feasible spot.
func firstFit(b *Board, open []Cell, p *Piece, used CellSet) (candidate, bool) {
	for _, anchor := range open {
		for v, shape := range p.Variants {
			if cells, ok := b.Fits(shape, anchor, used); ok {
				return candidate{anchor: anchor, variant: v, cells: cells}, true
			}
		}
	}
	return candidate{}, false
}

// search is the phase-1 branch and bound over one wishlist. The placed
// stack is pushed and popped around each recursive call; used cells and
// attribute counts are passed by value.
type search struct {
	ctx     context.Context
	board   *Board
	open    []Cell
	scorer  *Scorer
	opts    Options
	pieces  []*Piece
	targets map[Attribute]int

	start     time.Time
	nodes     int
	exhausted bool
	err       error

	placed    []Placement
	best      []Placement
	bestScore int
}

func (s *search) outOfBudget() bool {
	if s.exhausted {
		return true
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		s.exhausted = true
		return true
	}
	if s.nodes > s.opts.MaxNodes || time.Since(s.start) > s.opts.TimeBudget {
		s.exhausted = true
		log.Debug().Int("nodes", s.nodes).Dur("elapsed", time.Since(s.start)).Msg("search-budget-exhausted")
		return true
	}
	return false
}

// upperBound adds every remaining piece that fits the cell budget and the
// unique cap, ignoring geometry. The bonus over the estimated counts is
// added on top of the current score, which already holds the bonus over
// the current counts.
func (s *search) upperBound(score, idx, remainingCells int, c counts, usedUnique int) int {
	if idx >= len(s.pieces) || remainingCells <= 0 {
		return score
	}
	est := score
	ec := slices.Clone(c)
	cellsUsed := 0
	for _, p := range s.pieces[idx:] {
		if p.IsUnique() && usedUnique >= 1 {
			continue
		}
		if cellsUsed+p.Size() > remainingCells {
			continue
		}
		est += s.scorer.catalog.PieceValue(p)
		cellsUsed += p.Size()
		if ai := s.scorer.contributes(p); ai >= 0 {
			ec[ai] += p.Size()
		}
		if p.IsUnique() {
			usedUnique++
		}
	}
	return est + s.scorer.bonusOf(ec)
}

func (s *search) branching(p *Piece, ai int, c counts, n int) int {
	k := s.opts.DefaultPositions
	switch {
	case p.IsUnique():
		k = s.opts.UniquePositions
	case ai >= 0:
		if s.opts.Bonus.Near(c[ai]+p.Size(), s.opts.BoundaryWindow) {
			k = s.opts.BoundaryPositions
		} else {
			k = s.opts.MatchingPositions
		}
	}
	return min(k, n)
}

func (s *search) run() {
	s.start = time.Now()
	s.backtrack(0, 0, 0, make(counts, len(s.scorer.role.Attributes)), 0)
}

func (s *search) backtrack(idx int, used CellSet, base int, c counts, usedUnique int) {
	s.nodes++
	if s.outOfBudget() {
		return
	}
	score := base + s.scorer.bonusOf(c)
	remainingCells := len(s.open) - used.Len()
	ub := s.upperBound(score, idx, remainingCells, c, usedUnique)
	if float64(ub) < float64(s.bestScore)*s.opts.PruneRatio {
		return
	}
	if score > s.bestScore {
		s.bestScore = score
		s.best = slices.Clone(s.placed)
		log.Debug().Int("score", score).Int("placed", len(s.placed)).
			Int("wishlist", len(s.pieces)).Ints("counts", c).Msg("new-best")
	}
	if idx >= len(s.pieces) || remainingCells <= 0 {
		return
	}

	p := s.pieces[idx]
	if p.IsUnique() && usedUnique >= 1 {
		s.backtrack(idx+1, used, base, c, usedUnique)
		return
	}
	ai := s.scorer.contributes(p)
	if ai >= 0 {
		if t, ok := s.targets[p.Attribute]; ok && c[ai] >= t {
			s.backtrack(idx+1, used, base, c, usedUnique)
			return
		}
	}

	cands := feasible(s.board, s.open, p, used)
	if len(cands) == 0 {
		s.backtrack(idx+1, used, base, c, usedUnique)
		return
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return a.anchor.distance() - b.anchor.distance()
	})

	value := s.scorer.catalog.PieceValue(p)
	nextUnique := usedUnique
	if p.IsUnique() {
		nextUnique++
	}
	nextCounts := c
	if ai >= 0 {
		nextCounts = slices.Clone(c)
		nextCounts[ai] += p.Size()
	}
	for _, cand := range cands[:s.branching(p, ai, c, len(cands))] {
		if s.outOfBudget() {
			return
		}
		s.placed = append(s.placed, Placement{Piece: p, Anchor: cand.anchor, Variant: cand.variant, Cells: cand.cells})
		s.backtrack(idx+1, used.Union(cand.cells), base+value, nextCounts, nextUnique)
		s.placed = s.placed[:len(s.placed)-1]
	}

	skip := !Matches(p, s.scorer.role) || (p.Rarity == Rare && len(s.placed) > 0)
	if !p.IsUnique() && skip {
		s.backtrack(idx+1, used, base, c, usedUnique)
	}
}
