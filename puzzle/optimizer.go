// Package puzzle places shaped pieces on a 7x7 board to maximize rarity
// score plus attribute bonuses for a role. The search is a bounded branch
// and bound run once per attribute priority order.
package puzzle

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/lapidary/cache"
	"github.com/domino14/lapidary/config"
)

var ErrInvalidOptions = errors.New("invalid optimizer options")

type Options struct {
	// MaxNodes and TimeBudget bound each scenario's search.
	MaxNodes   int
	TimeBudget time.Duration
	// PruneRatio drops a branch whose upper bound is below this fraction
	// of the best score so far.
	PruneRatio float64
	Bonus      BonusSchedule

	UniquePositions   int
	BoundaryPositions int
	MatchingPositions int
	DefaultPositions  int
	BoundaryWindow    int

	Threads int
	Memoize bool
}

func DefaultOptions() Options {
	return Options{
		MaxNodes:          1_000_000,
		TimeBudget:        15 * time.Second,
		PruneRatio:        0.95,
		Bonus:             DefaultBonus(),
		UniquePositions:   8,
		BoundaryPositions: 10,
		MatchingPositions: 7,
		DefaultPositions:  5,
		BoundaryWindow:    3,
		Threads:           1,
	}
}

// OptionsFromConfig starts from the defaults and applies the puzzle keys.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	o := DefaultOptions()
	o.MaxNodes = cfg.GetInt(config.ConfigPuzzleMaxNodes)
	o.TimeBudget = cfg.GetDuration(config.ConfigPuzzleTimeBudget)
	o.PruneRatio = cfg.GetFloat64(config.ConfigPuzzlePruneRatio)
	o.Threads = cfg.GetInt(config.ConfigPuzzleThreads)
	o.Memoize = cfg.GetBool(config.ConfigPuzzleMemoize)
	o.Bonus = BonusSchedule{
		Thresholds: cfg.GetIntSlice(config.ConfigBonusThresholds),
		Increment:  cfg.GetInt(config.ConfigBonusIncrement),
	}
	return o, o.Validate()
}

func (o Options) Validate() error {
	switch {
	case o.MaxNodes <= 0:
		return fmt.Errorf("%w: max nodes %d", ErrInvalidOptions, o.MaxNodes)
	case o.TimeBudget <= 0:
		return fmt.Errorf("%w: time budget %v", ErrInvalidOptions, o.TimeBudget)
	case o.PruneRatio < 0 || o.PruneRatio > 1:
		return fmt.Errorf("%w: prune ratio %v", ErrInvalidOptions, o.PruneRatio)
	case o.UniquePositions < 1 || o.BoundaryPositions < 1 || o.MatchingPositions < 1 || o.DefaultPositions < 1:
		return fmt.Errorf("%w: position caps must be positive", ErrInvalidOptions)
	case o.BoundaryWindow < 0:
		return fmt.Errorf("%w: boundary window %d", ErrInvalidOptions, o.BoundaryWindow)
	}
	return o.Bonus.Validate()
}

// Request is one optimization problem.
type Request struct {
	Board  *Board
	Pieces []*Piece
	Role   string
}

// Fingerprint identifies a request by its board, role and inventory.
func (r Request) Fingerprint() uint64 {
	var open uint64
	if r.Board != nil {
		open = uint64(r.Board.Open())
	}
	parts := [][]byte{binary.LittleEndian.AppendUint64(nil, open), []byte(r.Role)}
	for _, p := range r.Pieces {
		parts = append(parts, fmt.Appendf(nil, "%s|%d|%s|%v", p.ID, p.Rarity, p.Attribute, p.Variants))
	}
	return cache.Key(parts...)
}

type Result struct {
	Placements []Placement
	Score      Score
	// Scenario indexes the winning priority order among Scenarios(role).
	Scenario  int
	Priority  []Attribute
	Wishlist  *Wishlist
	Nodes     int
	Elapsed   time.Duration
	Exhausted bool
}

func emptyResult() *Result {
	return &Result{Score: Score{AttributeCells: map[Attribute]int{}}}
}

// clone copies everything a caller could mutate. Pieces are shared.
func (r *Result) clone() *Result {
	out := *r
	out.Placements = slices.Clone(r.Placements)
	out.Priority = slices.Clone(r.Priority)
	out.Score.AttributeCells = maps.Clone(r.Score.AttributeCells)
	if r.Wishlist != nil {
		w := *r.Wishlist
		w.Priority = slices.Clone(w.Priority)
		w.Pieces = slices.Clone(w.Pieces)
		w.Targets = maps.Clone(w.Targets)
		out.Wishlist = &w
	}
	return &out
}

// Covered is the union of all placed cells.
func (r *Result) Covered() CellSet {
	return cellsOf(r.Placements)
}

func cellsOf(ps []Placement) CellSet {
	var s CellSet
	for _, p := range ps {
		s = s.Union(p.Cells)
	}
	return s
}

type Optimizer struct {
	catalog *Catalog
	opts    Options
}

func NewOptimizer(c *Catalog, opts Options) (*Optimizer, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no catalog", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{catalog: c, opts: opts}, nil
}

func (o *Optimizer) Options() Options {
	return o.opts
}

func (o *Optimizer) Catalog() *Catalog {
	return o.catalog
}

// Scenarios returns one priority order per role attribute: that attribute
// first, the rest in role order.
func Scenarios(role *Role) [][]Attribute {
	out := make([][]Attribute, 0, len(role.Attributes))
	for _, primary := range role.Attributes {
		order := []Attribute{primary}
		for _, a := range role.Attributes {
			if a != primary {
				order = append(order, a)
			}
		}
		out = append(out, order)
	}
	return out
}

func (o *Optimizer) prepare(req Request) (*Role, *pools, error) {
	if req.Board == nil {
		return nil, nil, fmt.Errorf("%w: no board", ErrInvalidBoard)
	}
	role, err := o.catalog.Role(req.Role)
	if err != nil {
		return nil, nil, err
	}
	if err := o.catalog.ValidatePieces(req.Pieces); err != nil {
		return nil, nil, err
	}
	pl := newPools(req.Pieces, role)
	log.Debug().
		Str("role", role.Name).
		Int("open", req.Board.OpenCount()).
		Interface("matching", lo.CountValuesBy(pl.matching, func(p *Piece) string {
			if p.IsUnique() {
				return "unique(" + string(p.Attribute) + ")"
			}
			return string(p.Attribute)
		})).
		Interface("non-matching", lo.CountValuesBy(pl.nonMatching, func(p *Piece) Attribute { return p.Attribute })).
		Strs("excluded-uniques", lo.Map(pl.excluded, func(p *Piece, _ int) string { return p.ID })).
		Msg("piece-pools")
	return role, pl, nil
}

func (o *Optimizer) cacheKey(req Request) uint64 {
	return cache.Key(
		binary.LittleEndian.AppendUint64(nil, req.Fingerprint()),
		fmt.Appendf(nil, "%+v", o.opts),
		o.catalog.fingerprint(),
	)
}

// Optimize runs every scenario and returns the best result. Running out of
// search budget is not an error; it sets Exhausted. If ctx is done, the
// best result found so far is returned along with ctx's error.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	role, pl, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	var key uint64
	if o.opts.Memoize {
		key = o.cacheKey(req)
		if obj, ok := cache.Get(key); ok {
			log.Debug().Uint64("key", key).Msg("optimizer-cache-hit")
			return obj.(*Result).clone(), nil
		}
	}
	if req.Board.OpenCount() == 0 {
		return emptyResult(), nil
	}

	start := time.Now()
	scenarios := Scenarios(role)
	results := make([]*Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.opts.Threads, 1))
	for i, priority := range scenarios {
		g.Go(func() error {
			r, err := o.runScenario(gctx, req.Board, role, pl, priority)
			if r != nil {
				r.Scenario = i
			}
			results[i] = r
			return err
		})
	}
	err = g.Wait()

	best := pick(results)
	best.Elapsed = time.Since(start)
	log.Info().
		Int("score", best.Score.Total).
		Int("scenario", best.Scenario+1).
		Interface("priority", best.Priority).
		Int("pieces", len(best.Placements)).
		Int("nodes", best.Nodes).
		Bool("exhausted", best.Exhausted).
		Dur("elapsed", best.Elapsed).
		Msg("optimized")
	if err == nil && o.opts.Memoize && !best.Exhausted {
		cache.Put(key, best.clone())
	}
	return best, err
}

// pick keeps the first result with the highest total.
func pick(results []*Result) *Result {
	var best *Result
	nodes := 0
	exhausted := false
	for _, r := range results {
		if r == nil {
			continue
		}
		nodes += r.Nodes
		exhausted = exhausted || r.Exhausted
		if best == nil || r.Score.Total > best.Score.Total {
			best = r
		}
	}
	if best == nil {
		return emptyResult()
	}
	out := *best
	out.Nodes = nodes
	out.Exhausted = exhausted
	return &out
}

func (o *Optimizer) checkPriority(role *Role, priority []Attribute) error {
	seen := map[Attribute]bool{}
	for _, a := range priority {
		if !role.HasAttribute(a) || seen[a] {
			return fmt.Errorf("%w: %s is not a distinct attribute of %s", ErrUnknownAttribute, a, role.Name)
		}
		seen[a] = true
	}
	return nil
}

// RunScenario runs a single fixed priority order.
func (o *Optimizer) RunScenario(ctx context.Context, req Request, priority []Attribute) (*Result, error) {
	role, pl, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := o.checkPriority(role, priority); err != nil {
		return nil, err
	}
	if req.Board.OpenCount() == 0 {
		return emptyResult(), nil
	}
	return o.runScenario(ctx, req.Board, role, pl, priority)
}

// Plan returns the wishlist a scenario would search over.
func (o *Optimizer) Plan(req Request, priority []Attribute) (*Wishlist, error) {
	role, pl, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := o.checkPriority(role, priority); err != nil {
		return nil, err
	}
	return o.wishlist(pl, priority, req.Board.OpenCount()), nil
}

func (o *Optimizer) runScenario(ctx context.Context, board *Board, role *Role, pl *pools, priority []Attribute) (*Result, error) {
	start := time.Now()
	open := board.OpenCells()
	scorer := NewScorer(o.catalog, role, o.opts.Bonus)
	w := o.wishlist(pl, priority, len(open))

	s := &search{
		ctx:     ctx,
		board:   board,
		open:    open,
		scorer:  scorer,
		opts:    o.opts,
		pieces:  w.Pieces,
		targets: w.Targets,
	}
	s.run()
	placements := s.best
	phase1 := scorer.Score(placements)
	for attr, target := range w.Targets {
		log.Debug().Str("attribute", string(attr)).Int("target", target).
			Int("actual", phase1.AttributeCells[attr]).Msg("target-vs-actual")
	}
	log.Debug().Int("score", phase1.Total).Int("nodes", s.nodes).
		Int("placed", len(placements)).Int("wishlist", len(w.Pieces)).Msg("phase-1-done")

	if p2, ok := o.phase2(board, open, scorer, pl, placements, phase1.Total); ok {
		placements = p2
	}
	placements = o.fill(board, open, scorer, pl, placements)
	final := scorer.Score(placements)

	log.Debug().Interface("priority", priority).Int("score", final.Total).
		Dur("elapsed", time.Since(start)).Msg("scenario-done")
	return &Result{
		Placements: placements,
		Score:      final,
		Priority:   priority,
		Wishlist:   w,
		Nodes:      s.nodes,
		Elapsed:    time.Since(start),
		Exhausted:  s.exhausted,
	}, s.err
}

// phase2 adds non-matching pieces greedily after phase 1 and keeps them
// only if the total improves.
func (o *Optimizer) phase2(board *Board, open []Cell, scorer *Scorer, pl *pools, placed []Placement, score int) ([]Placement, bool) {
	used := cellsOf(placed)
	remaining := len(open) - used.Len()
	if remaining <= 0 || len(placed) == 0 || len(pl.nonMatching) == 0 {
		return nil, false
	}
	if !lo.SomeBy(pl.nonMatching, func(p *Piece) bool { return p.Size() <= remaining }) {
		return nil, false
	}
	sorted := slices.Clone(pl.nonMatching)
	slices.SortStableFunc(sorted, byValue(o.catalog))
	out := slices.Clone(placed)
	for _, p := range sorted {
		if used.Len()+p.Size() > len(open) {
			continue
		}
		if c, ok := firstFit(board, open, p, used); ok {
			out = append(out, Placement{Piece: p, Anchor: c.anchor, Variant: c.variant, Cells: c.cells})
			used = used.Union(c.cells)
		}
	}
	total := scorer.Score(out).Total
	if total <= score {
		return nil, false
	}
	log.Debug().Int("added", len(out)-len(placed)).Int("score", total).Msg("phase-2-improved")
	return out, true
}

// fill places leftover pieces in any open cells: pieces that fit the
// remaining space first, then matching ones, then by rarity, then larger
// pieces.
func (o *Optimizer) fill(board *Board, open []Cell, scorer *Scorer, pl *pools, placed []Placement) []Placement {
	used := cellsOf(placed)
	remaining := len(open) - used.Len()
	if remaining <= 0 {
		return placed
	}
	ids := map[string]bool{}
	hasUnique := false
	for _, p := range placed {
		ids[p.Piece.ID] = true
		hasUnique = hasUnique || p.Piece.IsUnique()
	}
	pool := append(slices.Clone(pl.matching), pl.nonMatching...)
	unused := lo.Filter(pool, func(p *Piece, _ int) bool { return !ids[p.ID] })
	slices.SortStableFunc(unused, func(a, b *Piece) int {
		if fa, fb := a.Size() <= remaining, b.Size() <= remaining; fa != fb {
			if fa {
				return -1
			}
			return 1
		}
		if ma, mb := pl.isMatching(a), pl.isMatching(b); ma != mb {
			if ma {
				return -1
			}
			return 1
		}
		return byValue(o.catalog)(a, b)
	})

	out := slices.Clone(placed)
	for _, p := range unused {
		if p.IsUnique() && hasUnique {
			continue
		}
		if used.Len()+p.Size() > len(open) {
			continue
		}
		c, ok := firstFit(board, open, p, used)
		if !ok {
			continue
		}
		out = append(out, Placement{Piece: p, Anchor: c.anchor, Variant: c.variant, Cells: c.cells})
		used = used.Union(c.cells)
		hasUnique = hasUnique || p.IsUnique()
	}
	if added := len(out) - len(placed); added > 0 {
		log.Debug().Int("added", added).Int("score", scorer.Score(out).Total).Msg("filled")
	}
	return out
}
