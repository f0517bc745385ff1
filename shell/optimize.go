package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/lapidary/puzzle"
)

const placementLabels = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func (sc *ShellController) optimizeRequest() (puzzle.Request, error) {
	if len(sc.pieces) == 0 {
		return puzzle.Request{}, errors.New("load an inventory first with `inventory <file>`")
	}
	return puzzle.Request{Board: sc.board, Pieces: sc.pieces, Role: sc.role}, nil
}

func (sc *ShellController) newOptimizer() (*puzzle.Optimizer, error) {
	opts, err := puzzle.OptionsFromConfig(sc.config)
	if err != nil {
		return nil, err
	}
	return puzzle.NewOptimizer(sc.catalog, opts)
}

func parseScenario(s string) []puzzle.Attribute {
	return lo.Map(strings.Split(s, ","), func(a string, _ int) puzzle.Attribute {
		return puzzle.Attribute(strings.TrimSpace(a))
	})
}

func (sc *ShellController) optimize(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) > 0 {
		switch cmd.args[0] {
		case "stop":
			sc.optMu.Lock()
			defer sc.optMu.Unlock()
			if !sc.optRunning {
				return nil, errors.New("no running optimization to stop")
			}
			sc.optCancel()
			return msg("stopping optimization; the best result so far will be kept"), nil
		case "plan":
			return sc.wishlist(cmd)
		}
		return nil, errors.New("unrecognized argument to `optimize`: " + cmd.args[0])
	}
	if sc.busy() {
		return nil, errBusy
	}
	req, err := sc.optimizeRequest()
	if err != nil {
		return nil, err
	}
	opt, err := sc.newOptimizer()
	if err != nil {
		return nil, err
	}
	var priority []puzzle.Attribute
	if s := cmd.options.String("scenario"); s != "" {
		priority = parseScenario(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc.optMu.Lock()
	sc.optRunning = true
	sc.optCancel = cancel
	sc.optMu.Unlock()

	run := func() (*Response, error) {
		defer cancel()
		var res *puzzle.Result
		var err error
		if priority != nil {
			res, err = opt.RunScenario(ctx, req, priority)
		} else {
			res, err = opt.Optimize(ctx, req)
		}
		sc.optMu.Lock()
		sc.optRunning = false
		sc.optCancel = nil
		if res != nil {
			sc.lastResult = res
		}
		sc.optMu.Unlock()
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if res == nil {
			return nil, err
		}
		return msg(sc.formatResult(res)), nil
	}

	if !sc.interactive {
		return run()
	}
	go func() {
		resp, err := run()
		if err != nil {
			sc.showError(err)
			return
		}
		if resp != nil {
			sc.showMessage(resp.message)
		}
		log.Debug().Msg("optimizer thread exiting...")
	}()
	return msg("Optimization started. Use `optimize stop` to stop early and `show` to see the result."), nil
}

func (sc *ShellController) wishlist(cmd *shellcmd) (*Response, error) {
	req, err := sc.optimizeRequest()
	if err != nil {
		return nil, err
	}
	opt, err := sc.newOptimizer()
	if err != nil {
		return nil, err
	}
	role, err := sc.catalog.Role(req.Role)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for i, priority := range puzzle.Scenarios(role) {
		w, err := opt.Plan(req, priority)
		if err != nil {
			return nil, err
		}
		ids := lo.Map(w.Pieces, func(p *puzzle.Piece, _ int) string { return p.ID })
		unique := "none"
		if w.Unique != nil {
			unique = w.Unique.ID
		}
		sb.WriteString(sc.printer.Sprintf("scenario %d %v: unique %s, %d cells, expected %d\n",
			i+1, priority, unique, w.Cells, w.Expected))
		fmt.Fprintf(&sb, "  targets %v\n  pieces %s\n", w.Targets, strings.Join(ids, " "))
	}
	return msg(sb.String()), nil
}

// renderPlacements draws the board with one letter per placed piece.
func renderPlacements(b *puzzle.Board, placements []puzzle.Placement) string {
	var grid [puzzle.BoardSize][puzzle.BoardSize]byte
	for r := range grid {
		for c := range grid[r] {
			if b.IsOpen(puzzle.Cell{Row: r, Col: c}) {
				grid[r][c] = '.'
			} else {
				grid[r][c] = '#'
			}
		}
	}
	for i, p := range placements {
		label := byte('?')
		if i < len(placementLabels) {
			label = placementLabels[i]
		}
		for _, c := range p.Cells.Cells() {
			grid[c.Row][c.Col] = label
		}
	}
	var sb strings.Builder
	for r := range grid {
		sb.Write(grid[r][:])
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (sc *ShellController) formatResult(res *puzzle.Result) string {
	var sb strings.Builder
	sb.WriteString(renderPlacements(sc.board, res.Placements))
	for i, p := range res.Placements {
		label := "?"
		if i < len(placementLabels) {
			label = placementLabels[i : i+1]
		}
		fmt.Fprintf(&sb, "%s: %-12s %-10s %-12s at %v\n", label, p.Piece.ID, p.Piece.Rarity, p.Piece.Attribute, p.Anchor)
	}
	sb.WriteString(sc.printer.Sprintf("score %d (base %d, bonus %d) %v\n",
		res.Score.Total, res.Score.Base, res.Score.Bonus, res.Score.AttributeCells))
	sb.WriteString(sc.printer.Sprintf("scenario %d %v, %d nodes in %v", res.Scenario+1, res.Priority, res.Nodes, res.Elapsed))
	if res.Exhausted {
		sb.WriteString(" (search budget ran out)")
	}
	return sb.String()
}
