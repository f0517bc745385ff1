package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/lapidary/planner"
	"github.com/domino14/lapidary/puzzle"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) busy() bool {
	sc.optMu.Lock()
	defer sc.optMu.Unlock()
	return sc.optRunning || sc.simmer.IsSimming()
}

func (sc *ShellController) clearResult() {
	sc.optMu.Lock()
	sc.lastResult = nil
	sc.optMu.Unlock()
}

func (sc *ShellController) setMode(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(fmt.Sprintf("mode %d: %s (%d turns)", sc.mode, sc.track.Name, sc.track.Turns)), nil
	}
	if sc.simmer.IsSimming() {
		return nil, errBusy
	}
	mode, err := planner.ParseMode(cmd.args[0])
	if err != nil {
		return nil, err
	}
	if err := sc.setTrack(mode); err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Set mode to %s. Winning positions: %v", sc.track.Name, sc.track.WinningPositions())), nil
}

func parsePlanArgs(args []string) ([4]int, error) {
	var vals [4]int
	if len(args) != 4 {
		return vals, errors.New("usage: plan <position> <turns> <refine-left> <stabilize-left>")
	}
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return vals, fmt.Errorf("argument %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func (sc *ShellController) planCmd(cmd *shellcmd) (*Response, error) {
	vals, err := parsePlanArgs(cmd.args)
	if err != nil {
		return nil, err
	}
	plan, err := planner.PlanProbabilities(vals[0], vals[1], vals[2], vals[3], sc.track)
	if err != nil {
		return nil, err
	}
	sc.plan = plan
	return msg(plan.String()), nil
}

func (sc *ShellController) boardCmd(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.board.String()), nil
	}
	if sc.busy() {
		return nil, errBusy
	}
	var b *puzzle.Board
	if len(cmd.args) == 1 && cmd.args[0] == "full" {
		b = puzzle.FullBoard()
	} else {
		var err error
		b, err = puzzle.ParseBoard(cmd.args)
		if err != nil {
			return nil, err
		}
	}
	sc.board = b
	sc.clearResult()
	return msg(sc.printer.Sprintf("%s%d open cells", b, b.OpenCount())), nil
}

func (sc *ShellController) inventory(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: inventory <file.yaml>")
	}
	if sc.busy() {
		return nil, errBusy
	}
	inv, err := puzzle.LoadInventory(cmd.args[0])
	if err != nil {
		return nil, err
	}
	if err := sc.catalog.ValidatePieces(inv.Pieces); err != nil {
		return nil, err
	}
	sc.pieces = inv.Pieces
	sc.clearResult()
	if inv.Board != nil {
		sc.board = inv.Board
	}
	if inv.Role != "" {
		if _, err := sc.catalog.Role(inv.Role); err != nil {
			return nil, err
		}
		sc.role = inv.Role
	}
	log.Debug().Str("file", cmd.args[0]).Int("pieces", len(inv.Pieces)).Msg("loaded-inventory")
	return msg(sc.inventorySummary()), nil
}

func (sc *ShellController) inventorySummary() string {
	byRarity := lo.CountValuesBy(sc.pieces, func(p *puzzle.Piece) puzzle.Rarity { return p.Rarity })
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d pieces:", len(sc.pieces))
	for r := puzzle.Rare; r < puzzle.NumRarities; r++ {
		fmt.Fprintf(&sb, " %s=%d", r, byRarity[r])
	}
	return sb.String()
}

func (sc *ShellController) roleCmd(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		names := lo.Map(sc.catalog.Roles, func(r *puzzle.Role, _ int) string { return r.Name })
		return msg(fmt.Sprintf("role: %s (available: %s)", sc.role, strings.Join(names, ", "))), nil
	}
	if sc.busy() {
		return nil, errBusy
	}
	role, err := sc.catalog.Role(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.role = role.Name
	sc.clearResult()
	return msg(fmt.Sprintf("Set role to %s: %v", role.Name, role.Attributes)), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mode: %s (%d turns)\n", sc.track.Name, sc.track.Turns)
	if sc.plan != nil {
		sb.WriteString(sc.plan.String())
	}
	fmt.Fprintf(&sb, "role: %s\n", sc.role)
	sb.WriteString(sc.inventorySummary())
	sb.WriteString("\n")
	sc.optMu.Lock()
	res := sc.lastResult
	sc.optMu.Unlock()
	if res != nil {
		sb.WriteString(sc.formatResult(res))
	} else {
		sb.WriteString(sc.board.String())
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.config.SanitizedSettings()), nil
	}
	key := cmd.args[0]
	if len(cmd.args) == 1 {
		return msg(fmt.Sprintf("%s: %v", key, sc.config.Get(key))), nil
	}
	if sc.busy() {
		return nil, errBusy
	}
	sc.config.Set(key, strings.Join(cmd.args[1:], " "))
	if cmd.options.Bool("save") {
		if err := sc.config.Write(); err != nil {
			return nil, err
		}
	}
	return msg(fmt.Sprintf("set %s to %v", key, sc.config.Get(key))), nil
}
