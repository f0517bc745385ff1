// Package planner computes exact win probabilities for the reward track
// mini-game with a finite-horizon dynamic program.
package planner

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var ErrInvalidState = errors.New("invalid planner state")

// Table holds the optimal value of every state up to the solved bounds.
// It is read-only once built and safe for concurrent use.
type Table struct {
	track        *Track
	turns        int
	refineCap    int
	stabilizeCap int
	values       []float64
}

// Solve fills the value table bottom-up, from zero turns left to turns.
func Solve(track *Track, turns, refineCap, stabilizeCap int) *Table {
	if turns < 0 {
		turns = 0
	}
	refineCap = min(max(refineCap, 0), MaxUses)
	stabilizeCap = min(max(stabilizeCap, 0), MaxUses)
	t := &Table{
		track:        track,
		turns:        turns,
		refineCap:    refineCap,
		stabilizeCap: stabilizeCap,
	}
	t.values = make([]float64, (turns+1)*NumPositions*(refineCap+1)*(stabilizeCap+1))

	for turn := 0; turn <= turns; turn++ {
		for pos := 0; pos < NumPositions; pos++ {
			for r := 0; r <= refineCap; r++ {
				for s := 0; s <= stabilizeCap; s++ {
					st := State{Position: pos, Turns: turn, RefineLeft: r, StabilizeLeft: s}
					t.values[t.index(st)] = t.solveState(st)
				}
			}
		}
	}
	return t
}

func (t *Table) solveState(s State) float64 {
	if s.Terminal() {
		return t.track.terminal(s.Position)
	}
	best := 0.0
	for _, a := range Actions {
		if !s.Available(a.Kind) {
			continue
		}
		best = max(best, t.expected(s, a))
	}
	return best
}

// expected averages the successor values over every delta of a.
func (t *Table) expected(s State, a Action) float64 {
	total := 0.0
	for d := a.MinDelta; d <= a.MaxDelta; d++ {
		total += t.values[t.index(s.After(a.Kind, d))]
	}
	return total / float64(a.Outcomes())
}

func (t *Table) index(s State) int {
	return ((s.Turns*NumPositions+s.Position)*(t.refineCap+1)+s.RefineLeft)*(t.stabilizeCap+1) +
		s.StabilizeLeft
}

// Contains is true if s lies within the solved bounds.
func (t *Table) Contains(s State) bool {
	return s.Turns >= 0 && s.Turns <= t.turns &&
		s.Position >= 0 && s.Position < NumPositions &&
		s.RefineLeft >= 0 && s.RefineLeft <= t.refineCap &&
		s.StabilizeLeft >= 0 && s.StabilizeLeft <= t.stabilizeCap
}

func (t *Table) Track() *Track {
	return t.track
}

// Value is the win probability of s under optimal play. It reports false
// for states the table was not solved for.
func (t *Table) Value(s State) (float64, bool) {
	if !t.Contains(s) {
		return 0, false
	}
	return t.values[t.index(s)], true
}

// ActionValue is the win probability of taking a in s and then playing
// optimally. The second return is false if a is not available or s is
// outside the table.
func (t *Table) ActionValue(s State, a ActionKind) (float64, bool) {
	if !t.Contains(s) || !s.Available(a) {
		return 0, false
	}
	if s.Terminal() {
		return t.track.terminal(s.Position), true
	}
	return t.expected(s, Actions[a]), true
}

// Outcomes evaluates every action in s.
func (t *Table) Outcomes(s State) [NumActions]Outcome {
	var out [NumActions]Outcome
	for _, a := range Actions {
		p, ok := t.ActionValue(s, a.Kind)
		out[a.Kind] = Outcome{Action: a.Kind, Available: ok, Probability: p}
	}
	return out
}

// BestAction picks the recommended action in s.
func (t *Table) BestAction(s State) (ActionKind, bool) {
	return recommend(t.Outcomes(s), s)
}

// Normalize clamps the position and turn budget and checks the remaining
// uses of s against the track.
func Normalize(s State, track *Track) (State, error) {
	if s.RefineLeft < 0 || s.RefineLeft > MaxUses {
		return s, fmt.Errorf("%w: refine uses %d outside [0,%d]", ErrInvalidState, s.RefineLeft, MaxUses)
	}
	if s.StabilizeLeft < 0 || s.StabilizeLeft > MaxUses {
		return s, fmt.Errorf("%w: stabilize uses %d outside [0,%d]", ErrInvalidState, s.StabilizeLeft, MaxUses)
	}
	s.Position = Clamp(s.Position)
	s.Turns = min(max(s.Turns, 0), track.Turns)
	return s, nil
}

// PlanProbabilities returns the win probability of each action from the
// given state on track.
func PlanProbabilities(position, turns, refineLeft, stabilizeLeft int, track *Track) (*Plan, error) {
	if track == nil {
		return nil, fmt.Errorf("%w: no track", ErrInvalidState)
	}
	s, err := Normalize(State{
		Position:      position,
		Turns:         turns,
		RefineLeft:    refineLeft,
		StabilizeLeft: stabilizeLeft,
	}, track)
	if err != nil {
		return nil, err
	}
	table := Solve(track, s.Turns, s.RefineLeft, s.StabilizeLeft)
	plan := &Plan{State: s, Track: track, Outcomes: table.Outcomes(s)}
	v, _ := table.Value(s)
	log.Debug().
		Str("track", track.Name).
		Stringer("state", s).
		Float64("value", v).
		Msg("planned")
	return plan, nil
}
