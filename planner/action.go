package planner

import (
	"fmt"
	"strings"
)

// MaxUses is the per-game cap on each limited action.
const MaxUses = 3

// ActionKind enumerates the moves. The order is also the tie-break order.
type ActionKind int

const (
	// Strike is always available and moves 3 to 6 cells forward.
	Strike ActionKind = iota
	// Refine moves between 3 cells back and 2 forward, 3 uses per game.
	Refine
	// Stabilize moves 0 to 4 cells forward, 3 uses per game.
	Stabilize
	NumActions
)

type Action struct {
	Kind     ActionKind
	Name     string
	MinDelta int
	MaxDelta int
	Limited  bool
}

var Actions = [NumActions]Action{
	{Kind: Strike, Name: "strike", MinDelta: 3, MaxDelta: 6},
	{Kind: Refine, Name: "refine", MinDelta: -3, MaxDelta: 2, Limited: true},
	{Kind: Stabilize, Name: "stabilize", MinDelta: 0, MaxDelta: 4, Limited: true},
}

func (a ActionKind) String() string {
	if a < 0 || a >= NumActions {
		return fmt.Sprintf("action-%d", int(a))
	}
	return Actions[a].Name
}

// ParseAction accepts the action name or its 1-based number.
func ParseAction(s string) (ActionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range Actions {
		if s == a.Name || s == fmt.Sprint(int(a.Kind)+1) {
			return a.Kind, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Outcomes is the number of equally likely deltas.
func (a Action) Outcomes() int {
	return a.MaxDelta - a.MinDelta + 1
}

func (a Action) String() string {
	return fmt.Sprintf("%s (%+d..%+d)", a.Name, a.MinDelta, a.MaxDelta)
}

// State fully determines the optimal win probability.
type State struct {
	Position      int
	Turns         int
	RefineLeft    int
	StabilizeLeft int
}

func (s State) String() string {
	return fmt.Sprintf("pos=%d turns=%d refine=%d stabilize=%d",
		s.Position, s.Turns, s.RefineLeft, s.StabilizeLeft)
}

// UsesLeft returns the remaining uses for a limited action, or -1 for the
// unlimited one.
func (s State) UsesLeft(a ActionKind) int {
	switch a {
	case Refine:
		return s.RefineLeft
	case Stabilize:
		return s.StabilizeLeft
	}
	return -1
}

func (s State) Available(a ActionKind) bool {
	if !Actions[a].Limited {
		return true
	}
	return s.UsesLeft(a) > 0
}

// Terminal is true once no further move can be made.
func (s State) Terminal() bool {
	return s.Turns <= 0 || s.Position >= TerminalPosition
}

// After returns the successor state of taking a with the given delta.
func (s State) After(a ActionKind, delta int) State {
	next := State{
		Position:      Clamp(s.Position + delta),
		Turns:         s.Turns - 1,
		RefineLeft:    s.RefineLeft,
		StabilizeLeft: s.StabilizeLeft,
	}
	switch a {
	case Refine:
		next.RefineLeft--
	case Stabilize:
		next.StabilizeLeft--
	}
	if next.RefineLeft < 0 || next.StabilizeLeft < 0 {
		panic(fmt.Sprintf("limited action %v used with no uses left: %v", a, s))
	}
	return next
}
