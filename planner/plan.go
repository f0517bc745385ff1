package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

// TieEpsilon is the tolerance under which two probabilities are equal.
const TieEpsilon = 1e-9

// Outcome is the value of one action. Probability is only meaningful when
// Available is true.
type Outcome struct {
	Action      ActionKind
	Available   bool
	Probability float64
}

type Plan struct {
	State    State
	Track    *Track
	Outcomes [NumActions]Outcome
}

// Probability returns the win probability for a, or false if a is not
// available.
func (p *Plan) Probability(a ActionKind) (float64, bool) {
	o := p.Outcomes[a]
	return o.Probability, o.Available
}

// Recommend picks the best action. Ties prefer a limited action over the
// unlimited one, then the limited action with more uses left, then the
// fixed action order.
func (p *Plan) Recommend() (ActionKind, bool) {
	return recommend(p.Outcomes, p.State)
}

func recommend(outcomes [NumActions]Outcome, s State) (ActionKind, bool) {
	avail := lo.Filter(outcomes[:], func(o Outcome, _ int) bool { return o.Available })
	if len(avail) == 0 {
		return 0, false
	}
	top := lo.MaxBy(avail, func(a, b Outcome) bool { return a.Probability > b.Probability })
	tied := lo.Filter(avail, func(o Outcome, _ int) bool {
		return math.Abs(o.Probability-top.Probability) <= TieEpsilon
	})
	limited := lo.Filter(tied, func(o Outcome, _ int) bool { return Actions[o.Action].Limited })
	if len(limited) == 0 {
		return tied[0].Action, true
	}
	best := limited[0]
	for _, o := range limited[1:] {
		if s.UsesLeft(o.Action) > s.UsesLeft(best.Action) {
			best = o
		}
	}
	return best.Action, true
}

func (p *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v (tier here: %s)\n", p.State, TierName(p.Track.TierAt(p.State.Position)))
	rec, ok := p.Recommend()
	for _, o := range p.Outcomes {
		marker := " "
		if ok && o.Action == rec {
			marker = "*"
		}
		if !o.Available {
			fmt.Fprintf(&sb, "%s %-10s unavailable\n", marker, o.Action)
			continue
		}
		fmt.Fprintf(&sb, "%s %-10s %6.2f%%\n", marker, o.Action, o.Probability*100)
	}
	return sb.String()
}
