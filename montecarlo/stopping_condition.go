package montecarlo

import (
	"github.com/rs/zerolog/log"

	"github.com/domino14/lapidary/stats"
)

type StoppingCondition int

const (
	StopNone StoppingCondition = iota
	Stop95
	Stop98
	Stop99
)

const DefaultCheckInterval = 500

// ParseStoppingCondition maps a confidence percentage to a condition; 0
// means never stop early.
func ParseStoppingCondition(confidence int) StoppingCondition {
	switch confidence {
	case 95:
		return Stop95
	case 98:
		return Stop98
	case 99:
		return Stop99
	}
	return StopNone
}

func (sc StoppingCondition) z() float64 {
	switch sc {
	case Stop95:
		return stats.ZVal(95)
	case Stop98:
		return stats.ZVal(98)
	case Stop99:
		return stats.ZVal(99)
	}
	return 0
}

// shouldStop is true once every action still being simmed has an interval
// narrower than tolerance, or a single action is left. Actions whose
// interval lies wholly below the leader's are ignored from then on.
func shouldStop(actions []*simmedAction, sc StoppingCondition, tolerance float64) bool {
	if sc == StopNone {
		return false
	}
	z := sc.z()
	var live []*simmedAction
	for _, a := range actions {
		a.RLock()
		if !a.ignore {
			live = append(live, a)
		}
		a.RUnlock()
	}
	if len(live) <= 1 {
		return true
	}

	leader := live[0]
	leaderLo, _ := leader.interval(z)
	for _, a := range live[1:] {
		if a.winProb() > leader.winProb() {
			leader = a
			leaderLo, _ = a.interval(z)
		}
	}
	remaining := 0
	precise := true
	for _, a := range live {
		if a == leader {
			remaining++
			continue
		}
		lo, hi := a.interval(z)
		if hi < leaderLo {
			a.Lock()
			a.ignore = true
			a.Unlock()
			log.Debug().Stringer("action", a.action).Float64("high", hi).
				Float64("leader-low", leaderLo).Msg("sim-cut-off")
			continue
		}
		remaining++
		if (hi-lo)/2 > tolerance {
			precise = false
		}
	}
	if remaining <= 1 {
		return true
	}
	lo, hi := leader.interval(z)
	return precise && (hi-lo)/2 <= tolerance
}
