// Package montecarlo plays the reward track game many times with real dice
// to cross-check the planner's exact probabilities. Each available root
// action is forced on the first turn; every later turn follows the
// planner's recommendation.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/domino14/lapidary/planner"
	"github.com/domino14/lapidary/stats"
)

// LogIteration is one iteration of the YAML sim log.
type LogIteration struct {
	Iteration int       `yaml:"iteration"`
	Thread    int       `yaml:"thread"`
	Games     []LogGame `yaml:"games"`
}

type LogGame struct {
	Action string   `yaml:"action"`
	Moves  []string `yaml:"moves,flow"`
	Path   []int    `yaml:"path,flow"`
	Final  int      `yaml:"final"`
	Win    bool     `yaml:"win"`
}

type simmedAction struct {
	sync.RWMutex
	action    planner.ActionKind
	wins      stats.Tally
	final     Statistic
	positions [planner.NumPositions]int
	ignore    bool
}

func (a *simmedAction) record(final int, win bool) {
	a.Lock()
	defer a.Unlock()
	a.wins.Push(win)
	a.final.Push(float64(final))
	a.positions[final]++
}

func (a *simmedAction) winProb() float64 {
	a.RLock()
	defer a.RUnlock()
	return a.wins.Mean()
}

func (a *simmedAction) interval(z float64) (float64, float64) {
	a.RLock()
	defer a.RUnlock()
	return a.wins.Interval(z)
}

// SimmedAction is a snapshot of one root action's results.
type SimmedAction struct {
	Action        planner.ActionKind
	Available     bool
	Ignored       bool
	Wins          int
	Iterations    int
	WinProb       float64
	StdErr        float64
	Low           float64
	High          float64
	MeanFinalPos  float64
	FinalPosStdev float64
}

func (s SimmedAction) String() string {
	if !s.Available {
		return fmt.Sprintf("%-10s unavailable", s.Action)
	}
	return fmt.Sprintf("%-10s %6.2f%% ± %5.2f%% [%6.2f%%, %6.2f%%] n=%d final=%.2f",
		s.Action, s.WinProb*100, s.StdErr*100, s.Low*100, s.High*100, s.Iterations, s.MeanFinalPos)
}

type Simmer struct {
	track *planner.Track
	table *planner.Table
	state planner.State

	actions   []*simmedAction
	threads   int
	stop      StoppingCondition
	tolerance float64
	interval  uint64
	logStream io.Writer

	iterationCount atomic.Uint64
	simming        atomic.Bool
}

// Init solves the planner table for state and prepares one tally per
// available root action.
func (s *Simmer) Init(track *planner.Track, state planner.State) error {
	if track == nil {
		return errors.New("no track to simulate")
	}
	st, err := planner.Normalize(state, track)
	if err != nil {
		return err
	}
	s.track = track
	s.state = st
	s.table = planner.Solve(track, st.Turns, st.RefineLeft, st.StabilizeLeft)
	s.actions = nil
	for _, a := range planner.Actions {
		if st.Available(a.Kind) {
			s.actions = append(s.actions, &simmedAction{action: a.Kind})
		}
	}
	if s.threads == 0 {
		s.threads = max(1, runtime.NumCPU())
	}
	if s.interval == 0 {
		s.interval = DefaultCheckInterval
	}
	if s.tolerance == 0 {
		s.tolerance = 0.005
	}
	s.iterationCount.Store(0)
	log.Debug().Stringer("state", st).Int("actions", len(s.actions)).Msg("sim-initialized")
	return nil
}

func (s *Simmer) SetThreads(threads int) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	s.threads = threads
}

func (s *Simmer) Threads() int {
	return s.threads
}

func (s *Simmer) SetStoppingCondition(sc StoppingCondition) {
	s.stop = sc
}

// SetTolerance sets the interval half-width at which a stopping condition
// considers the estimates precise enough.
func (s *Simmer) SetTolerance(t float64) {
	s.tolerance = t
}

func (s *Simmer) SetCheckInterval(n uint64) {
	s.interval = max(n, 1)
}

func (s *Simmer) SetLogStream(l io.Writer) {
	s.logStream = l
}

func (s *Simmer) IsSimming() bool {
	return s.simming.Load()
}

func (s *Simmer) Ready() bool {
	return s.table != nil
}

func (s *Simmer) Iterations() int {
	return int(s.iterationCount.Load())
}

func (s *Simmer) State() planner.State {
	return s.state
}

// Simulate runs until maxIterations iterations are done (0 means no cap),
// the stopping condition is met, or ctx is done. It blocks.
func (s *Simmer) Simulate(ctx context.Context, maxIterations int) error {
	if !s.Ready() {
		return errors.New("please initialize the simulation first")
	}
	if maxIterations <= 0 && s.stop == StopNone && ctx.Done() == nil {
		return errors.New("simulation would never end: set an iteration cap or a stopping condition")
	}
	s.simming.Store(true)
	defer func() {
		s.simming.Store(false)
		log.Info().Uint64("iterations", s.iterationCount.Load()).Msg("sim-ended")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logChan := make(chan []byte)
	writer := errgroup.Group{}
	if s.logStream != nil {
		writer.Go(func() error {
			for b := range logChan {
				if _, err := s.logStream.Write(b); err != nil {
					log.Err(err).Msg("sim-log-write")
				}
			}
			return nil
		})
	}

	tstart := time.Now()
	g := errgroup.Group{}
	for t := 0; t < s.threads; t++ {
		g.Go(func() error {
			rng := frand.New()
			for {
				if ctx.Err() != nil {
					return nil
				}
				n := s.iterationCount.Add(1)
				if maxIterations > 0 && n > uint64(maxIterations) {
					s.iterationCount.Add(^uint64(0))
					return nil
				}
				if err := s.simSingleIteration(rng, t, int(n-1), logChan); err != nil {
					cancel()
					return err
				}
				if s.stop != StopNone && n%s.interval == 0 {
					if shouldStop(s.actions, s.stop, s.tolerance) {
						log.Info().Uint64("iterations", n).Msg("reached-stopping-condition")
						cancel()
					}
				}
			}
		})
	}
	err := g.Wait()
	close(logChan)
	writer.Wait()
	log.Debug().Dur("elapsed", time.Since(tstart)).Int("threads", s.threads).Msg("sim-threads-done")
	return err
}

func (s *Simmer) roll(rng *frand.RNG, a planner.ActionKind) int {
	act := planner.Actions[a]
	return act.MinDelta + rng.Intn(act.Outcomes())
}

// playGame forces first, then follows the planner until the game ends.
func (s *Simmer) playGame(rng *frand.RNG, first planner.ActionKind, lg *LogGame) (int, bool) {
	st := s.state
	a := first
	for !st.Terminal() {
		st = st.After(a, s.roll(rng, a))
		if lg != nil {
			lg.Moves = append(lg.Moves, a.String())
			lg.Path = append(lg.Path, st.Position)
		}
		if st.Terminal() {
			break
		}
		var ok bool
		a, ok = s.table.BestAction(st)
		if !ok {
			break
		}
	}
	return st.Position, s.track.IsWin(st.Position)
}

func (s *Simmer) simSingleIteration(rng *frand.RNG, thread, iteration int, logChan chan []byte) error {
	var logIter *LogIteration
	if s.logStream != nil {
		logIter = &LogIteration{Iteration: iteration, Thread: thread}
	}
	for _, sa := range s.actions {
		sa.RLock()
		ignored := sa.ignore
		sa.RUnlock()
		if ignored {
			continue
		}
		var lg *LogGame
		if logIter != nil {
			lg = &LogGame{Action: sa.action.String()}
		}
		final, win := s.playGame(rng, sa.action, lg)
		sa.record(final, win)
		if lg != nil {
			lg.Final = final
			lg.Win = win
			logIter.Games = append(logIter.Games, *lg)
		}
	}
	if logIter != nil {
		out, err := yaml.Marshal([]LogIteration{*logIter})
		if err != nil {
			return err
		}
		logChan <- out
	}
	return nil
}

// Results reports every action, available or not, in action order.
func (s *Simmer) Results() []SimmedAction {
	z := stats.ZVal(95)
	if s.stop != StopNone {
		z = s.stop.z()
	}
	out := make([]SimmedAction, 0, planner.NumActions)
	for _, a := range planner.Actions {
		r := SimmedAction{Action: a.Kind}
		for _, sa := range s.actions {
			if sa.action != a.Kind {
				continue
			}
			sa.RLock()
			r.Available = true
			r.Ignored = sa.ignore
			r.Wins = sa.wins.Successes()
			r.Iterations = sa.wins.Trials()
			r.WinProb = sa.wins.Mean()
			r.StdErr = sa.wins.StandardError()
			r.Low, r.High = sa.wins.Interval(z)
			r.MeanFinalPos = sa.final.Mean()
			r.FinalPosStdev = sa.final.Stdev()
			sa.RUnlock()
		}
		out = append(out, r)
	}
	return out
}

// FinalPositions lists the final position of every game that started with
// a, for plotting.
func (s *Simmer) FinalPositions(a planner.ActionKind) []float64 {
	var out []float64
	for _, sa := range s.actions {
		if sa.action != a {
			continue
		}
		sa.RLock()
		for pos, n := range sa.positions {
			for range n {
				out = append(out, float64(pos))
			}
		}
		sa.RUnlock()
	}
	return out
}

// ShortDetails is a table of results, best first.
func (s *Simmer) ShortDetails() string {
	res := s.Results()
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Available != res[j].Available {
			return res[i].Available
		}
		return res[i].WinProb > res[j].WinProb
	})
	var sb strings.Builder
	fmt.Fprintf(&sb, "Simmed %v from %v (%d iterations)\n", s.track.Name, s.state, s.Iterations())
	for _, r := range res {
		exact, ok := s.table.ActionValue(s.state, r.Action)
		sb.WriteString(r.String())
		if ok {
			fmt.Fprintf(&sb, " exact=%.2f%%", exact*100)
		}
		if r.Ignored {
			sb.WriteString(" (cut off)")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
