package montecarlo

import (
	"bytes"
	"context"
	"math"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/domino14/lapidary/planner"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func modeOne(t *testing.T) *planner.Track {
	t.Helper()
	track, err := planner.TrackFor(planner.ModeSuperEpic)
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func TestSimAgreesWithPlanner(t *testing.T) {
	is := is.New(t)
	track := modeOne(t)
	state := planner.State{Position: 10, Turns: 2, RefineLeft: 3, StabilizeLeft: 3}
	simmer := &Simmer{}
	simmer.SetThreads(2)
	is.NoErr(simmer.Init(track, state))
	is.NoErr(simmer.Simulate(context.Background(), 20000))
	is.Equal(simmer.Iterations(), 20000)

	plan, err := planner.PlanProbabilities(10, 2, 3, 3, track)
	is.NoErr(err)
	for _, r := range simmer.Results() {
		exact, ok := plan.Probability(r.Action)
		is.True(ok)
		is.True(r.Available)
		is.Equal(r.Iterations, 20000)
		sigma := math.Sqrt(exact * (1 - exact) / float64(r.Iterations))
		is.True(math.Abs(r.WinProb-exact) < 5*sigma+1e-9)
	}
}

func TestSimLongerGame(t *testing.T) {
	is := is.New(t)
	track, err := planner.TrackFor(planner.ModeUnique)
	is.NoErr(err)
	state := planner.State{Position: 0, Turns: 7, RefineLeft: 3, StabilizeLeft: 3}
	simmer := &Simmer{}
	simmer.SetThreads(4)
	is.NoErr(simmer.Init(track, state))
	is.NoErr(simmer.Simulate(context.Background(), 10000))
	table := planner.Solve(track, 7, 3, 3)
	for _, r := range simmer.Results() {
		exact, ok := table.ActionValue(state, r.Action)
		is.True(ok)
		sigma := math.Sqrt(exact * (1 - exact) / float64(r.Iterations))
		is.True(math.Abs(r.WinProb-exact) < 5*sigma+1e-9)
	}
}

func TestSimTerminalState(t *testing.T) {
	is := is.New(t)
	simmer := &Simmer{}
	simmer.SetThreads(1)
	is.NoErr(simmer.Init(modeOne(t), planner.State{Position: 15, Turns: 0, RefineLeft: 1, StabilizeLeft: 0}))
	is.NoErr(simmer.Simulate(context.Background(), 50))
	res := simmer.Results()
	is.Equal(len(res), int(planner.NumActions))
	is.Equal(res[planner.Strike].WinProb, 1.0)
	is.Equal(res[planner.Refine].WinProb, 1.0)
	is.True(!res[planner.Stabilize].Available)
	is.Equal(res[planner.Stabilize].Iterations, 0)
	is.Equal(len(simmer.FinalPositions(planner.Strike)), 50)
	is.Equal(simmer.FinalPositions(planner.Strike)[0], 15.0)
}

func TestSimStoppingCondition(t *testing.T) {
	is := is.New(t)
	simmer := &Simmer{}
	simmer.SetThreads(1)
	simmer.SetStoppingCondition(Stop95)
	simmer.SetTolerance(0.2)
	simmer.SetCheckInterval(100)
	is.NoErr(simmer.Init(modeOne(t), planner.State{Position: 4, Turns: 5, RefineLeft: 2, StabilizeLeft: 2}))
	is.NoErr(simmer.Simulate(context.Background(), 100000))
	is.True(simmer.Iterations() < 100000)
	is.True(!simmer.IsSimming())
}

func TestSimNeedsAnEnd(t *testing.T) {
	is := is.New(t)
	simmer := &Simmer{}
	is.True(simmer.Simulate(context.Background(), 10) != nil)
	is.NoErr(simmer.Init(modeOne(t), planner.State{Position: 4, Turns: 5}))
	is.True(simmer.Simulate(context.Background(), 0) != nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	is.NoErr(simmer.Simulate(ctx, 0))
}

func TestSimLog(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	simmer := &Simmer{}
	simmer.SetThreads(1)
	simmer.SetLogStream(&buf)
	is.NoErr(simmer.Init(modeOne(t), planner.State{Position: 3, Turns: 3, RefineLeft: 0, StabilizeLeft: 1}))
	is.NoErr(simmer.Simulate(context.Background(), 10))

	var iters []LogIteration
	is.NoErr(yaml.Unmarshal(buf.Bytes(), &iters))
	is.Equal(len(iters), 10)
	for i, it := range iters {
		is.Equal(it.Iteration, i)
		is.Equal(len(it.Games), 2)
		is.Equal(it.Games[0].Action, "strike")
		is.Equal(it.Games[0].Moves[0], "strike")
		is.True(len(it.Games[0].Path) <= 3)
		is.Equal(it.Games[0].Final, it.Games[0].Path[len(it.Games[0].Path)-1])
	}
}

func TestStatistic(t *testing.T) {
	is := is.New(t)
	var s Statistic
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Push(v)
	}
	is.Equal(s.Count(), 8)
	is.Equal(s.Mean(), 5.0)
	is.True(math.Abs(s.Variance()-32.0/7) < 1e-12)
}

func TestShouldStop(t *testing.T) {
	is := is.New(t)
	strong := &simmedAction{action: planner.Strike}
	weak := &simmedAction{action: planner.Refine}
	for i := 0; i < 1000; i++ {
		strong.record(15, i%10 != 0)
		weak.record(3, i%10 == 0)
	}
	is.True(!shouldStop([]*simmedAction{strong, weak}, StopNone, 1))
	is.True(shouldStop([]*simmedAction{strong, weak}, Stop99, 0.001))
	is.True(weak.ignore)
	is.True(!strong.ignore)

	a := &simmedAction{action: planner.Strike}
	b := &simmedAction{action: planner.Stabilize}
	for i := 0; i < 20; i++ {
		a.record(15, i%2 == 0)
		b.record(15, i%2 == 1)
	}
	is.True(!shouldStop([]*simmedAction{a, b}, Stop95, 0.01))
	is.True(shouldStop([]*simmedAction{a, b}, Stop95, 0.5))
}
