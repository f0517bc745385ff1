package planner

import (
	"errors"
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func mustTrack(t *testing.T, mode Mode) *Track {
	t.Helper()
	track, err := TrackFor(mode)
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func TestTracks(t *testing.T) {
	is := is.New(t)
	one := mustTrack(t, ModeSuperEpic)
	is.Equal(one.Turns, 8)
	is.Equal(one.MaxTier(), 4)
	is.Equal(one.WinningPositions(), []int{15})
	is.Equal(TierName(one.TierAt(15)), "super-epic")

	two := mustTrack(t, ModeUnique)
	is.Equal(two.Turns, 7)
	is.Equal(two.WinningPositions(), []int{13, 15})
	is.True(!two.IsWin(16))
	is.True(two.IsWin(99) == two.IsWin(16))

	_, err := TrackFor(Mode(3))
	is.True(errors.Is(err, ErrUnknownMode))
	_, err = NewTrack("short", []int{1, 2, 3}, 4)
	is.True(errors.Is(err, ErrInvalidTrack))

	m, err := ParseMode("unique")
	is.NoErr(err)
	is.Equal(m, ModeUnique)
	_, err = ParseMode("legendary")
	is.True(errors.Is(err, ErrUnknownMode))
}

func TestWorkedExample(t *testing.T) {
	is := is.New(t)
	plan, err := PlanProbabilities(10, 2, 3, 3, mustTrack(t, ModeSuperEpic))
	is.NoErr(err)

	p, ok := plan.Probability(Strike)
	is.True(ok)
	assert.InDelta(t, 0.15, p, 1e-9)
	p, ok = plan.Probability(Refine)
	is.True(ok)
	assert.InDelta(t, 1.0/6, p, 1e-9)
	p, ok = plan.Probability(Stabilize)
	is.True(ok)
	assert.InDelta(t, 0.23, p, 1e-9)

	rec, ok := plan.Recommend()
	is.True(ok)
	is.Equal(rec, Stabilize)
}

func TestBaseCase(t *testing.T) {
	is := is.New(t)
	track := mustTrack(t, ModeSuperEpic)
	for pos := 0; pos < NumPositions; pos++ {
		plan, err := PlanProbabilities(pos, 0, 2, 1, track)
		is.NoErr(err)
		want := 0.0
		if pos == 15 {
			want = 1
		}
		for _, o := range plan.Outcomes {
			is.True(o.Available)
			is.Equal(o.Probability, want)
		}
	}
}

func TestTerminalPosition(t *testing.T) {
	is := is.New(t)
	plan, err := PlanProbabilities(20, 5, 3, 3, mustTrack(t, ModeSuperEpic))
	is.NoErr(err)
	is.Equal(plan.State.Position, TerminalPosition)
	for _, o := range plan.Outcomes {
		is.Equal(o.Probability, 0.0)
	}
}

func TestUnavailableIsNotZero(t *testing.T) {
	is := is.New(t)
	plan, err := PlanProbabilities(10, 2, 0, 3, mustTrack(t, ModeSuperEpic))
	is.NoErr(err)
	_, ok := plan.Probability(Refine)
	is.True(!ok)
	s, ok := plan.Probability(Strike)
	is.True(ok)
	assert.InDelta(t, 0.15, s, 1e-9)

	plan, err = PlanProbabilities(10, 2, 0, 0, mustTrack(t, ModeSuperEpic))
	is.NoErr(err)
	rec, ok := plan.Recommend()
	is.True(ok)
	is.Equal(rec, Strike)
}

func TestInvalidUses(t *testing.T) {
	is := is.New(t)
	track := mustTrack(t, ModeUnique)
	_, err := PlanProbabilities(3, 3, 4, 0, track)
	is.True(errors.Is(err, ErrInvalidState))
	_, err = PlanProbabilities(3, 3, 0, -1, track)
	is.True(errors.Is(err, ErrInvalidState))
	_, err = PlanProbabilities(3, 3, 0, 0, nil)
	is.True(errors.Is(err, ErrInvalidState))
}

func TestTurnsClampedToTrack(t *testing.T) {
	is := is.New(t)
	track := mustTrack(t, ModeUnique)
	a, err := PlanProbabilities(-4, 50, 3, 3, track)
	is.NoErr(err)
	b, err := PlanProbabilities(0, track.Turns, 3, 3, track)
	is.NoErr(err)
	is.Equal(a.State, b.State)
	is.Equal(a.Outcomes, b.Outcomes)
}

func TestDeterministic(t *testing.T) {
	is := is.New(t)
	track := mustTrack(t, ModeUnique)
	a, err := PlanProbabilities(4, 6, 2, 3, track)
	is.NoErr(err)
	b, err := PlanProbabilities(4, 6, 2, 3, track)
	is.NoErr(err)
	is.Equal(a.Outcomes, b.Outcomes)
}

func TestBounds(t *testing.T) {
	is := is.New(t)
	for _, mode := range []Mode{ModeSuperEpic, ModeUnique} {
		track := mustTrack(t, mode)
		table := Solve(track, track.Turns, MaxUses, MaxUses)
		for turn := 0; turn <= track.Turns; turn++ {
			for pos := 0; pos < NumPositions; pos++ {
				for r := 0; r <= MaxUses; r++ {
					for s := 0; s <= MaxUses; s++ {
						st := State{Position: pos, Turns: turn, RefineLeft: r, StabilizeLeft: s}
						v, ok := table.Value(st)
						is.True(ok)
						is.True(v >= 0 && v <= 1)
						for _, o := range table.Outcomes(st) {
							if o.Available {
								is.True(o.Probability >= 0 && o.Probability <= v+1e-12)
							}
						}
					}
				}
			}
		}
	}
}

// Only holds from the start; TestForcedMoveCanLoseWinningTile shows an extra
// turn hurting at position 15.
func TestMoreTurnsFromStart(t *testing.T) {
	is := is.New(t)
	track := mustTrack(t, ModeSuperEpic)
	table := Solve(track, 3, MaxUses, MaxUses)
	prev := -1.0
	for turn := 0; turn <= 3; turn++ {
		v, ok := table.Value(State{Position: 0, Turns: turn, RefineLeft: 3, StabilizeLeft: 3})
		is.True(ok)
		is.True(v >= prev)
		prev = v
	}
	is.True(prev > 0)
}

// Moves are forced, so standing on the winning cell with a turn left means
// stepping off it with Strike.
func TestForcedMoveCanLoseWinningTile(t *testing.T) {
	is := is.New(t)
	track := mustTrack(t, ModeSuperEpic)
	table := Solve(track, 1, 0, 0)
	v0, ok := table.ActionValue(State{Position: 15, Turns: 0}, Strike)
	is.True(ok)
	is.Equal(v0, 1.0)
	v1, ok := table.ActionValue(State{Position: 15, Turns: 1}, Strike)
	is.True(ok)
	is.Equal(v1, 0.0)
}

func TestOutsideTable(t *testing.T) {
	is := is.New(t)
	track := mustTrack(t, ModeSuperEpic)
	table := Solve(track, 2, 1, 1)
	for _, st := range []State{
		{Position: 0, Turns: 3},
		{Position: NumPositions, Turns: 1},
		{Position: 0, Turns: 1, RefineLeft: 2},
		{Position: 0, Turns: -1},
	} {
		is.True(!table.Contains(st))
		_, ok := table.Value(st)
		is.True(!ok)
		_, ok = table.ActionValue(st, Strike)
		is.True(!ok)
		_, ok = table.BestAction(st)
		is.True(!ok)
	}
}

func TestRecommendTieBreaks(t *testing.T) {
	track := mustTrack(t, ModeSuperEpic)
	cases := []struct {
		name      string
		pos       int
		refine    int
		stabilize int
		want      ActionKind
	}{
		{"limited beats unlimited", 15, 1, 0, Refine},
		{"more uses wins", 15, 2, 3, Stabilize},
		{"equal uses by order", 15, 3, 3, Refine},
		{"only unlimited", 15, 0, 0, Strike},
		{"all zero", 0, 1, 1, Refine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			plan, err := PlanProbabilities(tc.pos, 0, tc.refine, tc.stabilize, track)
			is.NoErr(err)
			got, ok := plan.Recommend()
			is.True(ok)
			is.Equal(got, tc.want)
		})
	}
}

func TestRecommendWithinEpsilon(t *testing.T) {
	is := is.New(t)
	plan := &Plan{
		State: State{RefineLeft: 1, StabilizeLeft: 2},
		Outcomes: [NumActions]Outcome{
			{Action: Strike, Available: true, Probability: 0.5 + 1e-10},
			{Action: Refine, Available: true, Probability: 0.5},
			{Action: Stabilize, Available: true, Probability: 0.4},
		},
	}
	got, ok := plan.Recommend()
	is.True(ok)
	is.Equal(got, Refine)

	plan.Outcomes[Strike].Probability = 0.6
	got, _ = plan.Recommend()
	is.Equal(got, Strike)
}

func TestParseAction(t *testing.T) {
	is := is.New(t)
	a, err := ParseAction("Stabilize")
	is.NoErr(err)
	is.Equal(a, Stabilize)
	a, err = ParseAction("1")
	is.NoErr(err)
	is.Equal(a, Strike)
	_, err = ParseAction("dodge")
	is.True(err != nil)
}
