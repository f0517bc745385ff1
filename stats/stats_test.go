package stats

import (
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
)

func TestZVal(t *testing.T) {
	assert.InDelta(t, 1.959964, ZVal(95), 1e-5)
	assert.InDelta(t, 2.575829, ZVal(99), 1e-5)
}

func TestTally(t *testing.T) {
	is := is.New(t)
	type tc struct {
		outcomes []bool
		mean     float64
		stderr   float64
	}
	cases := []tc{
		{[]bool{}, 0, 0},
		{[]bool{true}, 1, 0},
		{[]bool{true, false}, 0.5, 0.3535533905932738},
		{[]bool{true, false, false, false}, 0.25, 0.21650635094610965},
	}
	for _, c := range cases {
		tally := &Tally{}
		for _, o := range c.outcomes {
			tally.Push(o)
		}
		is.Equal(tally.Trials(), len(c.outcomes))
		is.True(FuzzyEqual(tally.Mean(), c.mean))
		is.True(FuzzyEqual(tally.StandardError(), c.stderr))
	}
}

func TestIntervalStaysInBounds(t *testing.T) {
	is := is.New(t)
	z := ZVal(99)
	all := &Tally{}
	none := &Tally{}
	for i := 0; i < 50; i++ {
		all.Push(true)
		none.Push(false)
	}
	lo, hi := all.Interval(z)
	is.True(lo > 0.8 && lo < 1)
	is.True(hi > 1-Epsilon && hi <= 1)
	lo, hi = none.Interval(z)
	is.True(lo >= 0 && lo < Epsilon)
	is.True(hi > 0 && hi < 0.2)

	empty := &Tally{}
	lo, hi = empty.Interval(z)
	is.Equal(lo, 0.0)
	is.Equal(hi, 1.0)
}

func TestMerge(t *testing.T) {
	is := is.New(t)
	a := Tally{}
	b := Tally{}
	a.Push(true)
	b.Push(false)
	b.Push(true)
	a.Merge(b)
	is.Equal(a.Trials(), 3)
	is.Equal(a.Successes(), 2)
}
