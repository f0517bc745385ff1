// Package stats holds the small amount of statistics the simulator needs to
// decide when an estimated win probability is precise enough.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	Epsilon = 1e-9
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// ZVal returns the two-tailed z-value for a confidence level given in
// percent, e.g. ZVal(95) ~ 1.96.
func ZVal(confidence float64) float64 {
	dist := distuv.Normal{Mu: 0, Sigma: 1}
	return dist.Quantile((1 + confidence/100) / 2)
}

// Tally counts the outcomes of a Bernoulli trial, e.g. whether a simulated
// game finished on the best reward tier.
type Tally struct {
	successes int
	trials    int
}

func (t *Tally) Push(success bool) {
	t.trials++
	if success {
		t.successes++
	}
}

// Merge folds another tally into this one.
func (t *Tally) Merge(o Tally) {
	t.successes += o.successes
	t.trials += o.trials
}

func (t *Tally) Successes() int {
	return t.successes
}

func (t *Tally) Trials() int {
	return t.trials
}

func (t *Tally) Mean() float64 {
	if t.trials == 0 {
		return 0
	}
	return float64(t.successes) / float64(t.trials)
}

// StandardError of the sample proportion.
func (t *Tally) StandardError() float64 {
	if t.trials == 0 {
		return 0
	}
	p := t.Mean()
	return math.Sqrt(p * (1 - p) / float64(t.trials))
}

// Interval returns the Wilson score interval for the given z-value. Unlike
// the normal approximation it stays inside [0, 1] and is usable when the
// proportion is 0 or 1, which happens a lot on a 17-cell track.
func (t *Tally) Interval(z float64) (float64, float64) {
	if t.trials == 0 {
		return 0, 1
	}
	n := float64(t.trials)
	p := t.Mean()
	z2 := z * z
	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	half := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}
