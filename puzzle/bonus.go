package puzzle

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidBonus = errors.New("invalid bonus schedule")

// BonusSchedule pays Increment once for every threshold an attribute's
// small-piece cell count reaches.
type BonusSchedule struct {
	Thresholds []int
	Increment  int
}

func DefaultBonus() BonusSchedule {
	return BonusSchedule{Thresholds: []int{9, 12, 15, 18, 21}, Increment: 265}
}

func (b BonusSchedule) Validate() error {
	if len(b.Thresholds) == 0 {
		return fmt.Errorf("%w: no thresholds", ErrInvalidBonus)
	}
	if b.Increment < 0 {
		return fmt.Errorf("%w: negative increment %d", ErrInvalidBonus, b.Increment)
	}
	for i, t := range b.Thresholds {
		if t <= 0 || (i > 0 && t <= b.Thresholds[i-1]) {
			return fmt.Errorf("%w: thresholds must be positive and ascending: %v", ErrInvalidBonus, b.Thresholds)
		}
	}
	return nil
}

// Steps is the number of thresholds reached with cells.
func (b BonusSchedule) Steps(cells int) int {
	n := 0
	for _, t := range b.Thresholds {
		if cells >= t {
			n++
		}
	}
	return n
}

func (b BonusSchedule) Bonus(cells int) int {
	return b.Steps(cells) * b.Increment
}

// Lowest and Highest are the smallest and largest thresholds.
func (b BonusSchedule) Lowest() int {
	return b.Thresholds[0]
}

func (b BonusSchedule) Highest() int {
	return b.Thresholds[len(b.Thresholds)-1]
}

// Descending returns the thresholds from highest to lowest.
func (b BonusSchedule) Descending() []int {
	d := slices.Clone(b.Thresholds)
	slices.Reverse(d)
	return d
}

// Near reports whether cells is within window of any threshold.
func (b BonusSchedule) Near(cells, window int) bool {
	for _, t := range b.Thresholds {
		if abs(cells-t) <= window {
			return true
		}
	}
	return false
}
