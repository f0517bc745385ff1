package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// NumPositions is the length of every reward track.
	NumPositions = 17
	// TerminalPosition ends the game as soon as it is reached.
	TerminalPosition = NumPositions - 1
)

var (
	ErrUnknownMode  = errors.New("unknown reward mode")
	ErrInvalidTrack = errors.New("invalid reward track")
)

// Mode selects one of the reward track variants.
type Mode int

const (
	ModeSuperEpic Mode = 1
	ModeUnique    Mode = 2
)

var TierNames = []string{"none", "common", "rare", "epic", "super-epic", "unique", "legendary"}

func TierName(tier int) string {
	if tier < 0 || tier >= len(TierNames) {
		return "tier-" + strconv.Itoa(tier)
	}
	return TierNames[tier]
}

func (m Mode) String() string {
	switch m {
	case ModeSuperEpic:
		return "super-epic"
	case ModeUnique:
		return "unique"
	}
	return "mode-" + strconv.Itoa(int(m))
}

// ParseMode accepts either the numeric mode or its name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "super-epic", "superepic":
		return ModeSuperEpic, nil
	case "2", "unique":
		return ModeUnique, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Track is an immutable mapping from position to reward tier, together with
// the number of turns a game on it lasts.
type Track struct {
	Name    string
	Tiers   [NumPositions]int
	Turns   int
	maxTier int
}

// NewTrack validates and builds a track.
func NewTrack(name string, tiers []int, turns int) (*Track, error) {
	if len(tiers) != NumPositions {
		return nil, fmt.Errorf("%w: %d tiers, need %d", ErrInvalidTrack, len(tiers), NumPositions)
	}
	if turns < 0 {
		return nil, fmt.Errorf("%w: negative turn budget %d", ErrInvalidTrack, turns)
	}
	t := &Track{Name: name, Turns: turns}
	for i, tier := range tiers {
		if tier < 0 {
			return nil, fmt.Errorf("%w: negative tier at position %d", ErrInvalidTrack, i)
		}
		t.Tiers[i] = tier
		if tier > t.maxTier {
			t.maxTier = tier
		}
	}
	return t, nil
}

// TrackFor returns the track for a reward mode.
func TrackFor(mode Mode) (*Track, error) {
	switch mode {
	case ModeSuperEpic:
		return NewTrack(mode.String(),
			[]int{0, 2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 3, 3, 2, 2, 4, 2}, 8)
	case ModeUnique:
		return NewTrack(mode.String(),
			[]int{0, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 4, 3, 4, 2}, 7)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownMode, mode)
}

// Clamp keeps a position on the track.
func Clamp(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > TerminalPosition {
		return TerminalPosition
	}
	return pos
}

func (t *Track) TierAt(pos int) int {
	return t.Tiers[Clamp(pos)]
}

func (t *Track) MaxTier() int {
	return t.maxTier
}

// IsWin is true if pos holds the best tier on the track.
func (t *Track) IsWin(pos int) bool {
	return t.TierAt(pos) == t.maxTier
}

func (t *Track) terminal(pos int) float64 {
	if t.IsWin(pos) {
		return 1
	}
	return 0
}

// WinningPositions lists every position holding the best tier.
func (t *Track) WinningPositions() []int {
	var ps []int
	for i := range t.Tiers {
		if t.Tiers[i] == t.maxTier {
			ps = append(ps, i)
		}
	}
	return ps
}
