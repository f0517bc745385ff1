package puzzle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPiece   = errors.New("invalid piece")
	ErrDuplicatePiece = errors.New("duplicate piece id")
	ErrUnknownRarity  = errors.New("unknown rarity")
)

const (
	MaxSmallSize = 5
	UniqueSize   = 8
)

type Rarity int

const (
	Rare Rarity = iota
	Epic
	SuperEpic
	Unique
	NumRarities
)

var rarityNames = [NumRarities]string{"rare", "epic", "super-epic", "unique"}

func (r Rarity) String() string {
	if r < 0 || r >= NumRarities {
		return fmt.Sprintf("rarity-%d", int(r))
	}
	return rarityNames[r]
}

func ParseRarity(s string) (Rarity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range rarityNames {
		if s == n || s == strings.ReplaceAll(n, "-", "") {
			return Rarity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRarity, s)
}

func (r Rarity) MarshalYAML() (any, error) {
	return r.String(), nil
}

// Attribute tags a piece. Unique pieces are tagged with a role name or
// AllRoles instead.
type Attribute string

const AllRoles Attribute = "all-roles"

// Piece is an immutable inventory entry. Variants holds every orientation
// the piece may be placed in; all have the same size.
type Piece struct {
	ID        string
	Rarity    Rarity
	Attribute Attribute
	Variants  []Shape
}

// NewPiece builds a piece from its base shape. If rotate is set every
// distinct rotation and reflection becomes a variant.
func NewPiece(id string, rarity Rarity, attr Attribute, shape Shape, rotate bool) (*Piece, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidPiece)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: %s has no cells", ErrInvalidPiece, id)
	}
	variants := []Shape{shape.normalize()}
	if rotate {
		variants = shape.Orientations(true)
	}
	p := &Piece{ID: id, Rarity: rarity, Attribute: attr, Variants: variants}
	if err := p.validateShape(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Piece) validateShape() error {
	seen := map[Cell]bool{}
	for _, c := range p.Variants[0] {
		if seen[c] {
			return fmt.Errorf("%w: %s repeats offset %v", ErrInvalidPiece, p.ID, c)
		}
		seen[c] = true
	}
	size := p.Size()
	switch {
	case p.Rarity == Unique && size != UniqueSize:
		return fmt.Errorf("%w: unique %s has %d cells, need %d", ErrInvalidPiece, p.ID, size, UniqueSize)
	case p.Rarity != Unique && (size < 1 || size > MaxSmallSize):
		return fmt.Errorf("%w: %s has %d cells, need 1-%d", ErrInvalidPiece, p.ID, size, MaxSmallSize)
	}
	return nil
}

func (p *Piece) Size() int {
	return len(p.Variants[0])
}

func (p *Piece) IsUnique() bool {
	return p.Size() == UniqueSize
}

func (p *Piece) IsSmall() bool {
	return p.Size() <= MaxSmallSize
}

func (p *Piece) Shapes() []Shape {
	return p.Variants
}

func (p *Piece) String() string {
	return fmt.Sprintf("%s[%s %s %d]", p.ID, p.Rarity, p.Attribute, p.Size())
}
