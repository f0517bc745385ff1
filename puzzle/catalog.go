package puzzle

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrUnknownRole      = errors.New("unknown role")
	ErrEmptyRole        = errors.New("role has no attributes")
)

type Role struct {
	Name       string
	Attributes []Attribute
}

func (r *Role) HasAttribute(a Attribute) bool {
	return slices.Contains(r.Attributes, a)
}

// Matches reports whether p can earn r a bonus. Small pieces match on
// attribute; unique pieces match on role name or the wildcard.
func Matches(p *Piece, r *Role) bool {
	if p.IsUnique() {
		return p.Attribute == Attribute(r.Name) || p.Attribute == AllRoles
	}
	return p.IsSmall() && r.HasAttribute(p.Attribute)
}

// Catalog is the validated set of attributes, roles and rarity weights.
type Catalog struct {
	Attributes []Attribute
	Roles      []*Role
	Weights    [NumRarities]int
}

// fingerprint encodes everything in the catalog that affects scoring.
func (c *Catalog) fingerprint() []byte {
	b := fmt.Appendf(nil, "%v|%v", c.Weights, c.Attributes)
	for _, r := range c.Roles {
		b = fmt.Appendf(b, "|%s:%v", r.Name, r.Attributes)
	}
	return b
}

// NewCatalog checks that every role refers to known attributes and every
// rarity has a weight.
func NewCatalog(attrs []Attribute, roles []*Role, weights map[Rarity]int) (*Catalog, error) {
	c := &Catalog{Attributes: slices.Clone(attrs)}
	for r := Rarity(0); r < NumRarities; r++ {
		w, ok := weights[r]
		if !ok {
			return nil, fmt.Errorf("%w: no weight for %s", ErrUnknownRarity, r)
		}
		c.Weights[r] = w
	}
	for r := range weights {
		if r < 0 || r >= NumRarities {
			return nil, fmt.Errorf("%w: %d", ErrUnknownRarity, r)
		}
	}
	seen := map[string]bool{}
	for _, role := range roles {
		if len(role.Attributes) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyRole, role.Name)
		}
		if seen[role.Name] {
			return nil, fmt.Errorf("%w: %s defined twice", ErrUnknownRole, role.Name)
		}
		seen[role.Name] = true
		for _, a := range role.Attributes {
			if !slices.Contains(c.Attributes, a) {
				return nil, fmt.Errorf("%w: %s in role %s", ErrUnknownAttribute, a, role.Name)
			}
		}
		c.Roles = append(c.Roles, &Role{Name: role.Name, Attributes: slices.Clone(role.Attributes)})
	}
	return c, nil
}

// DefaultCatalog is the game's built-in attribute and role table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		[]Attribute{"radiance", "pierce", "element", "shatter", "blessing", "brand", "regen"},
		[]*Role{
			{Name: "dealer", Attributes: []Attribute{"radiance", "pierce", "element", "shatter"}},
			{Name: "tank", Attributes: []Attribute{"shatter", "brand", "regen"}},
			{Name: "healer", Attributes: []Attribute{"blessing", "regen", "radiance"}},
		},
		map[Rarity]int{Rare: 30, Epic: 60, SuperEpic: 120, Unique: 250},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Role(name string) (*Role, error) {
	for _, r := range c.Roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

func (c *Catalog) Weight(r Rarity) int {
	return c.Weights[r]
}

// PieceValue is the base score of placing p.
func (c *Catalog) PieceValue(p *Piece) int {
	return c.Weights[p.Rarity] * p.Size()
}

// ValidatePieces checks an inventory against the catalog.
func (c *Catalog) ValidatePieces(pieces []*Piece) error {
	ids := map[string]bool{}
	for _, p := range pieces {
		if ids[p.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePiece, p.ID)
		}
		ids[p.ID] = true
		if len(p.Variants) == 0 {
			return fmt.Errorf("%w: %s has no shape", ErrInvalidPiece, p.ID)
		}
		if err := p.validateShape(); err != nil {
			return err
		}
		for _, v := range p.Variants[1:] {
			if len(v) != p.Size() {
				return fmt.Errorf("%w: %s variants differ in size", ErrInvalidPiece, p.ID)
			}
		}
		if p.Rarity < 0 || p.Rarity >= NumRarities {
			return fmt.Errorf("%w: %s", ErrUnknownRarity, p.ID)
		}
		if p.IsUnique() {
			if p.Attribute == AllRoles {
				continue
			}
			if _, err := c.Role(string(p.Attribute)); err != nil {
				return fmt.Errorf("unique %s: %w", p.ID, err)
			}
			continue
		}
		if !slices.Contains(c.Attributes, p.Attribute) {
			return fmt.Errorf("%w: %s on %s", ErrUnknownAttribute, p.Attribute, p.ID)
		}
	}
	return nil
}
