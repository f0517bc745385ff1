package puzzle

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"
)

var defaultWeights = map[Rarity]int{Rare: 30, Epic: 60, SuperEpic: 120, Unique: 250}

func TestNewCatalogFailsFast(t *testing.T) {
	is := is.New(t)
	attrs := []Attribute{"radiance", "pierce"}

	_, err := NewCatalog(attrs, []*Role{{Name: "dealer", Attributes: []Attribute{"radiance", "frost"}}}, defaultWeights)
	is.True(errors.Is(err, ErrUnknownAttribute))

	_, err = NewCatalog(attrs, []*Role{{Name: "dealer"}}, defaultWeights)
	is.True(errors.Is(err, ErrEmptyRole))

	_, err = NewCatalog(attrs, []*Role{{Name: "dealer", Attributes: attrs}}, map[Rarity]int{Rare: 1})
	is.True(errors.Is(err, ErrUnknownRarity))

	c, err := NewCatalog(attrs, []*Role{{Name: "dealer", Attributes: attrs}}, defaultWeights)
	is.NoErr(err)
	_, err = c.Role("tank")
	is.True(errors.Is(err, ErrUnknownRole))
}

func TestMatches(t *testing.T) {
	c := DefaultCatalog()
	dealer, _ := c.Role("dealer")
	uniqueRows := []string{"####", "####"}
	cases := []struct {
		name  string
		piece *Piece
		want  bool
	}{
		{"small role attribute", mustPiece(t, "a", Epic, "pierce", false, "##"), true},
		{"small other attribute", mustPiece(t, "b", Epic, "brand", false, "##"), false},
		{"unique own role", mustPiece(t, "c", Unique, "dealer", false, uniqueRows...), true},
		{"unique wildcard", mustPiece(t, "d", Unique, AllRoles, false, uniqueRows...), true},
		{"unique other role", mustPiece(t, "e", Unique, "tank", false, uniqueRows...), false},
		{"unique tagged with attribute", mustPiece(t, "f", Unique, "pierce", false, uniqueRows...), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(Matches(tc.piece, dealer), tc.want)
		})
	}
}

func TestValidatePieces(t *testing.T) {
	is := is.New(t)
	c := DefaultCatalog()
	ok := []*Piece{
		mustPiece(t, "a", Rare, "regen", false, "#"),
		mustPiece(t, "u", Unique, "healer", true, "####", "####"),
	}
	is.NoErr(c.ValidatePieces(ok))

	dup := []*Piece{ok[0], mustPiece(t, "a", Epic, "regen", false, "##")}
	is.True(errors.Is(c.ValidatePieces(dup), ErrDuplicatePiece))

	unknown := []*Piece{mustPiece(t, "z", Epic, "frost", false, "##")}
	is.True(errors.Is(c.ValidatePieces(unknown), ErrUnknownAttribute))

	badRole := []*Piece{mustPiece(t, "u2", Unique, "bard", false, "####", "####")}
	is.True(errors.Is(c.ValidatePieces(badRole), ErrUnknownRole))

	_, err := NewPiece("big", Epic, "regen", mustShape(t, "######"), false)
	is.True(errors.Is(err, ErrInvalidPiece))
	_, err = NewPiece("short", Unique, "healer", mustShape(t, "####"), false)
	is.True(errors.Is(err, ErrInvalidPiece))
}

func TestReadInventory(t *testing.T) {
	is := is.New(t)
	doc := `
role: tank
board:
  - "......."
  - "......."
  - "...#..."
  - "......."
  - "......."
  - "......."
  - "......."
pieces:
  - id: t1
    rarity: super-epic
    attribute: brand
    rotate: true
    shape:
      - "#."
      - "##"
  - id: u1
    rarity: unique
    attribute: all-roles
    shape:
      - "####"
      - "####"
`
	inv, err := ReadInventory(strings.NewReader(doc))
	is.NoErr(err)
	is.Equal(inv.Role, "tank")
	is.Equal(inv.Board.OpenCount(), 48)
	is.Equal(len(inv.Pieces), 2)
	is.Equal(inv.Pieces[0].Rarity, SuperEpic)
	is.Equal(inv.Pieces[0].Size(), 3)
	is.Equal(len(inv.Pieces[0].Variants), 4)
	is.True(inv.Pieces[1].IsUnique())
	is.NoErr(DefaultCatalog().ValidatePieces(inv.Pieces))

	_, err = ReadInventory(strings.NewReader("pieces:\n  - id: x\n    rarity: mythic\n    shape: ['#']\n"))
	is.True(errors.Is(err, ErrUnknownRarity))
}

func TestReadInventoryLatin1(t *testing.T) {
	is := is.New(t)
	// "\xe9" is e-acute in ISO 8859-1 and invalid on its own in UTF-8.
	doc := "pieces:\n  - id: caf\xe9\n    rarity: rare\n    attribute: brand\n    shape: ['#']\n"
	inv, err := ReadInventory(strings.NewReader(doc))
	is.NoErr(err)
	is.Equal(inv.Pieces[0].ID, "café")
}

func TestReadCatalog(t *testing.T) {
	is := is.New(t)
	doc := `
attributes: [fire, ice]
roles:
  - name: mage
    attributes: [fire, ice]
weights:
  rare: 1
  epic: 2
  super-epic: 4
  unique: 8
`
	c, err := ReadCatalog(strings.NewReader(doc))
	is.NoErr(err)
	mage, err := c.Role("mage")
	is.NoErr(err)
	is.Equal(mage.Attributes, []Attribute{"fire", "ice"})
	is.Equal(c.Weight(SuperEpic), 4)

	_, err = ReadCatalog(strings.NewReader("attributes: [fire]\nroles:\n  - name: mage\n    attributes: [ice]\nweights: {rare: 1, epic: 1, super-epic: 1, unique: 1}\n"))
	is.True(errors.Is(err, ErrUnknownAttribute))
}
