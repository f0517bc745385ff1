package puzzle

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/domino14/lapidary/cache"
	"github.com/domino14/lapidary/config"
)

type pieceDoc struct {
	ID        string   `yaml:"id"`
	Rarity    string   `yaml:"rarity"`
	Attribute string   `yaml:"attribute"`
	Shape     []string `yaml:"shape"`
	Rotate    bool     `yaml:"rotate"`
}

type inventoryDoc struct {
	Board  []string   `yaml:"board"`
	Role   string     `yaml:"role"`
	Pieces []pieceDoc `yaml:"pieces"`
}

// Inventory is a parsed inventory file. Board and Role are optional.
type Inventory struct {
	Board  *Board
	Role   string
	Pieces []*Piece
}

// utf8Reader reads all of r. Input that is not valid UTF-8 is taken to be
// ISO 8859-1, which is what spreadsheet exports tend to produce.
func utf8Reader(r io.Reader) (io.Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(raw) {
		return bytes.NewReader(raw), nil
	}
	dec, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(dec), nil
}

// ReadInventory parses a YAML inventory. Shapes are pictures with '#' for
// a filled cell.
func ReadInventory(r io.Reader) (*Inventory, error) {
	r, err := utf8Reader(r)
	if err != nil {
		return nil, err
	}
	var doc inventoryDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding inventory: %w", err)
	}
	inv := &Inventory{Role: doc.Role}
	if len(doc.Board) > 0 {
		b, err := ParseBoard(doc.Board)
		if err != nil {
			return nil, err
		}
		inv.Board = b
	}
	for i, pd := range doc.Pieces {
		rarity, err := ParseRarity(pd.Rarity)
		if err != nil {
			return nil, fmt.Errorf("piece %d: %w", i, err)
		}
		shape, err := ParseShape(pd.Shape)
		if err != nil {
			return nil, fmt.Errorf("piece %q: %w", pd.ID, err)
		}
		p, err := NewPiece(pd.ID, rarity, Attribute(pd.Attribute), shape, pd.Rotate)
		if err != nil {
			return nil, err
		}
		inv.Pieces = append(inv.Pieces, p)
	}
	return inv, nil
}

func LoadInventory(path string) (*Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadInventory(f)
}

type roleDoc struct {
	Name       string   `yaml:"name"`
	Attributes []string `yaml:"attributes"`
}

type catalogDoc struct {
	Attributes []string       `yaml:"attributes"`
	Roles      []roleDoc      `yaml:"roles"`
	Weights    map[string]int `yaml:"weights"`
}

// ReadCatalog parses a YAML catalog and validates it.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	r, err := utf8Reader(r)
	if err != nil {
		return nil, err
	}
	var doc catalogDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	attrs := make([]Attribute, len(doc.Attributes))
	for i, a := range doc.Attributes {
		attrs[i] = Attribute(a)
	}
	roles := make([]*Role, len(doc.Roles))
	for i, rd := range doc.Roles {
		role := &Role{Name: rd.Name}
		for _, a := range rd.Attributes {
			role.Attributes = append(role.Attributes, Attribute(a))
		}
		roles[i] = role
	}
	weights := map[Rarity]int{}
	for name, w := range doc.Weights {
		r, err := ParseRarity(name)
		if err != nil {
			return nil, err
		}
		weights[r] = w
	}
	return NewCatalog(attrs, roles, weights)
}

func loadCatalogFile(cfg *config.Config, path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCatalog(f)
}

// LoadCatalog returns the catalog named by the catalog-path key, or the
// default catalog if none is set. Parsed files are cached.
func LoadCatalog(cfg *config.Config) (*Catalog, error) {
	path := cfg.GetString(config.ConfigCatalogPath)
	if path == "" {
		return DefaultCatalog(), nil
	}
	obj, err := cache.Load(cfg, path, loadCatalogFile)
	if err != nil {
		return nil, err
	}
	return obj.(*Catalog), nil
}
