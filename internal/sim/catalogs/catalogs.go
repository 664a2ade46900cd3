package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"factorytycoon.dev/internal/sim/tuning"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

type Kind string

const (
	KindSource     Kind = "source"
	KindMultiplier Kind = "multiplier"
	KindDecoration Kind = "decoration"
	KindStructure  Kind = "structure"
)

// Effect is the category-specific part of an item. It is one of Source,
// Multiplier, Decoration or Structure.
type Effect interface {
	Kind() Kind
}

// Source periodically emits objects worth Value onto Lane.
type Source struct {
	Value    int64
	Interval time.Duration
	Lane     string
}

// Multiplier scales the value of every passing object on Lane once.
type Multiplier struct {
	Factor int64
	Lane   string
}

type Decoration struct{}

type Structure struct{}

func (Source) Kind() Kind     { return KindSource }
func (Multiplier) Kind() Kind { return KindMultiplier }
func (Decoration) Kind() Kind { return KindDecoration }
func (Structure) Kind() Kind  { return KindStructure }

type Item struct {
	ID       string
	Name     string
	Cost     int64
	Requires string // empty when the item has no prerequisite
	Effect   Effect

	// Progress-axis position and presentation height of the machine.
	X float64
	Y float64

	// Presentation hints, passed through untouched.
	Model string
	Color string
}

func (it Item) Kind() Kind {
	if it.Effect == nil {
		return KindDecoration
	}
	return it.Effect.Kind()
}

// Lane returns the lane of a source or multiplier.
func (it Item) Lane() (string, bool) {
	switch e := it.Effect.(type) {
	case Source:
		return e.Lane, true
	case Multiplier:
		return e.Lane, true
	}
	return "", false
}

// Owned reports whether an item id has been purchased.
type Owned interface {
	Owns(id string) bool
}

// Set is a plain Owned implementation.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Owns(id string) bool {
	_, ok := s[id]
	return ok
}

// Catalog is the read-only shop progression.
type Catalog struct {
	items  []Item
	index  map[string]int
	Digest string
}

type itemDef struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Cost       int64   `yaml:"cost"`
	Kind       string  `yaml:"kind"`
	Requires   string  `yaml:"requires"`
	Value      int64   `yaml:"value"`
	IntervalMS int     `yaml:"interval_ms"`
	Factor     int64   `yaml:"factor"`
	Lane       string  `yaml:"lane"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Model      string  `yaml:"model"`
	Color      string  `yaml:"color"`
}

type catalogFile struct {
	Items []itemDef `yaml:"items"`
}

// Default returns the built-in progression.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	items := make([]Item, 0, len(f.Items))
	for i, d := range f.Items {
		it, err := d.toItem()
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, d.ID, err)
		}
		items = append(items, it)
	}
	c, err := New(items)
	if err != nil {
		return nil, err
	}
	c.Digest = sha256Hex(raw)
	return c, nil
}

func (d itemDef) toItem() (Item, error) {
	it := Item{
		ID:       d.ID,
		Name:     d.Name,
		Cost:     d.Cost,
		Requires: d.Requires,
		X:        d.X,
		Y:        d.Y,
		Model:    d.Model,
		Color:    d.Color,
	}
	switch Kind(d.Kind) {
	case KindSource:
		it.Effect = Source{Value: d.Value, Interval: time.Duration(d.IntervalMS) * time.Millisecond, Lane: d.Lane}
	case KindMultiplier:
		it.Effect = Multiplier{Factor: d.Factor, Lane: d.Lane}
	case KindDecoration:
		it.Effect = Decoration{}
	case KindStructure:
		it.Effect = Structure{}
	default:
		return it, fmt.Errorf("unknown kind %q", d.Kind)
	}
	return it, nil
}

// New validates items and builds a catalog keeping their order.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, len(items)),
		index: make(map[string]int, len(items)),
	}
	copy(c.items, items)
	for i, it := range c.items {
		if it.ID == "" {
			return nil, fmt.Errorf("item %d: empty id", i)
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %q", it.ID)
		}
		if it.Cost < 0 {
			return nil, fmt.Errorf("item %s: negative cost", it.ID)
		}
		if it.Effect == nil {
			return nil, fmt.Errorf("item %s: missing effect", it.ID)
		}
		switch e := it.Effect.(type) {
		case Source:
			if e.Value < 0 {
				return nil, fmt.Errorf("item %s: negative value", it.ID)
			}
			if e.Interval <= 0 {
				return nil, fmt.Errorf("item %s: spawn interval must be positive", it.ID)
			}
			if e.Lane == "" {
				return nil, fmt.Errorf("item %s: missing lane", it.ID)
			}
		case Multiplier:
			if e.Factor <= 0 {
				return nil, fmt.Errorf("item %s: factor must be positive", it.ID)
			}
			if e.Lane == "" {
				return nil, fmt.Errorf("item %s: missing lane", it.ID)
			}
		}
		c.index[it.ID] = i
	}
	for _, it := range c.items {
		if it.Requires == "" {
			continue
		}
		if _, ok := c.index[it.Requires]; !ok {
			return nil, fmt.Errorf("item %s: unknown prerequisite %q", it.ID, it.Requires)
		}
	}
	// Every prerequisite chain must reach a root within len(items) hops.
	for _, it := range c.items {
		cur := it
		for hops := 0; cur.Requires != ""; hops++ {
			if hops >= len(c.items) {
				return nil, fmt.Errorf("item %s: prerequisite cycle", it.ID)
			}
			cur = c.items[c.index[cur.Requires]]
		}
	}
	c.Digest = sha256Hex([]byte(fmt.Sprint(ids(c.items))))
	return c, nil
}

// ItemsInPrerequisiteOrder returns the items in declaration order.
func (c *Catalog) ItemsInPrerequisiteOrder() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Item(id string) (Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Len() int { return len(c.items) }

// IsUnlocked reports whether the prerequisite of it is absent or owned.
func IsUnlocked(it Item, owned Owned) bool {
	return it.Requires == "" || (owned != nil && owned.Owns(it.Requires))
}

// ValidateLanes checks that every machine sits on a known lane.
func (c *Catalog) ValidateLanes(lanes map[string]float64) error {
	for _, it := range c.items {
		lane, ok := it.Lane()
		if !ok {
			continue
		}
		if _, known := lanes[lane]; !known {
			return fmt.Errorf("item %s: unknown lane %q", it.ID, lane)
		}
	}
	return nil
}

// ValidateLayout checks lanes and that every machine sits before the far edge
// of the collector. Objects stop advancing at the collector, so anything
// spawned beyond it would never be collected.
func (c *Catalog) ValidateLayout(t tuning.Tuning) error {
	if err := c.ValidateLanes(t.Lanes); err != nil {
		return err
	}
	reach := t.Collector.X + t.Collector.Window.Progress
	for _, it := range c.items {
		if _, ok := it.Lane(); !ok {
			continue
		}
		if it.X >= reach {
			return fmt.Errorf("item %s: x=%.3f is past the collector (limit %.3f)", it.ID, it.X, reach)
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
