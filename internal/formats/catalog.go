// Package formats holds the fixed, ordered catalog of output slots together
// with the static Pairing Table and Composite Dependency Table.
package formats

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var defaultCatalog []byte

// Extension is appended to a format name to form its slot key.
const Extension = ".jpg"

// Format is one named output slot. Rules are opaque to the orchestrator and
// passed through to the rendering gateway untouched.
type Format struct {
	Name      string         `yaml:"name" json:"name"`
	Width     int            `yaml:"width" json:"width"`
	Height    int            `yaml:"height" json:"height"`
	Rules     map[string]any `yaml:"rules,omitempty" json:"rules,omitempty"`
	Pair      string         `yaml:"pair,omitempty" json:"pair,omitempty"`
	Composite []string       `yaml:"composite,omitempty" json:"composite,omitempty"`
}

// Slot returns the slot key, e.g. "SLOT1_WEB.jpg".
func (f Format) Slot() string {
	return SlotKey(f.Name)
}

// IsComposite reports whether the format is derived from other slots.
func (f Format) IsComposite() bool {
	return len(f.Composite) > 0
}

// SlotKey normalizes a format name or slot key to the slot key form.
func SlotKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

type catalogFile struct {
	Formats []Format `yaml:"formats"`
}

// Catalog is immutable once built.
type Catalog struct {
	formats    []Format
	index      map[string]int
	pairs      map[string]string
	composites map[string][]string
}

var ErrInvalidCatalog = errors.New("invalid format catalog")

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded format catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read formats file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode formats: %w", err)
	}
	return New(file.Formats)
}

// New builds a catalog from formats in display order.
func New(formats []Format) (*Catalog, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: no formats", ErrInvalidCatalog)
	}

	c := &Catalog{
		formats:    make([]Format, len(formats)),
		index:      make(map[string]int, len(formats)),
		pairs:      make(map[string]string),
		composites: make(map[string][]string),
	}
	copy(c.formats, formats)

	for i, f := range c.formats {
		key := f.Slot()
		if key == "" {
			return nil, fmt.Errorf("%w: format %d has no name", ErrInvalidCatalog, i)
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate format %s", ErrInvalidCatalog, f.Name)
		}
		if f.Width <= 0 || f.Height <= 0 {
			return nil, fmt.Errorf("%w: %s has non-positive dimensions", ErrInvalidCatalog, f.Name)
		}
		c.index[key] = i
	}

	if err := c.resolveCopyRules(); err != nil {
		return nil, err
	}
	if err := c.buildComposites(); err != nil {
		return nil, err
	}
	if err := c.buildPairs(); err != nil {
		return nil, err
	}
	return c, nil
}

// resolveCopyRules replaces "copy" rules with the rules of their source format.
func (c *Catalog) resolveCopyRules() error {
	for i, f := range c.formats {
		if f.Rules == nil || f.Rules["type"] != "copy" {
			continue
		}
		source, _ := f.Rules["source"].(string)
		j, ok := c.index[SlotKey(source)]
		if !ok {
			return fmt.Errorf("%w: %s copies rules from unknown format %q", ErrInvalidCatalog, f.Name, source)
		}
		if c.formats[j].Rules["type"] == "copy" {
			return fmt.Errorf("%w: %s copies rules from another copy (%s)", ErrInvalidCatalog, f.Name, source)
		}
		c.formats[i].Rules = c.formats[j].Rules
	}
	return nil
}

func (c *Catalog) buildComposites() error {
	for _, f := range c.formats {
		if !f.IsComposite() {
			continue
		}
		deps := make([]string, 0, len(f.Composite))
		seen := make(map[string]bool, len(f.Composite))
		for _, dep := range f.Composite {
			key := SlotKey(dep)
			j, ok := c.index[key]
			if !ok {
				return fmt.Errorf("%w: composite %s depends on unknown format %q", ErrInvalidCatalog, f.Name, dep)
			}
			if c.formats[j].IsComposite() {
				return fmt.Errorf("%w: composite %s depends on composite %s", ErrInvalidCatalog, f.Name, dep)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			deps = append(deps, key)
		}
		c.composites[f.Slot()] = deps
	}
	return nil
}

func (c *Catalog) buildPairs() error {
	for _, f := range c.formats {
		if f.Pair == "" {
			continue
		}
		a, b := f.Slot(), SlotKey(f.Pair)
		if a == b {
			return fmt.Errorf("%w: %s is paired with itself", ErrInvalidCatalog, f.Name)
		}
		j, ok := c.index[b]
		if !ok {
			return fmt.Errorf("%w: %s is paired with unknown format %q", ErrInvalidCatalog, f.Name, f.Pair)
		}
		if f.IsComposite() || c.formats[j].IsComposite() {
			return fmt.Errorf("%w: composite formats cannot be paired (%s, %s)", ErrInvalidCatalog, a, b)
		}
		if existing, ok := c.pairs[a]; ok && existing != b {
			return fmt.Errorf("%w: %s is paired with both %s and %s", ErrInvalidCatalog, a, existing, b)
		}
		if existing, ok := c.pairs[b]; ok && existing != a {
			return fmt.Errorf("%w: %s is paired with both %s and %s", ErrInvalidCatalog, b, existing, a)
		}
		c.pairs[a] = b
		c.pairs[b] = a
	}
	return nil
}

// Formats returns the catalog in display order.
func (c *Catalog) Formats() []Format {
	out := make([]Format, len(c.formats))
	copy(out, c.formats)
	return out
}

// Slots returns every slot key in display order.
func (c *Catalog) Slots() []string {
	out := make([]string, len(c.formats))
	for i, f := range c.formats {
		out[i] = f.Slot()
	}
	return out
}

// Lookup finds a format by slot key or bare name.
func (c *Catalog) Lookup(slot string) (Format, bool) {
	i, ok := c.index[SlotKey(slot)]
	if !ok {
		return Format{}, false
	}
	return c.formats[i], true
}

// Position returns the display index of slot.
func (c *Catalog) Position(slot string) (int, bool) {
	i, ok := c.index[SlotKey(slot)]
	return i, ok
}

// Has reports whether slot is in the catalog.
func (c *Catalog) Has(slot string) bool {
	_, ok := c.index[SlotKey(slot)]
	return ok
}

// Pair returns the mirror slot of slot, if any.
func (c *Catalog) Pair(slot string) (string, bool) {
	mirror, ok := c.pairs[SlotKey(slot)]
	return mirror, ok
}

// IsComposite reports whether slot is a composite.
func (c *Catalog) IsComposite(slot string) bool {
	_, ok := c.composites[SlotKey(slot)]
	return ok
}

// Dependencies returns the ordered source slots of a composite.
func (c *Catalog) Dependencies(composite string) []string {
	deps := c.composites[SlotKey(composite)]
	return append([]string(nil), deps...)
}

// Composites returns composite slot keys in display order.
func (c *Catalog) Composites() []string {
	var out []string
	for _, f := range c.formats {
		if f.IsComposite() {
			out = append(out, f.Slot())
		}
	}
	return out
}

// Renderable returns the non-composite slot keys in display order.
func (c *Catalog) Renderable() []string {
	var out []string
	for _, f := range c.formats {
		if !f.IsComposite() {
			out = append(out, f.Slot())
		}
	}
	return out
}

// DependentComposites returns, in display order, every composite whose
// dependency list contains at least one of slots.
func (c *Catalog) DependentComposites(slots ...string) []string {
	wanted := make(map[string]bool, len(slots))
	for _, s := range slots {
		wanted[SlotKey(s)] = true
	}
	var out []string
	for _, composite := range c.Composites() {
		for _, dep := range c.composites[composite] {
			if wanted[dep] {
				out = append(out, composite)
				break
			}
		}
	}
	return out
}
