package resume

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var ErrNoTemplate = errors.New("no template registered")

// Template is the empty-value shape registered for a section or sub-section.
type Template struct {
	node *Node
}

func (t Template) Kind() Kind {
	return t.node.kind
}

// Node returns a deep copy of the whole template.
func (t Template) Node() *Node {
	return t.node.Clone()
}

// Entry returns a fresh copy of one new entry: the first element of a list
// template, or the record template itself.
func (t Template) Entry() *Node {
	switch t.node.kind {
	case KindList:
		return t.node.items[0].Clone()
	case KindRecord:
		return t.node.Clone()
	default:
		return String("")
	}
}

// Catalog maps known section names to their templates.
type Catalog struct {
	root *Node
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := LoadCatalog(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadCatalogFile reads and validates a YAML catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return LoadCatalog(data)
}

// LoadCatalog decodes a YAML catalog, keeping key order, and validates it.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	root, err := fromYAML(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{root: root}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func fromYAML(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return Record(), nil
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.ScalarNode:
		if y.Tag == "!!null" {
			return String(""), nil
		}
		return String(y.Value), nil
	case yaml.SequenceNode:
		list := List()
		for _, c := range y.Content {
			item, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			list.items = append(list.items, item)
		}
		return list, nil
	case yaml.MappingNode:
		rec := Record()
		for i := 0; i+1 < len(y.Content); i += 2 {
			k := y.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			value, err := fromYAML(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			rec.set(k.Value, value)
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", y.Line)
	}
}

// Validate checks that every section is a list or a record, that every list
// carries an entry template and that every leaf is empty.
func (c *Catalog) Validate() error {
	if c.root == nil || c.root.kind != KindRecord || len(c.root.fields) == 0 {
		return fmt.Errorf("catalog must map at least one section name to a template")
	}
	for _, f := range c.root.fields {
		if f.Value.kind == KindString {
			return fmt.Errorf("catalog section %q must be a list or a record", f.Key)
		}
		if err := validateTemplate(Path{{Key: f.Key}}, f.Value); err != nil {
			return err
		}
	}
	return nil
}

func validateTemplate(p Path, n *Node) error {
	switch n.kind {
	case KindString:
		if n.text != "" {
			return fmt.Errorf("catalog template %q: leaf must be empty, got %q", p, n.text)
		}
	case KindList:
		if len(n.items) == 0 {
			return fmt.Errorf("catalog template %q: list needs an entry template", p)
		}
		for i, item := range n.items {
			if item.kind != n.items[0].kind {
				return fmt.Errorf("catalog template %q: mixed entry kinds", p)
			}
			if err := validateTemplate(p.Index(i), item); err != nil {
				return err
			}
		}
	case KindRecord:
		for _, f := range n.fields {
			if err := validateTemplate(p.Key(f.Key), f.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sections returns the section names in catalog order.
func (c *Catalog) Sections() []string {
	return c.root.Keys()
}

// Section returns the template registered for a top-level section.
func (c *Catalog) Section(name string) (Template, bool) {
	n, ok := c.root.Get(name)
	if !ok {
		return Template{}, false
	}
	return Template{node: n}, true
}

// TemplateFor finds the template of the container at p. It follows the
// catalog along p (indices select the entry template) and falls back to the
// top-level section named by the last key of p.
func (c *Catalog) TemplateFor(p Path) (Template, bool) {
	if c == nil {
		return Template{}, false
	}

	n := c.root
	for _, seg := range p {
		if seg.IsIndex {
			if n.kind != KindList || len(n.items) == 0 {
				n = nil
				break
			}
			n = n.items[0]
			continue
		}
		child, ok := n.Get(seg.Key)
		if !ok {
			n = nil
			break
		}
		n = child
	}
	if n != nil && n.kind != KindString {
		return Template{node: n}, true
	}

	if key, ok := p.LastKey(); ok {
		return c.Section(key)
	}
	return Template{}, false
}

// Check lists known sections of doc whose kind disagrees with the catalog.
func (c *Catalog) Check(doc *Node) []string {
	var problems []string
	if doc == nil || doc.kind != KindRecord {
		return []string{"document root is not a record"}
	}
	for _, f := range doc.fields {
		tmpl, ok := c.root.Get(f.Key)
		if !ok {
			continue
		}
		if tmpl.kind != f.Value.kind {
			problems = append(problems, fmt.Sprintf("section %q is a %s, catalog expects a %s", f.Key, f.Value.kind, tmpl.kind))
		}
	}
	return problems
}

// Empty returns a document with every section set to its empty template.
func (c *Catalog) Empty() *Node {
	return c.root.Clone()
}

func (c *Catalog) MarshalJSON() ([]byte, error) {
	return c.root.MarshalJSON()
}
