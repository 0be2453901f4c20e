package resume

import (
	"errors"
	"fmt"
)

var ErrNotLeaf = errors.New("path does not address a text field")

// SetField returns a copy of doc with the text leaf at p replaced by value.
// Missing intermediate containers are created: a record for a key segment,
// a list for an index segment. An index equal to the list length appends.
func SetField(doc *Node, p Path, value string) (*Node, error) {
	if err := checkRoot(doc, p); err != nil {
		return nil, err
	}

	out := doc.Clone()
	parent, err := out.walk(p[:len(p)-1], p[len(p)-1])
	if err != nil {
		return nil, err
	}
	if err := parent.setLeaf(p[len(p)-1], value); err != nil {
		return nil, err
	}
	return out, nil
}

// Append returns a copy of doc with one new entry added to the container at
// p. Lists receive a copy of the catalog's entry template; records receive
// the template (or an empty record when none is registered) under the first
// unused "New Entry N" key.
func Append(doc *Node, p Path, catalog *Catalog) (*Node, error) {
	if err := checkRoot(doc, p); err != nil {
		return nil, err
	}

	tmpl, hasTemplate := catalog.TemplateFor(p)

	out := doc.Clone()
	last := p[len(p)-1]
	parent, err := out.walk(p[:len(p)-1], last)
	if err != nil {
		return nil, err
	}

	emptyKind := KindRecord
	if hasTemplate && tmpl.Kind() == KindList {
		emptyKind = KindList
	}
	container, err := parent.childOrCreate(last, emptyKind)
	if err != nil {
		return nil, err
	}

	switch container.kind {
	case KindList:
		if !hasTemplate {
			return nil, fmt.Errorf("%w for %q", ErrNoTemplate, p)
		}
		container.items = append(container.items, tmpl.Entry())
	case KindRecord:
		entry := Record()
		if hasTemplate {
			entry = tmpl.Entry()
		}
		container.set(NextEntryKey(container), entry)
	default:
		return nil, fmt.Errorf("%w: %q is a text field", ErrInvalidPath, p)
	}
	return out, nil
}

// NextEntryKey returns the first "New Entry N" key, N counting from 1, that
// rec does not hold yet.
func NextEntryKey(rec *Node) string {
	for n := 1; ; n++ {
		key := fmt.Sprintf("New Entry %d", n)
		if _, taken := rec.Get(key); !taken {
			return key
		}
	}
}

func checkRoot(doc *Node, p Path) error {
	if doc == nil || doc.kind != KindRecord {
		return ErrNotRecord
	}
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if p[0].IsIndex {
		return fmt.Errorf("%w: path must start with a key", ErrInvalidPath)
	}
	return nil
}

// walk descends along segs, creating containers whose kind is chosen by the
// segment that follows them; next is the segment after segs.
func (n *Node) walk(segs Path, next Segment) (*Node, error) {
	cur := n
	for i, seg := range segs {
		following := next
		if i+1 < len(segs) {
			following = segs[i+1]
		}
		kind := KindRecord
		if following.IsIndex {
			kind = KindList
		}
		child, err := cur.childOrCreate(seg, kind)
		if err != nil {
			return nil, err
		}
		if child.kind == KindString {
			return nil, fmt.Errorf("%w: %q is a text field", ErrInvalidPath, segs[:i+1])
		}
		cur = child
	}
	return cur, nil
}

func (n *Node) childOrCreate(seg Segment, kind Kind) (*Node, error) {
	fresh := func() *Node {
		if kind == KindList {
			return List()
		}
		return Record()
	}

	if seg.IsIndex {
		if n.kind != KindList {
			return nil, fmt.Errorf("%w: index [%d] on a %s", ErrInvalidPath, seg.Index, n.kind)
		}
		switch {
		case seg.Index < len(n.items):
			return n.items[seg.Index], nil
		case seg.Index == len(n.items):
			child := fresh()
			n.items = append(n.items, child)
			return child, nil
		default:
			return nil, fmt.Errorf("%w: index [%d] beyond list of %d", ErrInvalidPath, seg.Index, len(n.items))
		}
	}

	if n.kind != KindRecord {
		return nil, fmt.Errorf("%w: key %q on a %s", ErrInvalidPath, seg.Key, n.kind)
	}
	if child, ok := n.Get(seg.Key); ok {
		return child, nil
	}
	child := fresh()
	n.set(seg.Key, child)
	return child, nil
}

func (n *Node) setLeaf(seg Segment, value string) error {
	if seg.IsIndex {
		if n.kind != KindList {
			return fmt.Errorf("%w: index [%d] on a %s", ErrInvalidPath, seg.Index, n.kind)
		}
		switch {
		case seg.Index < len(n.items):
			if n.items[seg.Index].kind != KindString {
				return ErrNotLeaf
			}
			n.items[seg.Index] = String(value)
		case seg.Index == len(n.items):
			n.items = append(n.items, String(value))
		default:
			return fmt.Errorf("%w: index [%d] beyond list of %d", ErrInvalidPath, seg.Index, len(n.items))
		}
		return nil
	}

	if n.kind != KindRecord {
		return fmt.Errorf("%w: key %q on a %s", ErrInvalidPath, seg.Key, n.kind)
	}
	if existing, ok := n.Get(seg.Key); ok && existing.kind != KindString {
		return ErrNotLeaf
	}
	n.set(seg.Key, String(value))
	return nil
}
