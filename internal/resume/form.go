package resume

import (
	"fmt"
	"strings"
)

type ItemKind int

const (
	ItemHeading ItemKind = iota
	ItemInput
	ItemGroupStart
	ItemGroupEnd
	ItemAdd
)

// FormItem is one element of the flattened editor form.
type FormItem struct {
	Kind  ItemKind
	Label string
	// Name is the textual path; inputs are posted back under it.
	Name  string
	Path  Path
	Value string
	Depth int
}

// Form flattens doc into the items the editor renders: a heading for every
// list or record, one input per text leaf and, when catalog has a template
// for the container, an add button after it. catalog may be nil.
func Form(doc *Node, catalog *Catalog) []FormItem {
	if doc == nil || doc.kind != KindRecord {
		return nil
	}
	var items []FormItem
	formRecord(&items, doc, nil, catalog, 0)
	return items
}

func formRecord(items *[]FormItem, rec *Node, base Path, catalog *Catalog, depth int) {
	for _, f := range rec.fields {
		p := base.Key(f.Key)
		switch f.Value.kind {
		case KindString:
			*items = append(*items, input(fieldLabel(f.Key), p, f.Value.text, depth))
		case KindList:
			*items = append(*items, FormItem{Kind: ItemHeading, Label: f.Key, Name: p.String(), Path: p, Depth: depth})
			formList(items, f.Value, p, f.Key, catalog, depth+1)
			if _, ok := catalog.TemplateFor(p); ok {
				*items = append(*items, FormItem{Kind: ItemAdd, Label: "Add New " + f.Key, Name: p.String(), Path: p, Depth: depth})
			}
		case KindRecord:
			*items = append(*items, FormItem{Kind: ItemHeading, Label: f.Key, Name: p.String(), Path: p, Depth: depth})
			formRecord(items, f.Value, p, catalog, depth+1)
			if _, ok := catalog.TemplateFor(p); ok {
				*items = append(*items, FormItem{Kind: ItemAdd, Label: "Add New Entry", Name: p.String(), Path: p, Depth: depth})
			}
		}
	}
}

func formList(items *[]FormItem, list *Node, base Path, key string, catalog *Catalog, depth int) {
	for i, item := range list.items {
		p := base.Index(i)
		switch item.kind {
		case KindString:
			*items = append(*items, input(fmt.Sprintf("%s %d", fieldLabel(key), i+1), p, item.text, depth))
		case KindRecord:
			*items = append(*items, FormItem{Kind: ItemGroupStart, Name: p.String(), Path: p, Depth: depth})
			formRecord(items, item, p, catalog, depth)
			*items = append(*items, FormItem{Kind: ItemGroupEnd, Name: p.String(), Path: p, Depth: depth})
		case KindList:
			*items = append(*items, FormItem{Kind: ItemGroupStart, Name: p.String(), Path: p, Depth: depth})
			formList(items, item, p, key, catalog, depth)
			*items = append(*items, FormItem{Kind: ItemGroupEnd, Name: p.String(), Path: p, Depth: depth})
		}
	}
}

func (it FormItem) IsHeading() bool    { return it.Kind == ItemHeading }
func (it FormItem) IsInput() bool      { return it.Kind == ItemInput }
func (it FormItem) IsGroupStart() bool { return it.Kind == ItemGroupStart }
func (it FormItem) IsGroupEnd() bool   { return it.Kind == ItemGroupEnd }
func (it FormItem) IsAdd() bool        { return it.Kind == ItemAdd }

func input(label string, p Path, value string, depth int) FormItem {
	return FormItem{Kind: ItemInput, Label: label, Name: p.String(), Path: p, Value: value, Depth: depth}
}

func fieldLabel(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// ApplyForm writes posted values back into a copy of doc. Only inputs that
// Form(doc) produces are considered; anything else in values is ignored.
func ApplyForm(doc *Node, values map[string]string) (*Node, error) {
	out := doc
	for _, item := range Form(doc, nil) {
		if item.Kind != ItemInput {
			continue
		}
		v, ok := values[item.Name]
		if !ok || v == item.Value {
			continue
		}
		next, err := SetField(out, item.Path, v)
		if err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", item.Name, err)
		}
		out = next
	}
	if out == doc {
		out = doc.Clone()
	}
	return out, nil
}
