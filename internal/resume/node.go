// Package resume models the Resume Document exchanged with the CV backend as a
// tagged tree of text leaves, ordered lists and ordered records, together with
// the template catalog and the pure edit operations the editor is built on.
package resume

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Field is one key/value pair of a record. Records keep their fields in
// insertion order.
type Field struct {
	Key   string
	Value *Node
}

// Node is a Resume Document value: a text leaf, a list or a record.
type Node struct {
	kind   Kind
	text   string
	items  []*Node
	fields []Field
}

// String returns a text leaf.
func String(s string) *Node {
	return &Node{kind: KindString, text: s}
}

// List returns a list holding items in order.
func List(items ...*Node) *Node {
	n := &Node{kind: KindList, items: make([]*Node, 0, len(items))}
	n.items = append(n.items, items...)
	return n
}

// Record returns a record holding fields in order. A repeated key keeps its
// first position and takes the last value.
func Record(fields ...Field) *Node {
	n := &Node{kind: KindRecord}
	for _, f := range fields {
		n.set(f.Key, f.Value)
	}
	return n
}

// KV builds a Field.
func KV(key string, value *Node) Field {
	return Field{Key: key, Value: value}
}

func (n *Node) Kind() Kind {
	return n.kind
}

// Text returns the leaf value; it is empty for lists and records.
func (n *Node) Text() string {
	return n.text
}

// Len returns the number of list items or record fields.
func (n *Node) Len() int {
	switch n.kind {
	case KindList:
		return len(n.items)
	case KindRecord:
		return len(n.fields)
	default:
		return 0
	}
}

// Item returns the i-th list item, or nil when out of range.
func (n *Node) Item(i int) *Node {
	if n.kind != KindList || i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// Items returns a copy of the list items.
func (n *Node) Items() []*Node {
	out := make([]*Node, len(n.items))
	copy(out, n.items)
	return out
}

// Fields returns a copy of the record fields.
func (n *Node) Fields() []Field {
	out := make([]Field, len(n.fields))
	copy(out, n.fields)
	return out
}

// Keys returns the record keys in order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.fields))
	for _, f := range n.fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get looks up a record field.
func (n *Node) Get(key string) (*Node, bool) {
	if n.kind != KindRecord {
		return nil, false
	}
	for _, f := range n.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (n *Node) set(key string, value *Node) {
	for i := range n.fields {
		if n.fields[i].Key == key {
			n.fields[i].Value = value
			return
		}
	}
	n.fields = append(n.fields, Field{Key: key, Value: value})
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{kind: n.kind, text: n.text}
	switch n.kind {
	case KindList:
		out.items = make([]*Node, len(n.items))
		for i, item := range n.items {
			out.items[i] = item.Clone()
		}
	case KindRecord:
		out.fields = make([]Field, len(n.fields))
		for i, f := range n.fields {
			out.fields[i] = Field{Key: f.Key, Value: f.Value.Clone()}
		}
	}
	return out
}

// Equal reports structural equality, including record key order.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindString:
		return n.text == o.text
	case KindList:
		if len(n.items) != len(o.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		if len(n.fields) != len(o.fields) {
			return false
		}
		for i := range n.fields {
			if n.fields[i].Key != o.fields[i].Key || !n.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
}

// ErrNotRecord is returned when a document root is not a record.
var ErrNotRecord = errors.New("resume document must be a JSON object")

// Decode parses a Resume Document. The root must be an object.
func Decode(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to decode resume document: %w", err)
	}
	if n.kind != KindRecord {
		return nil, ErrNotRecord
	}
	return &n, nil
}

// MarshalJSON writes lists as arrays and records as objects in key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.kind {
	case KindString:
		b, err := json.Marshal(n.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindList:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindRecord:
		buf.WriteByte('{')
		for i, f := range n.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %d", n.kind)
	}
	return nil
}

// UnmarshalJSON keeps object key order. Numbers and booleans become their
// textual form and null becomes an empty string.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	parsed, err := decodeNode(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after resume value")
	}

	*n = *parsed
	return nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			list := List()
			for dec.More() {
				item, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				list.items = append(list.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		case '{':
			rec := Record()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				rec.set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return rec, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return String(t.String()), nil
	case bool:
		return String(strconv.FormatBool(t)), nil
	case nil:
		return String(""), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}
