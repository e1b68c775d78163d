// Package tree implements the portable document tree shared by the readers,
// writers, validator, converters, export builder and import adapter.
//
// A node is either a scalar string, an object (ordered tag -> node mapping
// with unique tags) or an array (ordered sequence of nodes). Whether the order
// of an array is significant is decided by the schema, not by the tree.
package tree

import "strings"

// Kind identifies the shape of a node.
type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Node is one value of the document tree.
type Node struct {
	kind   Kind
	value  string
	keys   []string
	fields map[string]*Node
	items  []*Node
}

// Scalar returns a scalar node holding s.
func Scalar(s string) *Node {
	return &Node{kind: KindScalar, value: s}
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{kind: KindObject, fields: make(map[string]*Node)}
}

// NewArray returns an array node holding items.
func NewArray(items ...*Node) *Node {
	n := &Node{kind: KindArray}
	n.items = append(n.items, items...)
	return n
}

// Kind returns the node kind.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindScalar
	}
	return n.kind
}

func (n *Node) IsScalar() bool { return n != nil && n.kind == KindScalar }
func (n *Node) IsObject() bool { return n != nil && n.kind == KindObject }
func (n *Node) IsArray() bool  { return n != nil && n.kind == KindArray }

// Value returns the scalar value, or "" for non-scalar and nil nodes.
func (n *Node) Value() string {
	if n == nil || n.kind != KindScalar {
		return ""
	}
	return n.value
}

// Len returns the number of tags of an object or items of an array.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.kind {
	case KindObject:
		return len(n.keys)
	case KindArray:
		return len(n.items)
	}
	return 0
}

// IsEmpty reports whether the node is an empty collection or an empty scalar.
func (n *Node) IsEmpty() bool {
	if n == nil {
		return true
	}
	if n.kind == KindScalar {
		return n.value == ""
	}
	return n.Len() == 0
}

// Get returns the child stored under tag, or nil.
func (n *Node) Get(tag string) *Node {
	if n == nil || n.kind != KindObject {
		return nil
	}
	return n.fields[tag]
}

// Has reports whether the object contains tag.
func (n *Node) Has(tag string) bool {
	if n == nil || n.kind != KindObject {
		return false
	}
	_, ok := n.fields[tag]
	return ok
}

// String returns the scalar value of the child stored under tag.
func (n *Node) String(tag string) string {
	return n.Get(tag).Value()
}

// Set stores child under tag. An existing tag keeps its position.
func (n *Node) Set(tag string, child *Node) *Node {
	if n.kind != KindObject {
		panic("tree: Set on " + n.kind.String())
	}
	if _, ok := n.fields[tag]; !ok {
		n.keys = append(n.keys, tag)
	}
	n.fields[tag] = child
	return n
}

// SetString stores a scalar under tag.
func (n *Node) SetString(tag, value string) *Node {
	return n.Set(tag, Scalar(value))
}

// SetDefault stores child under tag only when the tag is absent.
func (n *Node) SetDefault(tag string, child *Node) *Node {
	if !n.Has(tag) {
		n.Set(tag, child)
	}
	return n
}

// Delete removes tag from the object.
func (n *Node) Delete(tag string) {
	if n == nil || n.kind != KindObject {
		return
	}
	if _, ok := n.fields[tag]; !ok {
		return
	}
	delete(n.fields, tag)
	for i, k := range n.keys {
		if k == tag {
			n.keys = append(n.keys[:i:i], n.keys[i+1:]...)
			break
		}
	}
}

// Rename moves the value of old to tag new, keeping its position. A value
// already stored under new is replaced.
func (n *Node) Rename(old, new string) {
	if n == nil || n.kind != KindObject || old == new {
		return
	}
	child, ok := n.fields[old]
	if !ok {
		return
	}
	n.Delete(new)
	delete(n.fields, old)
	for i, k := range n.keys {
		if k == old {
			n.keys[i] = new
			break
		}
	}
	n.fields[new] = child
}

// Keys returns the object's tags in insertion order.
func (n *Node) Keys() []string {
	if n == nil || n.kind != KindObject {
		return nil
	}
	return append([]string(nil), n.keys...)
}

// Items returns the array's items. The slice is shared with the node.
func (n *Node) Items() []*Node {
	if n == nil || n.kind != KindArray {
		return nil
	}
	return n.items
}

// Append adds items to the array.
func (n *Node) Append(items ...*Node) *Node {
	if n.kind != KindArray {
		panic("tree: Append on " + n.kind.String())
	}
	n.items = append(n.items, items...)
	return n
}

// SetItems replaces the array's items.
func (n *Node) SetItems(items []*Node) {
	if n.kind != KindArray {
		panic("tree: SetItems on " + n.kind.String())
	}
	n.items = items
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindObject:
		c := &Node{kind: KindObject, keys: append([]string(nil), n.keys...), fields: make(map[string]*Node, len(n.fields))}
		for k, v := range n.fields {
			c.fields[k] = v.Clone()
		}
		return c
	case KindArray:
		c := &Node{kind: KindArray, items: make([]*Node, len(n.items))}
		for i, v := range n.items {
			c.items[i] = v.Clone()
		}
		return c
	}
	return &Node{kind: KindScalar, value: n.value}
}

// Equal reports whether a and b have the same shape, tag order and values.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindScalar:
		return a.value == b.value
	case KindObject:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i, k := range a.keys {
			if b.keys[i] != k || !Equal(a.fields[k], b.fields[k]) {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Lookup follows a chain of object tags and returns the node found, or nil.
func (n *Node) Lookup(tags ...string) *Node {
	cur := n
	for _, t := range tags {
		cur = cur.Get(t)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Strings returns the scalar values of an array of scalars.
func (n *Node) Strings() []string {
	var out []string
	for _, it := range n.Items() {
		out = append(out, it.Value())
	}
	return out
}

// StringArray builds an array of scalars.
func StringArray(values ...string) *Node {
	a := NewArray()
	for _, v := range values {
		a.Append(Scalar(v))
	}
	return a
}

// Object builds an object from alternating tag/value string pairs.
func Object(pairs ...string) *Node {
	o := NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.SetString(pairs[i], pairs[i+1])
	}
	return o
}

// Select returns every node reached by path. Path segments are tags separated
// by "/"; "*" steps into the items of an array.
func (n *Node) Select(path string) []*Node {
	cur := []*Node{n}
	for _, seg := range strings.Split(path, "/") {
		var next []*Node
		for _, c := range cur {
			if seg == "*" {
				next = append(next, c.Items()...)
				continue
			}
			if v := c.Get(seg); v != nil {
				next = append(next, v)
			}
		}
		cur = next
	}
	return cur
}
