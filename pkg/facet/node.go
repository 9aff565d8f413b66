package facet

import (
	"slices"

	"github.com/bytedance/sonic"
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

type Kind uint8

const (
	// EmptyKind is a node that has not been written to yet, or an array
	// placeholder kept by a position preserving prune.
	EmptyKind Kind = iota
	ObjectKind
	ArrayKind
	LeafKind
)

// Node mirrors the shape of the indexed records. Object nodes hold named
// children, array nodes positional children and leaf nodes a mapping from
// facet value to V.
type Node[V any] struct {
	kind   Kind
	fields map[string]*Node[V]
	keys   []string
	items  []*Node[V]
	values map[string]V
	order  []string
}

// Tree maps facet value to the uids of the records holding it.
type Tree = Node[[]types.Uid]

// Selection marks active facet values with true.
type Selection = Node[bool]

func NewTree() *Tree {
	return &Tree{}
}

func NewSelection() *Selection {
	return &Selection{}
}

func (n *Node[V]) Kind() Kind {
	if n == nil {
		return EmptyKind
	}
	return n.kind
}

func (n *Node[V]) IsEmpty() bool {
	if n == nil {
		return true
	}
	switch n.kind {
	case ObjectKind:
		return len(n.fields) == 0
	case ArrayKind:
		return len(n.items) == 0
	case LeafKind:
		return len(n.values) == 0
	}
	return true
}

// Field returns the named child of an object node.
func (n *Node[V]) Field(name string) (*Node[V], bool) {
	if n == nil || n.kind != ObjectKind {
		return nil, false
	}
	child, ok := n.fields[name]
	return child, ok
}

// Keys returns the object field names in insertion order.
func (n *Node[V]) Keys() []string {
	if n == nil || n.kind != ObjectKind {
		return nil
	}
	return slices.Clone(n.keys)
}

func (n *Node[V]) Items() []*Node[V] {
	if n == nil || n.kind != ArrayKind {
		return nil
	}
	return n.items
}

// Item returns the array element at position i.
func (n *Node[V]) Item(i int) (*Node[V], bool) {
	if n == nil || n.kind != ArrayKind || i < 0 || i >= len(n.items) {
		return nil, false
	}
	return n.items[i], true
}

// Values returns the facet values of a leaf in insertion order.
func (n *Node[V]) Values() []string {
	if n == nil || n.kind != LeafKind {
		return nil
	}
	return slices.Clone(n.order)
}

func (n *Node[V]) Value(value string) (V, bool) {
	var zero V
	if n == nil || n.kind != LeafKind {
		return zero, false
	}
	v, ok := n.values[value]
	return v, ok
}

// ensure turns an untouched node into the requested kind. It reports false
// when the node already holds a different kind, the caller then drops the
// contribution of that one field.
func (n *Node[V]) ensure(kind Kind) bool {
	if n.kind == kind {
		return true
	}
	if n.kind != EmptyKind {
		return false
	}
	n.kind = kind
	switch kind {
	case ObjectKind:
		n.fields = map[string]*Node[V]{}
	case LeafKind:
		n.values = map[string]V{}
	}
	return true
}

func (n *Node[V]) child(name string) (*Node[V], bool) {
	if !n.ensure(ObjectKind) {
		return nil, false
	}
	c, ok := n.fields[name]
	if !ok {
		c = &Node[V]{}
		n.fields[name] = c
		n.keys = append(n.keys, name)
	}
	return c, true
}

// grow pads an array node with placeholders up to length l.
func (n *Node[V]) grow(l int) bool {
	if !n.ensure(ArrayKind) {
		return false
	}
	for len(n.items) < l {
		n.items = append(n.items, &Node[V]{})
	}
	return true
}

func (n *Node[V]) set(value string, v V) bool {
	if !n.ensure(LeafKind) {
		return false
	}
	if _, ok := n.values[value]; !ok {
		n.order = append(n.order, value)
	}
	n.values[value] = v
	return true
}

func (n *Node[V]) deleteField(name string) {
	delete(n.fields, name)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == name })
}

func (n *Node[V]) deleteValue(value string) {
	delete(n.values, value)
	n.order = slices.DeleteFunc(n.order, func(k string) bool { return k == value })
}

func (n *Node[V]) reset() {
	*n = Node[V]{}
}

func (n *Node[V]) Clone() *Node[V] {
	if n == nil {
		return nil
	}
	ret := &Node[V]{kind: n.kind}
	switch n.kind {
	case ObjectKind:
		ret.fields = make(map[string]*Node[V], len(n.fields))
		ret.keys = slices.Clone(n.keys)
		for k, c := range n.fields {
			ret.fields[k] = c.Clone()
		}
	case ArrayKind:
		ret.items = make([]*Node[V], len(n.items))
		for i, c := range n.items {
			ret.items[i] = c.Clone()
		}
	case LeafKind:
		ret.values = make(map[string]V, len(n.values))
		ret.order = slices.Clone(n.order)
		for k, v := range n.values {
			ret.values[k] = cloneValue(v)
		}
	}
	return ret
}

func cloneValue[V any](v V) V {
	if ids, ok := any(v).([]types.Uid); ok {
		return any(slices.Clone(ids)).(V)
	}
	return v
}

// toValue converts the node into plain maps and slices. Placeholders become
// empty objects so array positions survive serialization.
func (n *Node[V]) toValue() any {
	if n == nil {
		return map[string]any{}
	}
	switch n.kind {
	case ObjectKind:
		ret := make(map[string]any, len(n.fields))
		for k, c := range n.fields {
			ret[k] = c.toValue()
		}
		return ret
	case ArrayKind:
		ret := make([]any, len(n.items))
		for i, c := range n.items {
			ret[i] = c.toValue()
		}
		return ret
	case LeafKind:
		ret := make(map[string]any, len(n.values))
		for k, v := range n.values {
			ret[k] = v
		}
		return ret
	}
	return map[string]any{}
}

func (n *Node[V]) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(n.toValue())
}
