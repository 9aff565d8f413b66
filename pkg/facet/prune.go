package facet

import "github.com/testbed-portal/discovery-finder/pkg/types"

// Prune removes empty branches in place: leaves without values, objects
// whose children all pruned away and empty array elements. With
// preserveArrayPositions empty array elements stay as placeholders so
// positions keep lining up with an unpruned tree. An array without any
// remaining element is removed either way. The root node itself is kept.
func Prune[V any](n *Node[V], preserveArrayPositions bool) {
	if n == nil {
		return
	}
	if n.prune(preserveArrayPositions) {
		n.reset()
	}
}

func (n *Node[V]) prune(preserve bool) bool {
	switch n.kind {
	case LeafKind:
		for _, v := range n.Values() {
			if emptyValue(n.values[v]) {
				n.deleteValue(v)
			}
		}
		return len(n.values) == 0
	case ObjectKind:
		for _, k := range n.Keys() {
			if n.fields[k].prune(preserve) {
				n.deleteField(k)
			}
		}
		return len(n.fields) == 0
	case ArrayKind:
		kept := n.items[:0]
		remaining := 0
		for _, c := range n.items {
			if c.prune(preserve) {
				if preserve {
					c.reset()
					kept = append(kept, c)
				}
				continue
			}
			remaining++
			kept = append(kept, c)
		}
		clear(n.items[len(kept):])
		n.items = kept
		return remaining == 0
	}
	return true
}

// emptyValue is what a leaf entry counts as when pruning: no uids in a tree,
// an unset mark in a selection.
func emptyValue[V any](v V) bool {
	switch t := any(v).(type) {
	case []types.Uid:
		return len(t) == 0
	case bool:
		return !t
	}
	return false
}
