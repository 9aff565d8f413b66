package facet

import (
	"maps"
	"slices"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

// Build indexes every facet value of the records. The tree is rebuilt from
// scratch for each record set, it is never updated incrementally.
//
// Array elements are merged by position: element i of every record lands in
// the same child. Two records listing the same adapters in a different order
// are therefore attributed to different positions. No discriminator key is
// guaranteed in the data so this is left as is.
func Build(records []types.Record) *Tree {
	tree := NewTree()
	tree.ensure(ObjectKind)
	for _, r := range records {
		uid := r.Uid()
		if uid == "" {
			logger.Warn().Str("component", "facet").Msg("skipping record without uid")
			continue
		}
		addObject(tree, r, uid)
	}
	return tree
}

func addObject(n *Tree, obj map[string]any, uid types.Uid) {
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		addField(n, key, obj[key], uid)
	}
}

// skipValue reports values that are never indexed: nulls, empty strings and
// scalars of excluded fields. Objects and arrays under an excluded name are
// walked like any other.
func skipValue(name string, value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok && s == "" {
		return true
	}
	return types.IsExcluded(name) && isScalar(value)
}

func isScalar(value any) bool {
	if _, ok := types.AsObject(value); ok {
		return false
	}
	_, ok := types.AsArray(value)
	return !ok
}

func addField(n *Tree, name string, value any, uid types.Uid) {
	if skipValue(name, value) {
		return
	}
	c, ok := n.child(name)
	if !ok {
		return
	}
	addElement(c, name, value, uid)
}

// addElement writes value into n. name is the closest field name, used for
// the excluded field check of scalars inside arrays.
func addElement(n *Tree, name string, value any, uid types.Uid) {
	if obj, ok := types.AsObject(value); ok {
		if !n.ensure(ObjectKind) {
			logConflict(name, uid)
			return
		}
		addObject(n, obj, uid)
		return
	}
	if arr, ok := types.AsArray(value); ok {
		if !n.grow(len(arr)) {
			logConflict(name, uid)
			return
		}
		for i, el := range arr {
			if skipValue(name, el) {
				continue
			}
			addElement(n.items[i], name, el, uid)
		}
		return
	}
	s, ok := types.Stringify(value)
	if !ok || s == "" {
		return
	}
	if !n.ensure(LeafKind) {
		logConflict(name, uid)
		return
	}
	ids := n.values[s]
	if len(ids) > 0 && ids[len(ids)-1] == uid {
		return
	}
	n.set(s, append(ids, uid))
}

func logConflict(name string, uid types.Uid) {
	logger.Debug().
		Str("component", "facet").
		Str("field", name).
		Str("uid", string(uid)).
		Msg("field shape differs from earlier records, skipped")
}

// Lookup returns the uids registered for value at path, nil if the path or
// value is unknown.
func Lookup(tree *Tree, path Path, value string) []types.Uid {
	n, ok := walk(tree, path)
	if !ok {
		return nil
	}
	ids, _ := n.Value(value)
	return ids
}

func walk[V any](n *Node[V], path Path) (*Node[V], bool) {
	curr := n
	for _, s := range path {
		var ok bool
		if s.IsIndex() {
			curr, ok = curr.Item(s.Index)
		} else {
			curr, ok = curr.Field(s.Key)
		}
		if !ok {
			return nil, false
		}
	}
	return curr, true
}

// Counts summarises the leaves of a tree as flat path key -> value -> count.
func Counts(tree *Tree) map[string]map[string]int {
	ret := map[string]map[string]int{}
	eachLeaf(tree, nil, func(path Path, leaf *Tree) {
		counts := make(map[string]int, len(leaf.values))
		for v, ids := range leaf.values {
			if len(ids) > 0 {
				counts[v] = len(ids)
			}
		}
		if len(counts) > 0 {
			ret[path.String()] = counts
		}
	})
	return ret
}

func eachLeaf[V any](n *Node[V], path Path, fn func(Path, *Node[V])) {
	if n == nil {
		return
	}
	switch n.kind {
	case ObjectKind:
		for _, k := range n.keys {
			eachLeaf(n.fields[k], path.Append(Key(k)), fn)
		}
	case ArrayKind:
		for i, c := range n.items {
			eachLeaf(c, path.Append(At(i)), fn)
		}
	case LeafKind:
		fn(path, n)
	}
}
