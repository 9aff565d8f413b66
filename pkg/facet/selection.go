package facet

import (
	"fmt"
	"maps"
	"slices"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

// Select marks value at path. It reports false when path runs into a node of
// a different shape, for example an array position on an object.
func Select(s *Selection, path Path, value string) bool {
	curr := s
	for _, seg := range path {
		if seg.IsIndex() {
			if !curr.grow(seg.Index + 1) {
				return false
			}
			curr = curr.items[seg.Index]
			continue
		}
		next, ok := curr.child(seg.Key)
		if !ok {
			return false
		}
		curr = next
	}
	return curr.set(value, true)
}

// SelectKey marks the facet value named by a flat key from Flatten.
func SelectKey(s *Selection, key string) error {
	return selectKey(s, nil, key)
}

// selectKey only accepts keys naming a leaf of tree when tree is set, so
// array positions can never exceed what the index holds.
func selectKey(s *Selection, tree *Tree, key string) error {
	path, value, err := SplitFacetKey(key)
	if err != nil {
		return err
	}
	if tree != nil {
		if n, ok := walk(tree, path); !ok || n.Kind() != LeafKind {
			return fmt.Errorf("%w: %q is not a facet of the index", ErrInvalidKey, key)
		}
	}
	if !Select(s, path, value) {
		return ErrInvalidKey
	}
	return nil
}

// SelectionFromKeys builds a selection from flat keys. With a tree only
// fields present in it can be marked. Invalid keys are logged and skipped.
func SelectionFromKeys(tree *Tree, keys []string) *Selection {
	s := NewSelection()
	for _, key := range keys {
		if err := selectKey(s, tree, key); err != nil {
			logger.Debug().Str("component", "facet").Str("key", key).Err(err).Msg("ignoring facet key")
		}
	}
	return s
}

// SelectionFromValue converts a decoded nested selection: objects whose
// members are all booleans are leaves, other objects and arrays are
// branches. Members of any other type are ignored.
func SelectionFromValue(v map[string]any) *Selection {
	s := NewSelection()
	fillSelection(s, v)
	return s
}

func fillSelection(s *Selection, v any) {
	if obj, ok := types.AsObject(v); ok {
		if len(obj) > 0 && isLeaf(obj) {
			for _, k := range slices.Sorted(maps.Keys(obj)) {
				s.set(k, obj[k].(bool))
			}
			return
		}
		for _, k := range slices.Sorted(maps.Keys(obj)) {
			if !isBranch(obj[k]) {
				continue
			}
			if c, ok := s.child(k); ok {
				fillSelection(c, obj[k])
			}
		}
		return
	}
	if arr, ok := types.AsArray(v); ok {
		if len(arr) > MaxPosition+1 || !s.grow(len(arr)) {
			return
		}
		for i, el := range arr {
			fillSelection(s.items[i], el)
		}
	}
}

func isBranch(v any) bool {
	if _, ok := types.AsObject(v); ok {
		return true
	}
	_, ok := types.AsArray(v)
	return ok
}

func isLeaf(obj map[string]any) bool {
	for _, v := range obj {
		if _, ok := v.(bool); !ok {
			return false
		}
	}
	return true
}

// MergeSelection marks everything marked in src on dst.
func MergeSelection(dst, src *Selection) {
	for key := range Flatten(src) {
		_ = SelectKey(dst, key)
	}
}

// Flatten lists every marked value of a selection as flat key -> value. The
// result only depends on what is marked, not on the order it was marked in.
func Flatten(s *Selection) map[string]string {
	ret := map[string]string{}
	eachLeaf(s, nil, func(path Path, leaf *Selection) {
		for v, on := range leaf.values {
			if on {
				ret[FacetKey(path, v)] = v
			}
		}
	})
	return ret
}

// Chips is the compact list of applied filters: the selection is pruned
// without keeping array positions, then flattened. s is not modified.
func Chips(s *Selection) map[string]string {
	c := s.Clone()
	Prune(c, false)
	return Flatten(c)
}
