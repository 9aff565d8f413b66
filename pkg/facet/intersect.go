package facet

import "github.com/testbed-portal/discovery-finder/pkg/types"

// Intersect resolves a selection against an unpruned tree built over all.
// Values marked under the same leaf are alternatives and their uids are
// unioned, distinct leaves must all match and are intersected. A marked
// leaf missing from the tree matches nothing. Without any mark all is
// returned unchanged.
func Intersect(s *Selection, tree *Tree, all types.IdList) types.IdList {
	lists := make([]types.IdList, 0)
	eachLeaf(s, nil, func(path Path, leaf *Selection) {
		matching, active := matchLeaf(leaf, tree, path)
		if active {
			lists = append(lists, matching)
		}
	})
	if len(lists) == 0 {
		return all.Clone()
	}
	return types.MakeIntersectResult(lists...)
}

func matchLeaf(leaf *Selection, tree *Tree, path Path) (types.IdList, bool) {
	ret := types.IdList{}
	active := false
	target, found := walk(tree, path)
	for v, on := range leaf.values {
		if !on {
			continue
		}
		active = true
		if !found {
			continue
		}
		ids, _ := target.Value(v)
		for _, id := range ids {
			ret.AddId(id)
		}
	}
	return ret, active
}
