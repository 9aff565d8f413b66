package types

import (
	"maps"
	"slices"
)

// Uid identifies a record across fetches.
type Uid string

type IdList map[Uid]struct{}

var empty = struct{}{}

func NewIdList(ids ...Uid) IdList {
	ret := make(IdList, len(ids))
	for _, id := range ids {
		ret[id] = empty
	}
	return ret
}

func (r IdList) AddId(id Uid) {
	r[id] = empty
}

func (r IdList) Add(record Record) {
	if uid := record.Uid(); uid != "" {
		r[uid] = empty
	}
}

func (r IdList) Contains(id Uid) bool {
	_, ok := r[id]
	return ok
}

func (r IdList) Len() int {
	return len(r)
}

func (r IdList) Clone() IdList {
	return maps.Clone(r)
}

func (a IdList) Intersect(b IdList) {
	for id := range a {
		_, ok := b[id]
		if !ok {
			delete(a, id)
		}
	}
}

func (i IdList) Merge(other IdList) {
	maps.Copy(i, other)
}

func (i IdList) HasIntersection(other IdList) bool {
	for id := range i {
		if _, ok := other[id]; ok {
			return true
		}
	}
	return false
}

// ToSlice returns the ids in lexical order.
func (i IdList) ToSlice() []Uid {
	return slices.Sorted(maps.Keys(i))
}

// MakeIntersectResult intersects all lists. No lists gives an empty result.
func MakeIntersectResult(lists ...IdList) IdList {
	if len(lists) == 0 {
		return IdList{}
	}
	first := lists[0].Clone()
	for _, l := range lists[1:] {
		first.Intersect(l)
	}
	return first
}
