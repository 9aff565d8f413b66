package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdListIntersect(t *testing.T) {
	a := NewIdList("1", "2", "3", "4")
	b := NewIdList("2", "4", "6")
	a.Intersect(b)
	assert.Equal(t, []Uid{"2", "4"}, a.ToSlice())
}

func TestIdListMerge(t *testing.T) {
	a := NewIdList("1", "2")
	a.Merge(NewIdList("2", "3"))
	assert.Equal(t, []Uid{"1", "2", "3"}, a.ToSlice())
	assert.True(t, a.HasIntersection(NewIdList("3", "9")))
	assert.False(t, a.HasIntersection(NewIdList("9")))
}

func TestMakeIntersectResult(t *testing.T) {
	assert.Empty(t, MakeIntersectResult())

	a := NewIdList("1", "2", "3")
	res := MakeIntersectResult(a, NewIdList("2", "3"), NewIdList("3", "2", "5"))
	assert.Equal(t, []Uid{"2", "3"}, res.ToSlice())
	// inputs are left untouched
	assert.Equal(t, 3, a.Len())
}
