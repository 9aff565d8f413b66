package facet

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testbed-portal/discovery-finder/pkg/types"
)

func assertNoEmptyBranches[V any](t *testing.T, n *Node[V], path Path, preserve bool) {
	t.Helper()
	switch n.Kind() {
	case ObjectKind:
		assert.NotEmpty(t, n.fields, "empty object at %s", path)
		for k, c := range n.fields {
			assertNoEmptyBranches(t, c, path.Append(Key(k)), preserve)
		}
	case ArrayKind:
		remaining := 0
		for i, c := range n.items {
			if c.Kind() == EmptyKind {
				assert.True(t, preserve, "placeholder at %s", path.Append(At(i)))
				continue
			}
			remaining++
			assertNoEmptyBranches(t, c, path.Append(At(i)), preserve)
		}
		assert.NotZero(t, remaining, "empty array at %s", path)
	case LeafKind:
		assert.NotEmpty(t, n.values, "empty leaf at %s", path)
		for v, val := range n.values {
			assert.False(t, emptyValue(val), "empty value %q at %s", v, path)
		}
	case EmptyKind:
		assert.Empty(t, path, "untouched node at %s", path)
	}
}

func TestPruneScenario(t *testing.T) {
	tree := NewTree()
	a, _ := tree.child("a")
	b, _ := a.child("b")
	b.grow(0)
	c, _ := tree.child("c")
	d, _ := c.child("d")
	d.set("x", []types.Uid{"1"})

	Prune(tree, false)

	data, err := sonic.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":{"d":{"x":["1"]}}}`, string(data))
}

func TestPruneLeavesNoEmptyBranches(t *testing.T) {
	records := append(nodeRecords(),
		types.Record{"uid": "x", "empty": map[string]any{}, "list": []any{}, "deep": map[string]any{"a": map[string]any{"b": []any{nil, ""}}}},
	)
	for _, preserve := range []bool{false, true} {
		tree := Build(records)
		Prune(tree, preserve)
		assertNoEmptyBranches(t, tree, nil, preserve)
		_, ok := tree.Field("deep")
		assert.False(t, ok)
	}
}

func TestPruneArrayPositions(t *testing.T) {
	s := NewSelection()
	Select(s, Path{Key("adapters"), At(0), Key("rate")}, "10")
	Select(s, Path{Key("adapters"), At(2), Key("rate")}, "25")
	items, _ := s.Field("adapters")
	items.items[0].fields["rate"].values["10"] = false

	preserved := s.Clone()
	Prune(preserved, true)
	adapters, _ := preserved.Field("adapters")
	require.Len(t, adapters.Items(), 3)
	assert.Equal(t, EmptyKind, adapters.Items()[0].Kind())
	assert.Equal(t, EmptyKind, adapters.Items()[1].Kind())
	assert.Equal(t, map[string]string{"adapters~[2]~rate~25": "25"}, Flatten(preserved))

	compact := s.Clone()
	Prune(compact, false)
	adapters, _ = compact.Field("adapters")
	require.Len(t, adapters.Items(), 1)
	assert.Equal(t, map[string]string{"adapters~[0]~rate~25": "25"}, Flatten(compact))

	// the source selection is untouched
	assert.Len(t, items.Items(), 3)
}

func TestPruneRemovesAllEmptyArray(t *testing.T) {
	s := NewSelection()
	Select(s, Path{Key("adapters"), At(1), Key("rate")}, "10")
	Select(s, KeyPath("site"), "rennes")
	adapters, _ := s.Field("adapters")
	adapters.items[1].fields["rate"].values["10"] = false

	Prune(s, true)
	_, ok := s.Field("adapters")
	assert.False(t, ok)
	assert.Equal(t, []string{"site"}, s.Keys())
}

func TestFlattenIsOrderIndependent(t *testing.T) {
	a := NewSelection()
	Select(a, KeyPath("architecture", "smp_size"), "2")
	Select(a, KeyPath("architecture", "smp_size"), "4")
	Select(a, KeyPath("cluster"), "paravance")

	b := NewSelection()
	Select(b, KeyPath("cluster"), "paravance")
	Select(b, KeyPath("architecture", "smp_size"), "4")
	Select(b, KeyPath("architecture", "smp_size"), "2")

	assert.Equal(t, Flatten(a), Flatten(b))
	assert.Equal(t, map[string]string{
		"architecture~smp_size~2": "2",
		"architecture~smp_size~4": "4",
		"cluster~paravance":       "paravance",
	}, Flatten(a))
}

func TestFlattenEscapesSeparator(t *testing.T) {
	s := NewSelection()
	Select(s, KeyPath("odd~field", "[0]"), "a~b%7E")
	Select(s, KeyPath("odd"), "field~[0]~a~b%7E")

	flat := Flatten(s)
	require.Len(t, flat, 2)
	for key, value := range flat {
		path, v, err := SplitFacetKey(key)
		require.NoError(t, err)
		assert.Equal(t, value, v)

		back := NewSelection()
		require.True(t, Select(back, path, v))
		assert.Equal(t, map[string]string{key: value}, Flatten(back))
	}
}

func TestSelectionFromKeys(t *testing.T) {
	s := SelectionFromKeys(nil, []string{
		"architecture~smp_size~2",
		"network_adapters~[1]~interface~InfiniBand",
		"broken~[x]~1",
		"single",
	})
	assert.Equal(t, map[string]string{
		"architecture~smp_size~2":                   "2",
		"network_adapters~[1]~interface~InfiniBand": "InfiniBand",
	}, Flatten(s))

	adapters, ok := s.Field("network_adapters")
	require.True(t, ok)
	assert.Len(t, adapters.Items(), 2)
}

func TestSelectionFromValue(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, sonic.UnmarshalString(`{
		"architecture": {"smp_size": {"2": true, "4": false}},
		"network_adapters": [{}, {"interface": {"InfiniBand": true}}],
		"bogus": "x",
		"flag": true
	}`, &decoded))

	s := SelectionFromValue(decoded)
	assert.Equal(t, map[string]string{
		"architecture~smp_size~2":                   "2",
		"network_adapters~[1]~interface~InfiniBand": "InfiniBand",
	}, Flatten(s))
}

func TestChipsDoesNotModifySelection(t *testing.T) {
	s := NewSelection()
	Select(s, Path{Key("adapters"), At(3), Key("rate")}, "10")

	assert.Equal(t, map[string]string{"adapters~[0]~rate~10": "10"}, Chips(s))
	assert.Equal(t, map[string]string{"adapters~[3]~rate~10": "10"}, Flatten(s))
}

func TestSelectionMerge(t *testing.T) {
	a := SelectionFromKeys(nil, []string{"site~rennes"})
	MergeSelection(a, SelectionFromKeys(nil, []string{"site~lyon", "cluster~pyxis"}))
	assert.Len(t, Flatten(a), 3)
}

func TestSelectShapeConflict(t *testing.T) {
	s := NewSelection()
	require.True(t, Select(s, KeyPath("site"), "rennes"))
	assert.False(t, Select(s, KeyPath("site", "name"), "rennes"))
	assert.False(t, Select(s, Path{Key("site"), At(0)}, "rennes"))
	assert.ErrorIs(t, SelectKey(s, "site~name~x"), ErrInvalidKey)
}

func TestSelectionFromKeysAgainstTree(t *testing.T) {
	tree := Build(nodeRecords())
	s := SelectionFromKeys(tree, []string{
		"network_adapters~[1]~interface~InfiniBand",
		"network_adapters~[20000000]~rate~10",
		"network_adapters~[5]~rate~10",
		"architecture~cpu~x",
		"architecture~platform_type~sparc",
	})

	// an unknown value of a known field is kept, it simply matches nothing
	assert.Equal(t, map[string]string{
		"network_adapters~[1]~interface~InfiniBand": "InfiniBand",
		"architecture~platform_type~sparc":          "sparc",
	}, Flatten(s))
	adapters, ok := s.Field("network_adapters")
	require.True(t, ok)
	assert.Len(t, adapters.Items(), 2)
}

func TestSelectKeyOutOfRangePosition(t *testing.T) {
	s := NewSelection()
	assert.ErrorIs(t, SelectKey(s, "network_adapters~[20000000]~rate~10"), ErrInvalidKey)
	assert.True(t, s.IsEmpty())

	require.NoError(t, selectKey(s, Build(nodeRecords()), "network_adapters~[0]~rate~10"))
	assert.ErrorIs(t, selectKey(s, Build(nodeRecords()), "network_adapters~[2]~rate~10"), ErrInvalidKey)
}
