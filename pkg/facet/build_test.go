package facet

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testbed-portal/discovery-finder/pkg/types"
)

func smpRecords() []types.Record {
	return []types.Record{
		{"uid": "1", "arch": map[string]any{"smp": 2}},
		{"uid": "2", "arch": map[string]any{"smp": 4}},
		{"uid": "3", "arch": map[string]any{"smp": 2}},
	}
}

func nodeRecords() []types.Record {
	return []types.Record{
		{
			"uid":          "paravance-1",
			"type":         "node",
			"cluster":      "paravance",
			"architecture": map[string]any{"platform_type": "x86_64", "smp_size": float64(2)},
			"network_adapters": []any{
				map[string]any{"interface": "Ethernet", "rate": float64(10000000000), "mac": "00:11"},
				map[string]any{"interface": "InfiniBand", "rate": float64(56000000000)},
			},
			"gpu":       nil,
			"supported": true,
		},
		{
			"uid":          "chifflot-1",
			"type":         "node",
			"cluster":      "chifflot",
			"architecture": map[string]any{"platform_type": "x86_64", "smp_size": float64(2)},
			"network_adapters": []any{
				map[string]any{"interface": "Ethernet", "rate": float64(25000000000)},
			},
			"gpu":       map[string]any{"gpu_count": float64(2), "gpu_model": "Tesla P100"},
			"supported": false,
		},
		{
			"uid":          "pyxis-1",
			"cluster":      "pyxis",
			"architecture": map[string]any{"platform_type": "arm64", "smp_size": float64(2)},
			"supported":    true,
			"comment":      "",
			"reservable":   float64(0),
		},
	}
}

func TestBuildScenario(t *testing.T) {
	tree := Build(smpRecords())

	assert.Equal(t, []types.Uid{"1", "3"}, Lookup(tree, KeyPath("arch", "smp"), "2"))
	assert.Equal(t, []types.Uid{"2"}, Lookup(tree, KeyPath("arch", "smp"), "4"))

	smp, ok := walk(tree, KeyPath("arch", "smp"))
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"2", "4"}, smp.Values())
}

func TestBuildSkipsExcludedAndEmpty(t *testing.T) {
	tree := Build(nodeRecords())

	for _, name := range []string{"uid", "type"} {
		_, ok := tree.Field(name)
		assert.False(t, ok, name)
	}
	eth, ok := walk(tree, Path{Key("network_adapters"), At(0)})
	require.True(t, ok)
	_, ok = eth.Field("mac")
	assert.False(t, ok, "mac must not be indexed")

	_, ok = tree.Field("gpu")
	assert.True(t, ok, "gpu is an object on one record")
	assert.Nil(t, Lookup(tree, KeyPath("comment"), ""))

	// false and 0 are real values
	assert.Equal(t, []types.Uid{"chifflot-1"}, Lookup(tree, KeyPath("supported"), "false"))
	assert.Equal(t, []types.Uid{"paravance-1", "pyxis-1"}, Lookup(tree, KeyPath("supported"), "true"))
	assert.Equal(t, []types.Uid{"pyxis-1"}, Lookup(tree, KeyPath("reservable"), "0"))
}

func TestBuildArraysByPosition(t *testing.T) {
	tree := Build(nodeRecords())

	adapters, ok := tree.Field("network_adapters")
	require.True(t, ok)
	assert.Equal(t, ArrayKind, adapters.Kind())
	assert.Len(t, adapters.Items(), 2)

	assert.Equal(t,
		[]types.Uid{"paravance-1", "chifflot-1"},
		Lookup(tree, Path{Key("network_adapters"), At(0), Key("interface")}, "Ethernet"))
	assert.Equal(t,
		[]types.Uid{"paravance-1"},
		Lookup(tree, Path{Key("network_adapters"), At(1), Key("interface")}, "InfiniBand"))
	assert.Equal(t,
		[]types.Uid{"chifflot-1"},
		Lookup(tree, Path{Key("network_adapters"), At(0), Key("rate")}, "25000000000"))
}

func TestBuildPadsShorterArrays(t *testing.T) {
	records := []types.Record{
		{"uid": "a", "disks": []any{map[string]any{"size": 1}}},
		{"uid": "b", "disks": []any{map[string]any{"size": 1}, map[string]any{"size": 2}, map[string]any{"size": 3}}},
		{"uid": "c", "tags": []string{"gpu", "", "ib"}},
	}
	tree := Build(records)

	disks, _ := tree.Field("disks")
	assert.Len(t, disks.Items(), 3)
	assert.Equal(t, []types.Uid{"a", "b"}, Lookup(tree, Path{Key("disks"), At(0), Key("size")}, "1"))
	assert.Equal(t, []types.Uid{"b"}, Lookup(tree, Path{Key("disks"), At(2), Key("size")}, "3"))

	tags, _ := tree.Field("tags")
	require.Len(t, tags.Items(), 3)
	assert.Equal(t, EmptyKind, tags.Items()[1].Kind())
	assert.Equal(t, []types.Uid{"c"}, Lookup(tree, Path{Key("tags"), At(2)}, "ib"))
}

func TestBuildShapeConflictIsFailSoft(t *testing.T) {
	records := []types.Record{
		{"uid": "a", "gpu": map[string]any{"count": 2}, "site": "rennes"},
		{"uid": "b", "gpu": "none", "site": "lyon"},
		{"uid": "c", "gpu": []any{"x"}, "site": "rennes"},
	}
	tree := Build(records)

	assert.Equal(t, []types.Uid{"a"}, Lookup(tree, KeyPath("gpu", "count"), "2"))
	assert.Nil(t, Lookup(tree, KeyPath("gpu"), "none"))
	// the other fields of the conflicting records are still indexed
	assert.Equal(t, []types.Uid{"a", "c"}, Lookup(tree, KeyPath("site"), "rennes"))
	assert.Equal(t, []types.Uid{"b"}, Lookup(tree, KeyPath("site"), "lyon"))
}

func TestBuildSkipsRecordsWithoutUid(t *testing.T) {
	tree := Build([]types.Record{{"site": "rennes"}, {"uid": "a", "site": "rennes"}})
	assert.Equal(t, []types.Uid{"a"}, Lookup(tree, KeyPath("site"), "rennes"))
}

func TestBuildIsDeterministic(t *testing.T) {
	a, err := sonic.Marshal(Build(nodeRecords()))
	require.NoError(t, err)
	b, err := sonic.Marshal(Build(nodeRecords()))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestBuildMatchesManualFilter(t *testing.T) {
	records := nodeRecords()
	tree := Build(records)

	want := []types.Uid{}
	for _, r := range records {
		if v, ok := r.Get("architecture.platform_type"); ok && v == "x86_64" {
			want = append(want, r.Uid())
		}
	}
	assert.Equal(t, want, Lookup(tree, KeyPath("architecture", "platform_type"), "x86_64"))
}

func TestTreeJSON(t *testing.T) {
	data, err := sonic.Marshal(Build(smpRecords()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"arch":{"smp":{"2":["1","3"],"4":["2"]}}}`, string(data))
}

func TestCounts(t *testing.T) {
	counts := Counts(Build(nodeRecords()))

	assert.Equal(t, map[string]int{"x86_64": 2, "arm64": 1}, counts["architecture~platform_type"])
	assert.Equal(t, map[string]int{"Ethernet": 2}, counts["network_adapters~[0]~interface"])
	_, ok := counts["comment"]
	assert.False(t, ok)
}

func TestBuildWalksContainersOfExcludedNames(t *testing.T) {
	tree := Build([]types.Record{
		{"uid": "a", "version": map[string]any{"bios": "2.1"}, "type": []any{map[string]any{"rate": 10}}},
		{"uid": "b", "version": "7", "type": "node"},
	})

	assert.Equal(t, []types.Uid{"a"}, Lookup(tree, KeyPath("version", "bios"), "2.1"))
	assert.Equal(t, []types.Uid{"a"}, Lookup(tree, Path{Key("type"), At(0), Key("rate")}, "10"))
	assert.Nil(t, Lookup(tree, KeyPath("type"), "node"))
}
