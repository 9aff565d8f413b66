package facet

import (
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

// Index is the facet tree of one record set together with the records it
// was built from. It is owned by the caller and replaced, not updated, when
// the record set changes.
type Index struct {
	Records []types.Record
	Tree    *Tree
	All     types.IdList
}

// Result is a filtered record set with facets rebuilt over it.
type Result struct {
	Ids     types.IdList   `json:"-"`
	Records []types.Record `json:"records"`
	Facets  *Tree          `json:"facets"`
}

func NewIndex(records []types.Record) *Index {
	all := make(types.IdList, len(records))
	for _, r := range records {
		all.Add(r)
	}
	return &Index{
		Records: records,
		Tree:    Build(records),
		All:     all,
	}
}

func (i *Index) Len() int {
	return len(i.Records)
}

// Match returns the uids satisfying the selection.
func (i *Index) Match(s *Selection) types.IdList {
	if s == nil {
		return i.All.Clone()
	}
	return Intersect(s, i.Tree, i.All)
}

// Subset keeps the records in ids, in index order.
func (i *Index) Subset(ids types.IdList) []types.Record {
	ret := make([]types.Record, 0, len(ids))
	for _, r := range i.Records {
		if ids.Contains(r.Uid()) {
			ret = append(ret, r)
		}
	}
	return ret
}

// Filter narrows the index by the selection and rebuilds the facets of what
// is left so the remaining values show updated counts.
func (i *Index) Filter(s *Selection) *Result {
	return NewResult(i.Subset(i.Match(s)), true)
}

// Chips lists the marked values of s pruned without array positions, for
// display next to a result of the index.
func (i *Index) Chips(s *Selection) map[string]string {
	return Chips(s)
}

// NewResult builds pruned facets over records. With preserve array
// positions are kept so keys taken from the facets resolve against the full
// index, without it the facets are compact and only fit for display.
func NewResult(records []types.Record, preserve bool) *Result {
	ids := make(types.IdList, len(records))
	for _, r := range records {
		ids.Add(r)
	}
	tree := Build(records)
	Prune(tree, preserve)
	return &Result{
		Ids:     ids,
		Records: records,
		Facets:  tree,
	}
}
