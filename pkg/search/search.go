package search

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/text/cases"

	"github.com/testbed-portal/discovery-finder/pkg/facet"
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

var (
	noSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discoveryfinder_searches_total",
		Help: "The total number of free text searches",
	})
)

// Search keeps the records where any configured field contains query,
// ignoring case. A blank query keeps everything.
func Search(records []types.Record, query string, fields FieldSet) []types.Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	noSearches.Inc()
	folder := cases.Fold()
	needle := folder.String(query)
	ret := make([]types.Record, 0)
	for _, r := range records {
		if matches(r, needle, fields, folder) {
			ret = append(ret, r)
		}
	}
	return ret
}

func matches(r types.Record, needle string, fields FieldSet, folder cases.Caser) bool {
	for _, path := range fields.Fields {
		v, ok := r.Get(path)
		if !ok {
			continue
		}
		s, ok := types.Stringify(v)
		if !ok || s == "" {
			continue
		}
		if strings.Contains(folder.String(s), needle) {
			return true
		}
	}
	return false
}

// FilterThenSearch applies the facet selection first and the text query to
// what is left, then rebuilds the facets over the final records. With
// preserve the facets keep their array positions, see facet.NewResult.
func FilterThenSearch(idx *facet.Index, s *facet.Selection, query string, fields FieldSet, preserve bool) *facet.Result {
	records := idx.Subset(idx.Match(s))
	return facet.NewResult(Search(records, query, fields), preserve)
}
