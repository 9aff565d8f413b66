package server

import (
	"net/http"

	"github.com/testbed-portal/discovery-finder/pkg/common"
	"github.com/testbed-portal/discovery-finder/pkg/facet"
	"github.com/testbed-portal/discovery-finder/pkg/search"
	"github.com/testbed-portal/discovery-finder/pkg/store"
	"github.com/testbed-portal/discovery-finder/pkg/types"
)

type RecordsResponse struct {
	Snapshot store.Meta     `json:"snapshot"`
	Count    int            `json:"count"`
	Records  []types.Record `json:"records"`
}

type FacetResponse struct {
	Snapshot store.Meta        `json:"snapshot"`
	Count    int               `json:"count"`
	Ids      []types.Uid       `json:"ids"`
	Records  []types.Record    `json:"records"`
	Facets   *facet.Tree       `json:"facets"`
	Selected map[string]string `json:"selected"`
	Chips    map[string]string `json:"chips"`
}

type StatusResponse struct {
	Snapshot store.Meta `json:"snapshot"`
	Error    bool       `json:"error"`
	Message  string     `json:"message,omitempty"`
}

func (ws *WebServer) Records(w http.ResponseWriter, r *http.Request, enc common.Encoder) error {
	fr, err := types.GetFilterRequest(r)
	if err != nil {
		return common.NewHttpError(http.StatusBadRequest, err.Error())
	}
	idx, meta := ws.current()
	fields, _ := search.GetFieldSet(fr.Fields)
	records := search.Search(idx.Records, fr.Query, fields)
	return enc.Encode(RecordsResponse{
		Snapshot: meta,
		Count:    len(records),
		Records:  records,
	})
}

// selectionFromRequest merges the flat and the nested form of the request
// and only keeps what names a facet of tree.
func selectionFromRequest(tree *facet.Tree, fr *types.FilterRequest) *facet.Selection {
	keys := fr.Selected
	if len(fr.Selection) > 0 {
		for key := range facet.Flatten(facet.SelectionFromValue(fr.Selection)) {
			keys = append(keys, key)
		}
	}
	return facet.SelectionFromKeys(tree, keys)
}

// Facets filters by the selected facet values first and the free text
// query second, then answers with the facets of what remains.
func (ws *WebServer) Facets(w http.ResponseWriter, r *http.Request, enc common.Encoder) error {
	fr, err := types.GetFilterRequest(r)
	if err != nil {
		return common.NewHttpError(http.StatusBadRequest, err.Error())
	}
	noFilterRequests.Inc()
	idx, meta := ws.current()
	fields, _ := search.GetFieldSet(fr.Fields)
	sel := selectionFromRequest(idx.Tree, fr)

	res := search.FilterThenSearch(idx, sel, fr.Query, fields, fr.Preserve)
	ids := make([]types.Uid, 0, len(res.Records))
	for _, rec := range res.Records {
		ids = append(ids, rec.Uid())
	}
	return enc.Encode(FacetResponse{
		Snapshot: meta,
		Count:    len(res.Records),
		Ids:      ids,
		Records:  res.Records,
		Facets:   res.Facets,
		Selected: facet.Flatten(sel),
		Chips:    idx.Chips(sel),
	})
}

func (ws *WebServer) FacetCounts(w http.ResponseWriter, r *http.Request, enc common.Encoder) error {
	idx, _ := ws.current()
	return enc.Encode(facet.Counts(idx.Tree))
}

func (ws *WebServer) Status(w http.ResponseWriter, r *http.Request, enc common.Encoder) error {
	ws.mu.RLock()
	res := StatusResponse{Snapshot: ws.meta}
	if ws.lastError != nil {
		res.Error = true
		res.Message = ws.lastError.Error()
	}
	ws.mu.RUnlock()
	return enc.Encode(res)
}

func (ws *WebServer) RefreshHandler(w http.ResponseWriter, r *http.Request, enc common.Encoder) error {
	if r.Method != http.MethodPost {
		return common.NewHttpError(http.StatusMethodNotAllowed, "use POST")
	}
	meta, err := ws.Refresh(r.Context())
	if err != nil {
		return common.NewHttpError(http.StatusBadGateway, err.Error())
	}
	return enc.Encode(StatusResponse{Snapshot: meta})
}
