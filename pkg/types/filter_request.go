package types

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/schema"
)

// FilterRequest is what a client sends to narrow the record set. Selected
// holds flat facet keys (see facet.Path), Selection the nested form of the
// same thing. Both may be used at once, the union is applied. Preserve keeps
// array positions in the returned facets and defaults to true.
type FilterRequest struct {
	Query     string         `json:"query" schema:"q"`
	Selected  []string       `json:"selected" schema:"sel"`
	Selection map[string]any `json:"selection" schema:"-"`
	Fields    string         `json:"fields" schema:"fields,default:nodes"`
	Preserve  bool           `json:"preserve" schema:"preserve"`
}

// maxBodySize bounds a filter request body.
const maxBodySize = 1 << 20

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

func (f *FilterRequest) Sanitize() {
	f.Query = strings.TrimSpace(f.Query)
	if f.Query == "*" {
		f.Query = ""
	}
	selected := make([]string, 0, len(f.Selected))
	for _, s := range f.Selected {
		if s == "" || slices.Contains(selected, s) {
			continue
		}
		selected = append(selected, s)
	}
	f.Selected = selected
	if f.Fields == "" {
		f.Fields = "nodes"
	}
}

func (f *FilterRequest) HasSelection() bool {
	return len(f.Selected) > 0 || len(f.Selection) > 0
}

func GetFilterRequest(r *http.Request) (*FilterRequest, error) {
	fr := makeBaseFilterRequest()
	var err error
	if r.Method == http.MethodGet {
		err = filterRequestFromQuery(r.URL.Query(), fr)
	} else {
		err = filterRequestFromBody(r.Body, fr)
	}
	fr.Sanitize()
	return fr, err
}

func filterRequestFromBody(body io.Reader, result *FilterRequest) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return err
	}
	if len(data) > maxBodySize {
		return errors.New("request body too large")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return sonic.Unmarshal(data, result)
}

func filterRequestFromQuery(query url.Values, result *FilterRequest) error {
	return decoder.Decode(result, query)
}

func makeBaseFilterRequest() *FilterRequest {
	return &FilterRequest{
		Selected: []string{},
		Fields:   "nodes",
		Preserve: true,
	}
}
