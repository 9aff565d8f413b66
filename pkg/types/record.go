package types

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Record is one decoded testbed entity (hardware node, allocation, appliance).
type Record map[string]any

// ExcludedFields are identifiers and metadata, never indexed as facets.
var ExcludedFields = []string{"type", "uid", "guid", "mac", "serial", "version"}

func IsExcluded(name string) bool {
	return slices.Contains(ExcludedFields, name)
}

func (r Record) Uid() Uid {
	v, ok := r["uid"]
	if !ok {
		return ""
	}
	s, _ := Stringify(v)
	return Uid(s)
}

// Get resolves a dot separated path through nested objects.
func (r Record) Get(path string) (any, bool) {
	var curr any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		obj, ok := AsObject(curr)
		if !ok {
			return nil, false
		}
		curr, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return curr, true
}

// AsObject unwraps the nested object shapes a decoded or hand built record can hold.
func AsObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Record:
		return map[string]any(t), true
	}
	return nil, false
}

// AsArray returns the elements of any slice value except []byte.
func AsArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []byte:
		return nil, false
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	ret := make([]any, rv.Len())
	for i := range ret {
		ret[i] = rv.Index(i).Interface()
	}
	return ret, true
}

// Stringify renders a scalar as a facet value. The second return is false
// for nil and for values that are not scalars.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case fmt.Stringer:
		return t.String(), true
	case map[string]any, Record, []any:
		return "", false
	}
	if _, isArray := AsArray(v); isArray {
		return "", false
	}
	return fmt.Sprint(v), true
}
