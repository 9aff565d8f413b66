package facet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins path segments in flat facet keys. Segments are escaped so
// field names and values may contain it.
const Separator = "~"

// MaxPosition is the largest array position a parsed key may name.
const MaxPosition = 1 << 16

var (
	ErrEmptyKey   = errors.New("empty facet key")
	ErrInvalidKey = errors.New("invalid facet key")
)

var (
	escaper   = strings.NewReplacer("%", "%25", Separator, "%7E", "[", "%5B")
	unescaper = strings.NewReplacer("%25", "%", "%7E", Separator, "%5B", "[")
)

// Segment is one step into a record: an object key or an array position.
type Segment struct {
	Key   string
	Index int
}

func Key(k string) Segment {
	return Segment{Key: k, Index: -1}
}

func At(i int) Segment {
	return Segment{Index: i}
}

func (s Segment) IsIndex() bool {
	return s.Index >= 0
}

func (s Segment) String() string {
	if s.IsIndex() {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return escaper.Replace(s.Key)
}

type Path []Segment

// KeyPath builds a path of object keys only.
func KeyPath(keys ...string) Path {
	ret := make(Path, len(keys))
	for i, k := range keys {
		ret[i] = Key(k)
	}
	return ret
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, Separator)
}

// Append returns a new path, p is never modified.
func (p Path) Append(s ...Segment) Path {
	ret := make(Path, 0, len(p)+len(s))
	ret = append(ret, p...)
	return append(ret, s...)
}

func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyKey
	}
	parts := strings.Split(s, Separator)
	ret := make(Path, len(parts))
	for i, part := range parts {
		if strings.HasPrefix(part, "[") {
			if !strings.HasSuffix(part, "]") {
				return nil, fmt.Errorf("%w: segment %q", ErrInvalidKey, part)
			}
			idx, err := strconv.Atoi(part[1 : len(part)-1])
			if err != nil || idx < 0 || idx > MaxPosition {
				return nil, fmt.Errorf("%w: segment %q", ErrInvalidKey, part)
			}
			ret[i] = At(idx)
			continue
		}
		ret[i] = Key(unescaper.Replace(part))
	}
	return ret, nil
}

// FacetKey is the flat key of one facet value, the value being the last segment.
func FacetKey(path Path, value string) string {
	return path.Append(Key(value)).String()
}

// SplitFacetKey reverses FacetKey.
func SplitFacetKey(key string) (Path, string, error) {
	p, err := ParsePath(key)
	if err != nil {
		return nil, "", err
	}
	if len(p) < 2 {
		return nil, "", fmt.Errorf("%w: %q has no field", ErrInvalidKey, key)
	}
	last := p[len(p)-1]
	if last.IsIndex() {
		return nil, "", fmt.Errorf("%w: %q ends in an array position", ErrInvalidKey, key)
	}
	return p[:len(p)-1], last.Key, nil
}
