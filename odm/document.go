package odm

import (
	"reflect"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is a nested document as read from or written to a collection.
type Document = map[string]any

// Normalize converts driver container types (bson.M, bson.D, bson.A) into
// plain maps and slices, recursively.
func Normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Normalize(val)
		}
		return out
	case bson.M:
		return Normalize(map[string]any(x))
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = Normalize(e.Value)
		}
		return out
	case bson.A:
		return Normalize([]any(x))
	case primitive.DateTime:
		return x.Time().UTC()
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Normalize(val)
		}
		return out
	}
	return v
}

// NormalizeDocument is Normalize for a whole document.
func NormalizeDocument(doc map[string]any) Document {
	if doc == nil {
		return nil
	}
	return Normalize(doc).(map[string]any)
}

func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case bson.M:
		return map[string]any(x), true
	case bson.D:
		return Normalize(x).(map[string]any), true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case bson.A:
		return []any(x), true
	case []byte, primitive.ObjectID:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// GetPath reads a dotted path from a nested document. Numeric segments
// index into lists.
func GetPath(doc map[string]any, path string) (any, bool) {
	if v, ok := doc[path]; ok {
		return v, true
	}
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		switch x := cur.(type) {
		case map[string]any:
			v, ok := x[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.M:
			v, ok := x[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			list, ok := asList(cur)
			if !ok {
				return nil, false
			}
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(list) {
				return nil, false
			}
			cur = list[i]
		}
	}
	return cur, true
}

// SetPath writes v at a dotted path, creating intermediate maps. Numeric
// segments index into existing lists, which grow with nils when the index
// is past the end.
func SetPath(doc map[string]any, path string, v any) {
	segs := strings.Split(path, ".")
	doc[segs[0]] = setIn(doc[segs[0]], segs[1:], v)
}

func setIn(cur any, segs []string, v any) any {
	if len(segs) == 0 {
		return v
	}
	if list, ok := asList(cur); ok {
		if i, err := strconv.Atoi(segs[0]); err == nil && i >= 0 {
			for len(list) <= i {
				list = append(list, nil)
			}
			list[i] = setIn(list[i], segs[1:], v)
			return list
		}
	}
	m, ok := asMap(cur)
	if !ok {
		m = map[string]any{}
	}
	m[segs[0]] = setIn(m[segs[0]], segs[1:], v)
	return m
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	return prefix + "." + path
}

func cloneDocument(doc map[string]any) Document {
	return NormalizeDocument(doc)
}
