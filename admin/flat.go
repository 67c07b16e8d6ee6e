package admin

import (
	"sort"
	"strconv"
	"strings"
)

// Flatten turns a nested document into dotted-path params. List elements
// get their index as a segment. Empty maps and lists are kept as leaves.
func Flatten(doc map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range doc {
		flattenInto(out, k, v)
	}
	return out
}

func flattenInto(out map[string]any, key string, v any) {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 0 {
			out[key] = map[string]any{}
			return
		}
		for k, sub := range x {
			flattenInto(out, key+"."+k, sub)
		}
	case []any:
		if len(x) == 0 {
			out[key] = []any{}
			return
		}
		for i, sub := range x {
			flattenInto(out, key+"."+strconv.Itoa(i), sub)
		}
	default:
		out[key] = v
	}
}

// Unflatten rebuilds a nested document from dotted-path params. Maps whose
// keys are all indexes become lists in index order.
func Unflatten(params map[string]any) map[string]any {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	root := map[string]any{}
	for _, k := range keys {
		setNested(root, strings.Split(k, "."), params[k])
	}
	for k, v := range root {
		root[k] = listify(v)
	}
	return root
}

func setNested(m map[string]any, segs []string, v any) {
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[seg] = next
		}
		m = next
	}
	last := segs[len(segs)-1]
	if existing, ok := m[last].(map[string]any); ok && len(existing) > 0 {
		// a deeper key already populated this node
		return
	}
	if sub, ok := v.(map[string]any); ok && len(sub) == 0 {
		v = map[string]any{}
	}
	m[last] = v
}

func listify(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return v
	}
	indexes := make([]int, 0, len(m))
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 {
			for k, sub := range m {
				m[k] = listify(sub)
			}
			return m
		}
		indexes = append(indexes, n)
	}
	sort.Ints(indexes)
	out := make([]any, 0, len(indexes))
	for _, n := range indexes {
		out = append(out, listify(m[strconv.Itoa(n)]))
	}
	return out
}
