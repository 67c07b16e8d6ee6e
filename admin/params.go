package admin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pedrohavay/mongoadmin/odm"
)

// NormalizeParams rewrites flat form parameters by property kind:
// identifiers become a string or nil, "" on an array becomes [], "" on an
// embedded document or array element becomes {}. Arrays of embedded
// documents are walked over the indexes present in params. The input map
// is not modified.
func NormalizeParams(params map[string]any, props []*Property) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, p := range props {
		normalizeProperty(out, "", p)
	}
	return out
}

func normalizeProperty(params map[string]any, prefix string, p *Property) {
	full := joinKey(prefix, p.Path())
	desc := p.Descriptor()
	switch desc.Instance {
	case odm.ObjectID:
		normalizeID(params, full)
	case odm.Array:
		if v, ok := params[full]; ok && v == "" {
			params[full] = []any{}
			return
		}
		caster := desc.Caster
		if caster == nil {
			return
		}
		if caster.Instance == odm.ObjectID {
			for _, i := range arrayIndices(params, full) {
				normalizeID(params, full+"."+strconv.Itoa(i))
			}
			return
		}
		if caster.Schema == nil || len(caster.Schema.Paths()) == 0 {
			return
		}
		subs := p.SubProperties()
		for _, i := range arrayIndices(params, full) {
			key := full + "." + strconv.Itoa(i)
			if v, ok := params[key]; ok && v == "" {
				params[key] = map[string]any{}
				continue
			}
			for _, sp := range subs {
				normalizeProperty(params, key, sp)
			}
		}
	case odm.Embedded:
		if v, ok := params[full]; ok && v == "" {
			params[full] = map[string]any{}
			return
		}
		for _, sp := range p.SubProperties() {
			normalizeProperty(params, full, sp)
		}
	}
}

func normalizeID(params map[string]any, key string) {
	v, ok := params[key]
	if !ok || v == nil {
		return
	}
	if v == "" {
		params[key] = nil
		return
	}
	params[key] = idString(v)
}

func idString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case primitive.ObjectID:
		return x.Hex()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// arrayIndices returns the distinct element indexes that appear under
// path in params, ascending.
func arrayIndices(params map[string]any, path string) []int {
	prefix := path + "."
	seen := map[int]bool{}
	for k := range params {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		seg := k[len(prefix):]
		if i := strings.IndexByte(seg, '.'); i >= 0 {
			seg = seg[:i]
		}
		if n, err := strconv.Atoi(seg); err == nil && n >= 0 {
			seen[n] = true
		}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
