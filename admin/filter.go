package admin

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// Range bounds a datetime filter. Either side may be empty.
type Range struct {
	From any `json:"from,omitempty"`
	To   any `json:"to,omitempty"`
}

// FilterElement filters one property by value.
type FilterElement struct {
	Property *Property
	Value    any
}

// Filter is the list of property filters of a list request.
type Filter struct {
	Elements []FilterElement
}

// NewFilter builds a filter from property name to value. A map value with
// from/to keys becomes a Range. Keys naming no property are dropped.
func NewFilter(raw map[string]any, r *Resource) *Filter {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f := &Filter{}
	for _, k := range keys {
		p := r.Property(k)
		if p == nil {
			ev := r.logger.Warn().Str("filter", k)
			if s, ok := r.SuggestProperty(k); ok {
				ev = ev.Str("suggestion", s)
			}
			ev.Msg("dropping filter on unknown property")
			continue
		}
		f.Elements = append(f.Elements, FilterElement{Property: p, Value: filterValue(raw[k])})
	}
	return f
}

func filterValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	from, hasFrom := m["from"]
	to, hasTo := m["to"]
	if !hasFrom && !hasTo {
		return v
	}
	return Range{From: from, To: to}
}

// ConvertFilter turns f into a store query. The second result is false when
// the filter can match nothing, such as a malformed identifier.
func ConvertFilter(f *Filter) (bson.M, bool) {
	q := bson.M{}
	if f == nil {
		return q, true
	}
	for _, e := range f.Elements {
		if !e.Property.Type().Condition(q, e.Property.Name(), e.Value) {
			return nil, false
		}
	}
	return q, true
}
