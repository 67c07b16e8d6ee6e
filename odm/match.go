package odm

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match reports whether doc satisfies filter. It covers the query subset
// produced by this module: equality, $regex/$options, $eq, $ne, $in, $nin,
// $gt, $gte, $lt, $lte, $exists, $and and $or over dotted paths.
func Match(doc map[string]any, filter map[string]any) bool {
	for key, cond := range filter {
		switch key {
		case "$and", "$or":
			clauses, _ := asList(cond)
			matched := false
			for _, c := range clauses {
				m, ok := asMap(c)
				if !ok {
					continue
				}
				hit := Match(doc, m)
				if key == "$and" && !hit {
					return false
				}
				matched = matched || hit
			}
			if key == "$or" && !matched {
				return false
			}
			continue
		}
		if !matchCondition(lookupValues(doc, key), cond) {
			return false
		}
	}
	return true
}

// lookupValues collects every value reachable at path; lists are both
// matched as a whole and element by element.
func lookupValues(v any, path string) []any {
	if path == "" {
		if list, ok := asList(v); ok {
			return append([]any{v}, list...)
		}
		return []any{v}
	}
	seg, rest := path, ""
	if i := strings.IndexByte(path, '.'); i >= 0 {
		seg, rest = path[:i], path[i+1:]
	}
	if m, ok := asMap(v); ok {
		val, ok := m[seg]
		if !ok {
			return nil
		}
		return lookupValues(val, rest)
	}
	list, ok := asList(v)
	if !ok {
		return nil
	}
	if i, err := strconv.Atoi(seg); err == nil {
		if i < 0 || i >= len(list) {
			return nil
		}
		return lookupValues(list[i], rest)
	}
	var out []any
	for _, e := range list {
		out = append(out, lookupValues(e, path)...)
	}
	return out
}

func matchCondition(values []any, cond any) bool {
	if re, ok := cond.(primitive.Regex); ok {
		return matchRegex(values, re.Pattern, re.Options)
	}
	m, ok := asMap(cond)
	if !ok || !hasOperators(m) {
		return matchEqual(values, cond)
	}
	for op, operand := range m {
		switch op {
		case "$regex":
			pattern, opts := "", ""
			switch x := operand.(type) {
			case string:
				pattern = x
			case primitive.Regex:
				pattern, opts = x.Pattern, x.Options
			}
			if o, ok := m["$options"].(string); ok {
				opts = o
			}
			if !matchRegex(values, pattern, opts) {
				return false
			}
		case "$options":
		case "$eq":
			if !matchEqual(values, operand) {
				return false
			}
		case "$ne":
			if matchEqual(values, operand) {
				return false
			}
		case "$in", "$nin":
			list, _ := asList(operand)
			found := false
			for _, e := range list {
				if matchEqual(values, e) {
					found = true
					break
				}
			}
			if found != (op == "$in") {
				return false
			}
		case "$gt", "$gte", "$lt", "$lte":
			hit := false
			for _, v := range values {
				c, ok := compareValues(v, operand)
				if !ok {
					continue
				}
				if (op == "$gt" && c > 0) || (op == "$gte" && c >= 0) || (op == "$lt" && c < 0) || (op == "$lte" && c <= 0) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		case "$exists":
			want, _ := operand.(bool)
			if (len(values) > 0) != want {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchEqual(values []any, want any) bool {
	if want == nil {
		if len(values) == 0 {
			return true
		}
		for _, v := range values {
			if v == nil {
				return true
			}
		}
		return false
	}
	for _, v := range values {
		if c, ok := compareValues(v, want); ok && c == 0 {
			return true
		}
	}
	return false
}

func matchRegex(values []any, pattern, options string) bool {
	if strings.Contains(options, "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	for _, v := range values {
		if s, ok := v.(string); ok && re.MatchString(s) {
			return true
		}
	}
	return false
}

// compareValues orders two scalars of a compatible kind.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		if a == nil {
			return -1, true
		}
		return 1, true
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmpOrdered(fa, fb), true
		}
		return 0, false
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			if x == y {
				return 0, true
			}
			if !x {
				return -1, true
			}
			return 1, true
		}
	case primitive.ObjectID:
		if y, ok := b.(primitive.ObjectID); ok {
			return strings.Compare(x.Hex(), y.Hex()), true
		}
	case time.Time, primitive.DateTime:
		ta, _ := toTime(a)
		if tb, ok := toTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	return 0, false
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(x.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case primitive.DateTime:
		return x.Time(), true
	}
	return time.Time{}, false
}

// sortDocuments orders docs in place by the keys of sort (1 ascending,
// -1 descending). Missing values sort first.
func sortDocuments(docs []Document, sortBy bson.D) {
	if len(sortBy) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range sortBy {
			a, _ := GetPath(docs[i], e.Key)
			b, _ := GetPath(docs[j], e.Key)
			c, ok := compareValues(a, b)
			if !ok || c == 0 {
				continue
			}
			if dir, _ := toFloat(e.Value); dir < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// page applies skip and limit to an already sorted slice.
func page(docs []Document, skip, limit int64) []Document {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}
