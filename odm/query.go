package odm

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// resolve finds the leaf descriptor for a dotted query key, descending into
// embedded schemas and skipping array indexes.
func (s *Schema) resolve(key string) *SchemaType {
	if s == nil {
		return nil
	}
	t, rel := s.lookup(key)
	if t == nil || rel == "" {
		return t
	}
	sub := t.ElementSchema()
	if sub == nil {
		return nil
	}
	if i := strings.IndexByte(rel, '.'); t.Instance == Array && i > 0 {
		if _, err := strconv.Atoi(rel[:i]); err == nil {
			rel = rel[i+1:]
		}
	}
	return sub.resolve(rel)
}

// CastQuery casts the operands of a filter to the declared instance of each
// path, so hex strings match stored identifiers and date bounds compare as
// dates.
func (s *Schema) CastQuery(filter map[string]any) (Document, error) {
	out := Document{}
	for key, cond := range filter {
		if strings.HasPrefix(key, "$") {
			out[key] = cond
			continue
		}
		t := s.resolve(key)
		if t == nil {
			out[key] = cond
			continue
		}
		inst := t.Instance
		if inst == Array && t.Caster != nil && t.Caster.Schema == nil {
			inst = t.Caster.Instance
		}
		if inst == Array || inst == Embedded || inst == InstanceNone {
			out[key] = cond
			continue
		}
		c, err := castCondition(key, inst, cond)
		if err != nil {
			return nil, err
		}
		out[key] = c
	}
	return out, nil
}

func castCondition(key string, inst Instance, cond any) (any, error) {
	if _, ok := cond.(primitive.Regex); ok {
		return cond, nil
	}
	m, ok := asMap(cond)
	if !ok || !hasOperators(m) {
		return castOperand(key, inst, cond)
	}
	out := make(map[string]any, len(m))
	for op, operand := range m {
		switch op {
		case "$in", "$nin":
			list, ok := asList(operand)
			if !ok {
				list = []any{operand}
			}
			cast := make([]any, 0, len(list))
			for _, e := range list {
				c, err := castOperand(key, inst, e)
				if err != nil {
					return nil, err
				}
				cast = append(cast, c)
			}
			out[op] = cast
		case "$eq", "$ne", "$gt", "$gte", "$lt", "$lte":
			c, err := castOperand(key, inst, operand)
			if err != nil {
				return nil, err
			}
			out[op] = c
		default:
			out[op] = operand
		}
	}
	return out, nil
}

func castOperand(key string, inst Instance, v any) (any, error) {
	c, ok := castValue(inst, v)
	if !ok {
		ce := newCastError(key, v, inst)
		ce.FullPath = key
		return nil, ce
	}
	return c, nil
}

func hasOperators(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}
