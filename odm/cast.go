package odm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// castValue coerces a scalar to inst. Empty strings become nil for every
// instance except String.
func castValue(inst Instance, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	if s, ok := v.(string); ok && inst != String && strings.TrimSpace(s) == "" {
		return nil, true
	}
	switch inst {
	case String:
		switch x := v.(type) {
		case string:
			return x, true
		case float64, float32, int, int32, int64, bool:
			return fmt.Sprint(x), true
		case primitive.ObjectID:
			return x.Hex(), true
		}
	case Number:
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
		case bool:
			if x {
				return float64(1), true
			}
			return float64(0), true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err == nil {
				return f, true
			}
		}
	case Boolean:
		switch x := v.(type) {
		case bool:
			return x, true
		case float64:
			if x == 0 || x == 1 {
				return x == 1, true
			}
		case int:
			if x == 0 || x == 1 {
				return x == 1, true
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "1", "yes", "on":
				return true, true
			case "false", "0", "no", "off":
				return false, true
			}
		}
	case Date:
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), true
		case primitive.DateTime:
			return x.Time().UTC(), true
		case float64:
			return time.UnixMilli(int64(x)).UTC(), true
		case int64:
			return time.UnixMilli(x).UTC(), true
		case string:
			s := strings.TrimSpace(x)
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC(), true
				}
			}
		}
	case ObjectID:
		switch x := v.(type) {
		case primitive.ObjectID:
			return x, true
		case string:
			if id, err := primitive.ObjectIDFromHex(strings.TrimSpace(x)); err == nil {
				return id, true
			}
		}
	case Decimal128:
		switch x := v.(type) {
		case primitive.Decimal128:
			return x, true
		case float64:
			if d, err := primitive.ParseDecimal128(strconv.FormatFloat(x, 'f', -1, 64)); err == nil {
				return d, true
			}
		case int:
			if d, err := primitive.ParseDecimal128(strconv.Itoa(x)); err == nil {
				return d, true
			}
		case string:
			if d, err := primitive.ParseDecimal128(strings.TrimSpace(x)); err == nil {
				return d, true
			}
		}
	}
	return nil, false
}

// validate runs the validators of t against an already cast value and
// returns the value to store (formats may normalize it).
func validate(t *SchemaType, full string, v any, errs map[string]*ValidatorError) any {
	s, isString := v.(string)
	for _, val := range t.Validators {
		switch val.Type {
		case "required":
			if v == nil || (isString && s == "") {
				errs[full] = &ValidatorError{Path: full, Kind: "required", Name: "ValidatorError", Value: v,
					Message: fmt.Sprintf("Path `%s` is required.", full)}
				return v
			}
		case "enum":
			if !isString || s == "" {
				continue
			}
			found := false
			for _, allowed := range val.Values {
				if allowed == s {
					found = true
					break
				}
			}
			if !found {
				errs[full] = &ValidatorError{Path: full, Kind: "enum", Name: "ValidatorError", Value: v,
					Message: fmt.Sprintf("`%s` is not a valid enum value for path `%s`.", s, full)}
				return v
			}
		case "regexp":
			if isString && s != "" && !val.Pattern.MatchString(s) {
				errs[full] = &ValidatorError{Path: full, Kind: "regexp", Name: "ValidatorError", Value: v,
					Message: fmt.Sprintf("Path `%s` is invalid (%s).", full, s)}
				return v
			}
		case "format":
			if !isString || s == "" {
				continue
			}
			clean, err := formats[val.Format](s)
			if err != nil {
				errs[full] = &ValidatorError{Path: full, Kind: "format", Name: "ValidatorError", Value: v,
					Message: fmt.Sprintf("Path `%s` is not a valid %s (%s): %v.", full, val.Format, s, err)}
				return v
			}
			v, s = clean, clean
		}
	}
	return v
}

func castFailure(full string, v any, inst Instance) *ValidatorError {
	ce := newCastError(full, v, inst)
	return &ValidatorError{Path: full, Kind: ce.Kind, Name: "CastError", Message: ce.Message, Value: v}
}

// nest re-keys sub-document failures under prefix and adds the parent
// entry for the embedded path itself.
func nest(prefix string, sub, errs map[string]*ValidatorError) {
	if len(sub) == 0 {
		return
	}
	parent := &ValidatorError{Path: prefix, Name: "ValidationError", Message: (&ValidationError{Errors: sub}).Error()}
	for k, e := range sub {
		e.Path = prefix + "." + k
		errs[e.Path] = e
	}
	errs[prefix] = parent
}

// Cast coerces doc to the schema and runs all validators. Paths not in the
// schema are dropped. Missing identifiers are generated.
func (s *Schema) Cast(doc map[string]any) (Document, map[string]*ValidatorError) {
	errs := map[string]*ValidatorError{}
	out := s.castDocument(doc, errs)
	return out, errs
}

func (s *Schema) castDocument(doc map[string]any, errs map[string]*ValidatorError) Document {
	out := Document{}
	for _, t := range s.paths {
		v, present := GetPath(doc, t.Path)
		if (!present || v == nil) && t.Options.Default != nil {
			v, present = t.Options.Default, true
		}
		if t.Path == IDPath && t.Instance == ObjectID && v == nil {
			v, present = primitive.NewObjectID(), true
		}
		switch t.Instance {
		case Embedded:
			if v == nil {
				validate(t, t.Path, nil, errs)
				continue
			}
			m, ok := asMap(v)
			if !ok {
				errs[t.Path] = castFailure(t.Path, v, Embedded)
				continue
			}
			subErrs := map[string]*ValidatorError{}
			sub := t.Schema.castDocument(m, subErrs)
			nest(t.Path, subErrs, errs)
			SetPath(out, t.Path, sub)
		case Array:
			elems, ok := s.castArray(t, v, errs)
			if ok {
				SetPath(out, t.Path, elems)
			}
		default:
			c, ok := castValue(t.Instance, v)
			if !ok {
				errs[t.Path] = castFailure(t.Path, v, t.Instance)
				continue
			}
			c = validate(t, t.Path, c, errs)
			if present && c != nil {
				SetPath(out, t.Path, c)
			}
		}
	}
	return out
}

func (s *Schema) castArray(t *SchemaType, v any, errs map[string]*ValidatorError) ([]any, bool) {
	if v == nil {
		v = []any{}
	}
	list, ok := asList(v)
	if !ok {
		list = []any{v}
	}
	if t.IsRequired() && len(list) == 0 {
		validate(t, t.Path, nil, errs)
	}
	elems := make([]any, 0, len(list))
	for i, e := range list {
		ep := t.Path + "." + strconv.Itoa(i)
		if t.Caster.Schema != nil {
			m, ok := asMap(e)
			if !ok {
				errs[ep] = castFailure(ep, e, Embedded)
				continue
			}
			subErrs := map[string]*ValidatorError{}
			sub := t.Caster.Schema.castDocument(m, subErrs)
			nest(ep, subErrs, errs)
			elems = append(elems, sub)
			continue
		}
		c, ok := castValue(t.Caster.Instance, e)
		if !ok {
			errs[ep] = castFailure(ep, e, t.Caster.Instance)
			continue
		}
		elems = append(elems, validate(t.Caster, ep, c, errs))
	}
	return elems, true
}

// castUpdate coerces the dotted keys of set, each resolved to the path it
// writes. The first value that cannot be cast aborts with a *CastError;
// validator failures are collected. The result keeps the dotted keys, so a
// $set only touches the named leaves. Keys outside the schema are dropped.
func (s *Schema) castUpdate(set map[string]any, errs map[string]*ValidatorError) (Document, *CastError) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := Document{}
	for _, key := range keys {
		if key == IDPath || key == VersionKeyPath {
			continue
		}
		c, ok, cerr := s.castUpdateKey(key, key, set[key], errs)
		if cerr != nil {
			return nil, cerr
		}
		if ok {
			out[key] = c
		}
	}
	return out, nil
}

// castUpdateKey casts v written at key, relative to s. full is the key as
// given to the update.
func (s *Schema) castUpdateKey(key, full string, v any, errs map[string]*ValidatorError) (any, bool, *CastError) {
	t, rel := s.lookup(key)
	if t == nil {
		return nil, false, nil
	}
	if rel == "" {
		c, cerr := t.castUpdateValue(full, v, errs)
		return c, true, cerr
	}
	switch t.Instance {
	case Embedded:
		return t.Schema.castUpdateKey(rel, full, v, errs)
	case Array:
		idx, rest, _ := strings.Cut(rel, ".")
		if _, err := strconv.Atoi(idx); err != nil || t.Caster == nil {
			return nil, false, nil
		}
		if t.Caster.Schema != nil {
			if rest != "" {
				return t.Caster.Schema.castUpdateKey(rest, full, v, errs)
			}
			m, ok := asMap(v)
			if !ok {
				ce := newCastError(t.Path, v, Embedded)
				ce.FullPath = full
				return nil, false, ce
			}
			sub, ce := t.Caster.Schema.castSubdocument(full, m, errs)
			return sub, true, ce
		}
		if rest != "" {
			return nil, false, nil
		}
		c, ok := castValue(t.Caster.Instance, v)
		if !ok {
			ce := newCastError(t.Path, v, t.Caster.Instance)
			ce.FullPath = full
			return nil, false, ce
		}
		return validate(t.Caster, full, c, errs), true, nil
	}
	return nil, false, nil
}

// castUpdateValue casts one value of path t written at the dotted key full.
func (t *SchemaType) castUpdateValue(full string, v any, errs map[string]*ValidatorError) (any, *CastError) {
	switch t.Instance {
	case Embedded:
		if v == nil {
			validate(t, full, nil, errs)
			return nil, nil
		}
		m, ok := asMap(v)
		if !ok {
			ce := newCastError(t.Path, v, Embedded)
			ce.FullPath = full
			return nil, ce
		}
		return t.Schema.castSubdocument(full, m, errs)
	case Array:
		if v == nil {
			return []any{}, nil
		}
		list, ok := asList(v)
		if !ok {
			list = []any{v}
		}
		elems := make([]any, 0, len(list))
		for i, e := range list {
			ep := full + "." + strconv.Itoa(i)
			if t.Caster.Schema != nil {
				m, ok := asMap(e)
				if !ok {
					ce := newCastError(t.Path, e, Embedded)
					ce.FullPath = ep
					return nil, ce
				}
				sub, ce := t.Caster.Schema.castSubdocument(ep, m, errs)
				if ce != nil {
					return nil, ce
				}
				elems = append(elems, sub)
				continue
			}
			c, ok := castValue(t.Caster.Instance, e)
			if !ok {
				ce := newCastError(t.Path, e, t.Caster.Instance)
				ce.FullPath = ep
				return nil, ce
			}
			elems = append(elems, validate(t.Caster, ep, c, errs))
		}
		return elems, nil
	}
	c, ok := castValue(t.Instance, v)
	if !ok {
		ce := newCastError(t.Path, v, t.Instance)
		ce.FullPath = full
		return nil, ce
	}
	return validate(t, full, c, errs), nil
}

// castSubdocument casts a whole replacement sub-document for an update.
func (s *Schema) castSubdocument(prefix string, doc map[string]any, errs map[string]*ValidatorError) (Document, *CastError) {
	out := Document{}
	for _, t := range s.paths {
		full := prefix + "." + t.Path
		v, present := GetPath(doc, t.Path)
		if t.Path == IDPath && t.Instance == ObjectID && v == nil {
			v, present = primitive.NewObjectID(), true
		}
		if !present {
			if t.IsRequired() {
				validate(t, full, nil, errs)
			}
			continue
		}
		c, ce := t.castUpdateValue(full, v, errs)
		if ce != nil {
			return nil, ce
		}
		if c != nil {
			SetPath(out, t.Path, c)
		}
	}
	return out, nil
}
