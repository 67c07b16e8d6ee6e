package odm

import (
	"regexp"
	"strings"
)

const (
	// IDPath is the implicit identifier path of every schema.
	IDPath = "_id"
	// VersionKeyPath is the implicit version path of top-level schemas.
	VersionKeyPath = "__v"
)

// Validator is one constraint attached to a schema path.
type Validator struct {
	Type    string // required, enum, regexp, format
	Message string
	Values  []string
	Pattern *regexp.Regexp
	Format  string
}

// Options are the declared options of a schema path.
type Options struct {
	Ref      string
	Unique   bool
	Required bool
	Format   string
	Match    string
	Default  any
}

// SchemaType describes one path of a schema.
type SchemaType struct {
	Path       string
	Instance   Instance
	EnumValues []string
	Schema     *Schema     // Embedded, or element schema of an array caster
	Caster     *SchemaType // element descriptor for Array
	Validators []Validator
	Options    Options
}

// IsRequired reports whether a required validator is attached.
func (t *SchemaType) IsRequired() bool {
	for _, v := range t.Validators {
		if v.Type == "required" {
			return true
		}
	}
	return false
}

// ElementSchema returns the nested schema of an Embedded path or of an
// array of embedded documents.
func (t *SchemaType) ElementSchema() *Schema {
	if t.Instance == Embedded {
		return t.Schema
	}
	if t.Instance == Array && t.Caster != nil {
		return t.Caster.Schema
	}
	return nil
}

// Schema is an ordered set of path descriptors.
type Schema struct {
	paths []*SchemaType
	index map[string]*SchemaType
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{index: map[string]*SchemaType{}}
}

// Add appends a path; a second path with the same name replaces the first in place.
func (s *Schema) Add(t *SchemaType) {
	if prev, ok := s.index[t.Path]; ok {
		*prev = *t
		return
	}
	s.paths = append(s.paths, t)
	s.index[t.Path] = t
}

// Paths returns the descriptors in declaration order.
func (s *Schema) Paths() []*SchemaType {
	if s == nil {
		return nil
	}
	out := make([]*SchemaType, len(s.paths))
	copy(out, s.paths)
	return out
}

func (s *Schema) Path(name string) *SchemaType {
	if s == nil {
		return nil
	}
	return s.index[name]
}

func (s *Schema) PathNames() []string {
	out := make([]string, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, p.Path)
	}
	return out
}

// UniquePaths lists the paths carrying a unique index.
func (s *Schema) UniquePaths() []string {
	var out []string
	for _, p := range s.paths {
		if p.Options.Unique {
			out = append(out, p.Path)
		}
	}
	return out
}

// lookup finds the schema path owning a dotted key, descending into
// embedded schemas. rel is the key relative to the returned path.
func (s *Schema) lookup(key string) (t *SchemaType, rel string) {
	if t := s.Path(key); t != nil {
		return t, ""
	}
	for i := strings.LastIndex(key, "."); i > 0; i = strings.LastIndex(key[:i], ".") {
		if t := s.Path(key[:i]); t != nil {
			return t, key[i+1:]
		}
	}
	return nil, ""
}
