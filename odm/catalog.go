package odm

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelDef is a named top-level schema bound to a collection.
type ModelDef struct {
	Name       string
	Collection string
	Schema     *Schema
}

// Catalog holds all model definitions loaded from schema files.
type Catalog struct {
	Path   string
	Models map[string]*ModelDef

	schemaSpecs map[string]schemaSpec
	built       map[string]*Schema
	building    map[string]bool
}

type fileSpec struct {
	Schemas map[string]schemaSpec `yaml:"schemas"`
	Models  map[string]modelSpec  `yaml:"models"`
}

type schemaSpec struct {
	Fields fieldList `yaml:"fields"`
	ID     *bool     `yaml:"_id"`
}

type modelSpec struct {
	Collection string    `yaml:"collection"`
	Fields     fieldList `yaml:"fields"`
}

type namedField struct {
	Name string
	Spec fieldSpec
}

// fieldList keeps the declaration order of a YAML mapping.
type fieldList []namedField

func (l *fieldList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", node.Line)
	}
	out := make(fieldList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var spec fieldSpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return err
		}
		out = append(out, namedField{Name: node.Content[i].Value, Spec: spec})
	}
	*l = out
	return nil
}

type fieldSpec struct {
	Type     string
	Required bool
	Enum     []string
	Ref      string
	Unique   bool
	Format   string
	Match    string
	Default  any
	Schema   *schemaRef
	Of       *fieldSpec
	Fields   fieldList
}

func (f *fieldSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		f.Type = node.Value
		return nil
	case yaml.SequenceNode:
		// [Element] shorthand for an array
		if len(node.Content) != 1 {
			return fmt.Errorf("line %d: array shorthand takes exactly one element", node.Line)
		}
		var elem fieldSpec
		if err := node.Content[0].Decode(&elem); err != nil {
			return err
		}
		f.Type = "Array"
		f.Of = &elem
		return nil
	}
	var raw struct {
		Type     string     `yaml:"type"`
		Required bool       `yaml:"required"`
		Enum     []string   `yaml:"enum"`
		Ref      string     `yaml:"ref"`
		Unique   bool       `yaml:"unique"`
		Format   string     `yaml:"format"`
		Match    string     `yaml:"match"`
		Default  any        `yaml:"default"`
		Schema   *schemaRef `yaml:"schema"`
		Of       *fieldSpec `yaml:"of"`
		Fields   fieldList  `yaml:"fields"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*f = fieldSpec(raw)
	return nil
}

// schemaRef is either a schema name or an inline schema.
type schemaRef struct {
	Name   string
	Inline *schemaSpec
}

func (r *schemaRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Name = node.Value
		return nil
	}
	var spec schemaSpec
	if err := node.Decode(&spec); err != nil {
		return err
	}
	r.Inline = &spec
	return nil
}

// LoadCatalog walks path for YAML schema files and builds every model.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{
		Path:        path,
		Models:      map[string]*ModelDef{},
		schemaSpecs: map[string]schemaSpec{},
		built:       map[string]*Schema{},
		building:    map[string]bool{},
	}
	models := map[string]modelSpec{}
	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".yml") && !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		var file fileSpec
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		for name, spec := range file.Schemas {
			if _, ok := c.schemaSpecs[name]; ok {
				return fmt.Errorf("duplicate schema name: %s", name)
			}
			c.schemaSpecs[name] = spec
		}
		for name, spec := range file.Models {
			if _, ok := models[name]; ok {
				return fmt.Errorf("duplicate model name: %s", name)
			}
			models[name] = spec
		}
		return nil
	}
	if err := filepath.WalkDir(path, walk); err != nil {
		return nil, err
	}
	for name, spec := range models {
		sc, err := c.buildSchema(schemaSpec{Fields: spec.Fields}, true)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		coll := spec.Collection
		if coll == "" {
			coll = defaultCollectionName(name)
		}
		c.Models[name] = &ModelDef{Name: name, Collection: coll, Schema: sc}
	}
	return c, nil
}

// ModelNames returns the loaded model names in sorted order.
func (c *Catalog) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for n := range c.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func defaultCollectionName(model string) string {
	n := strings.ToLower(model)
	if strings.HasSuffix(n, "s") {
		return n
	}
	return n + "s"
}

func (c *Catalog) namedSchema(name string) (*Schema, error) {
	if sc, ok := c.built[name]; ok {
		return sc, nil
	}
	spec, ok := c.schemaSpecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema: %s", name)
	}
	if c.building[name] {
		return nil, fmt.Errorf("recursive schema: %s", name)
	}
	c.building[name] = true
	defer delete(c.building, name)
	sc, err := c.buildSchema(spec, false)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	c.built[name] = sc
	return sc, nil
}

func (c *Catalog) resolveRef(ref *schemaRef) (*Schema, error) {
	if ref.Inline != nil {
		return c.buildSchema(*ref.Inline, false)
	}
	return c.namedSchema(ref.Name)
}

func (c *Catalog) buildSchema(spec schemaSpec, top bool) (*Schema, error) {
	sc := NewSchema()
	if err := c.addFields(sc, "", spec.Fields); err != nil {
		return nil, err
	}
	if spec.ID == nil || *spec.ID {
		if sc.Path(IDPath) == nil {
			sc.Add(&SchemaType{Path: IDPath, Instance: ObjectID})
		}
	}
	if top {
		sc.Add(&SchemaType{Path: VersionKeyPath, Instance: Number})
	}
	return sc, nil
}

func (c *Catalog) addFields(sc *Schema, prefix string, fields fieldList) error {
	for _, f := range fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		// nested plain object: flattened into dotted paths
		if f.Spec.Type == "" && f.Spec.Schema == nil && f.Spec.Of == nil && len(f.Spec.Fields) > 0 {
			if err := c.addFields(sc, path, f.Spec.Fields); err != nil {
				return err
			}
			continue
		}
		t, err := c.buildType(path, f.Spec)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		sc.Add(t)
	}
	return nil
}

func (c *Catalog) buildType(path string, spec fieldSpec) (*SchemaType, error) {
	var inst Instance
	switch {
	case spec.Type != "":
		var err error
		if inst, err = ParseInstance(spec.Type); err != nil {
			return nil, err
		}
	case spec.Of != nil:
		inst = Array
	case spec.Schema != nil || len(spec.Fields) > 0:
		inst = Embedded
	default:
		return nil, fmt.Errorf("%w: missing type", ErrUnknownInstance)
	}
	t := &SchemaType{
		Path:     path,
		Instance: inst,
		Options: Options{
			Ref:      spec.Ref,
			Unique:   spec.Unique,
			Required: spec.Required,
			Format:   spec.Format,
			Match:    spec.Match,
			Default:  spec.Default,
		},
	}
	switch inst {
	case Embedded:
		sub, err := c.subSchema(spec)
		if err != nil {
			return nil, err
		}
		t.Schema = sub
	case Array:
		if spec.Of == nil {
			return nil, fmt.Errorf("array without element type")
		}
		caster, err := c.buildCaster(path, *spec.Of)
		if err != nil {
			return nil, err
		}
		t.Caster = caster
	}
	if spec.Required {
		t.Validators = append(t.Validators, Validator{Type: "required", Message: fmt.Sprintf("Path `%s` is required.", path)})
	}
	if len(spec.Enum) > 0 {
		t.EnumValues = append([]string{}, spec.Enum...)
		t.Validators = append(t.Validators, Validator{Type: "enum", Values: t.EnumValues})
	}
	if spec.Match != "" {
		re, err := regexp.Compile(spec.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern: %w", err)
		}
		t.Validators = append(t.Validators, Validator{Type: "regexp", Pattern: re})
	}
	if spec.Format != "" {
		if _, ok := formats[spec.Format]; !ok {
			return nil, fmt.Errorf("unknown format: %s", spec.Format)
		}
		t.Validators = append(t.Validators, Validator{Type: "format", Format: spec.Format})
	}
	return t, nil
}

func (c *Catalog) subSchema(spec fieldSpec) (*Schema, error) {
	if spec.Schema != nil {
		return c.resolveRef(spec.Schema)
	}
	return c.buildSchema(schemaSpec{Fields: spec.Fields}, false)
}

// buildCaster describes an array element. Elements with a nested schema
// get a caster without an instance that only carries the schema.
func (c *Catalog) buildCaster(path string, spec fieldSpec) (*SchemaType, error) {
	if spec.Schema != nil || (len(spec.Fields) > 0 && (spec.Type == "" || spec.Type == "Embedded")) {
		sub, err := c.subSchema(spec)
		if err != nil {
			return nil, err
		}
		return &SchemaType{Path: path, Instance: InstanceNone, Schema: sub}, nil
	}
	caster, err := c.buildType(path, spec)
	if err != nil {
		return nil, err
	}
	if caster.Instance == Array {
		return nil, fmt.Errorf("nested arrays are not supported")
	}
	return caster, nil
}
