package admin

import (
	"strings"

	"github.com/pedrohavay/mongoadmin/odm"
)

// Property is the admin view over one schema path. Properties are built
// fresh from the schema on every call and never mutated.
type Property struct {
	desc     *odm.SchemaType
	position int
}

func NewProperty(desc *odm.SchemaType, position int) *Property {
	return &Property{desc: desc, position: position}
}

func (p *Property) Name() string                { return p.desc.Path }
func (p *Property) Path() string                { return p.desc.Path }
func (p *Property) Position() int               { return p.position }
func (p *Property) Descriptor() *odm.SchemaType { return p.desc }

func (p *Property) IsID() bool { return p.Name() == odm.IDPath }

func (p *Property) IsArray() bool { return p.desc.Instance == odm.Array }

// IsEditable is false for the identifier and the version key.
func (p *Property) IsEditable() bool {
	return p.Name() != odm.VersionKeyPath && p.Name() != odm.IDPath
}

// IsVisible hides the version key and anything named like a password.
func (p *Property) IsVisible() bool {
	return p.Name() != odm.VersionKeyPath && !strings.Contains(p.Name(), "password")
}

func (p *Property) IsRequired() bool { return p.desc.IsRequired() }

// AvailableValues returns the enum values, or nil.
func (p *Property) AvailableValues() []string {
	if len(p.desc.EnumValues) == 0 {
		return nil
	}
	return append([]string(nil), p.desc.EnumValues...)
}

// Reference is the name of the referenced model, or "". Arrays carry the
// reference on their caster.
func (p *Property) Reference() string {
	if p.IsArray() {
		if p.desc.Caster == nil {
			return ""
		}
		return p.desc.Caster.Options.Ref
	}
	return p.desc.Options.Ref
}

// instance is the kind the type is resolved from. Arrays resolve through
// their caster; a caster that only carries a schema is an embedded document.
func (p *Property) instance() odm.Instance {
	if !p.IsArray() {
		return p.desc.Instance
	}
	c := p.desc.Caster
	if c == nil {
		return odm.InstanceNone
	}
	if c.Instance == odm.InstanceNone && c.Schema != nil {
		return odm.Embedded
	}
	return c.Instance
}

// ResolveType is Type with the failure for kinds outside the table.
func (p *Property) ResolveType() (PropertyType, error) {
	return registry.ForInstance(p.instance(), p.Reference() != "")
}

// Type resolves the semantic type; unknown kinds fall back to string.
func (p *Property) Type() PropertyType {
	t, err := p.ResolveType()
	if err != nil {
		return registry.String
	}
	return t
}

func (p *Property) IsSortable() bool {
	return p.Type().Sortable() && !p.IsArray()
}

// SubProperties lists the nested schema paths of a mixed property, each
// positioned from 0. Plain and arrayed embedded documents both have them.
func (p *Property) SubProperties() []*Property {
	if p.Type().Name() != registry.Mixed.Name() {
		return nil
	}
	paths := p.desc.ElementSchema().Paths()
	out := make([]*Property, 0, len(paths))
	for i, d := range paths {
		out = append(out, NewProperty(d, i))
	}
	return out
}
